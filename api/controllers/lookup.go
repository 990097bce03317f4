package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vehiclevault-lookup/api/responses"
	"github.com/angelmondragon/vehiclevault-lookup/api/validators"
	"github.com/angelmondragon/vehiclevault-lookup/internal/lookup"
	pkgerrors "github.com/angelmondragon/vehiclevault-lookup/pkg/errors"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/logger"
)

type lookupPayload struct {
	RegistrationNumber string `json:"registrationNumber" validate:"required,vrm"`
}

// VehicleLookup resolves the registration in the {vrm} path segment.
func VehicleLookup(svc lookup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lookup service unavailable"))
			return
		}

		raw := chi.URLParam(r, "vrm")
		if err := validators.ValidateVRMLength(raw); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeLookup(w, r, svc, logg, raw)
	}
}

// VehicleLookupByBody resolves the registrationNumber carried in a JSON body.
func VehicleLookupByBody(svc lookup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lookup service unavailable"))
			return
		}

		var payload lookupPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		writeLookup(w, r, svc, logg, payload.RegistrationNumber)
	}
}

func writeLookup(w http.ResponseWriter, r *http.Request, svc lookup.Service, logg *logger.Logger, raw string) {
	result, err := svc.Lookup(r.Context(), raw)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteJSON(w, http.StatusOK, result)
}
