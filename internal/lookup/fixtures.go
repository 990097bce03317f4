package lookup

import (
	"context"

	"github.com/angelmondragon/vehiclevault-lookup/pkg/dvla"
	pkgerrors "github.com/angelmondragon/vehiclevault-lookup/pkg/errors"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/logger"
)

// demoVehicles are served when the live enquiry fails for a known demo plate.
var demoVehicles = map[string]map[string]any{
	"AB12CDE": {
		"registrationNumber": "AB12CDE",
		"make":               "BMW",
		"model":              "M3",
		"yearOfManufacture":  2020,
		"colour":             "Alpine White",
		"fuelType":           "Petrol",
		"taxStatus":          "Taxed",
	},
	"XY98ZAB": {
		"registrationNumber": "XY98ZAB",
		"make":               "Audi",
		"model":              "A4",
		"yearOfManufacture":  2019,
		"colour":             "Mythos Black",
		"fuelType":           "Diesel",
		"taxStatus":          "SORN",
	},
}

type fixtureFallback struct {
	next Enquirer
	logg *logger.Logger
}

// WithFixtureFallback decorates an Enquirer so failed enquiries for the demo
// plates return canned records instead of an error.
func WithFixtureFallback(next Enquirer, logg *logger.Logger) Enquirer {
	return &fixtureFallback{next: next, logg: logg}
}

func (f *fixtureFallback) Enquire(ctx context.Context, vrm string) (*dvla.Record, error) {
	var err error = pkgerrors.New(pkgerrors.CodeConfiguration, "vehicle enquiry client unavailable")
	if f.next != nil {
		var record *dvla.Record
		record, err = f.next.Enquire(ctx, vrm)
		if err == nil {
			return record, nil
		}
	}

	fixture, ok := demoVehicles[vrm]
	if !ok {
		return nil, err
	}
	if f.logg != nil {
		f.logg.Warn(f.logg.WithField(ctx, "vrm", vrm), "lookup.enquiry.fixture_fallback")
	}

	fields := make(map[string]any, len(fixture))
	for k, v := range fixture {
		fields[k] = v
	}
	return dvla.RecordFromFields(fields), nil
}
