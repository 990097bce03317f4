package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vehiclevault-lookup/api/controllers"
	"github.com/angelmondragon/vehiclevault-lookup/api/middleware"
	"github.com/angelmondragon/vehiclevault-lookup/api/responses"
	"github.com/angelmondragon/vehiclevault-lookup/internal/lookup"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/config"
	pkgerrors "github.com/angelmondragon/vehiclevault-lookup/pkg/errors"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/logger"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/metrics"
	"github.com/angelmondragon/vehiclevault-lookup/pkg/redis"
)

// Deps groups what the HTTP surface needs. RedisClient may be nil, in which
// case readiness skips Redis and lookups are not rate limited.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Lookup      lookup.Service
	RedisClient *redis.Client
	Gatherer    prometheus.Gatherer
	Metrics     *metrics.LookupMetrics
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Metrics(deps.Metrics),
	)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})

	// A nil *redis.Client must not leak into the interfaces below as a non-nil value.
	var (
		redisPinger redis.Pinger
		rateStore   middleware.RateLimitStore
	)
	if deps.RedisClient != nil {
		redisPinger = deps.RedisClient
		rateStore = deps.RedisClient
	}

	lookupPolicy := middleware.NewRateLimitPolicy(
		"lookup",
		cfg.RateLimit.LookupWindow,
		cfg.RateLimit.LookupIPLimit,
		cfg.RateLimit.LookupVRMLimit,
	)
	limited := middleware.RateLimit(lookupPolicy, rateStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisPinger))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.LegacyHealth())
		r.With(limited).Get("/dvla/{vrm}", controllers.VehicleLookup(deps.Lookup, logg))

		r.Route("/v1/vehicles/lookup", func(r chi.Router) {
			r.Use(limited)
			r.Get("/{vrm}", controllers.VehicleLookup(deps.Lookup, logg))
			r.Post("/", controllers.VehicleLookupByBody(deps.Lookup, logg))
		})
	})

	return r
}
