package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/caresync-health/platform/pkg/common/httpx"
	"github.com/caresync-health/platform/pkg/gateway/auth"
	"github.com/caresync-health/platform/pkg/gateway/middleware"
	"github.com/gorilla/mux"
)

// ReadinessCheck reports whether a backing dependency is usable.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type RouterConfig struct {
	Tokens         *auth.JWTManager
	Devices        *DeviceHandler
	Patients       *PatientHandler
	Readiness      []ReadinessCheck
	Metrics        http.Handler
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int
}

// NewRouter mounts the public probes and the authenticated API.
func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", readyHandler(cfg.Readiness)).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	api := router.NewRoute().Subrouter()
	api.Use(middleware.Authenticate(cfg.Tokens))
	if cfg.MaxRequestBody > 0 {
		api.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	}
	RegisterDeviceRoutes(api, cfg.Devices)
	RegisterPatientRoutes(api, cfg.Patients)

	return router
}

func readyHandler(checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				failed[c.Name] = err.Error()
			}
		}
		if len(failed) > 0 {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "failed": failed})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
