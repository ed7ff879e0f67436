package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/JaimeStill/sift/internal/api"
	"github.com/JaimeStill/sift/internal/config"
	"github.com/JaimeStill/sift/internal/infrastructure"
	"github.com/JaimeStill/sift/pkg/admission"
	"github.com/JaimeStill/sift/pkg/module"
)

const healthPingTimeout = 3 * time.Second

type Modules struct {
	API *api.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API.Module)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status    string          `json:"status"`
	Database  string          `json:"database"`
	App       string          `json:"app"`
	Version   string          `json:"version"`
	Admission admission.Stats `json:"admission"`
}

func healthHandler(db pinger, stats func() admission.Stats, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:    "healthy",
			Database:  "connected",
			App:       "sift",
			Version:   version,
			Admission: stats(),
		}
		status := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Database = "disconnected"
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}

func buildRouter(infra *infrastructure.Infrastructure, modules *Modules, version string) *module.Router {
	router := module.NewRouter()

	domain := modules.API.Domain
	router.HandleNative("GET /health", healthHandler(domain.Store, domain.Pipeline.Stats, version))

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	return router
}
