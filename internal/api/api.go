// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/sift/internal/config"
	"github.com/JaimeStill/sift/internal/infrastructure"
	"github.com/JaimeStill/sift/pkg/middleware"
	"github.com/JaimeStill/sift/pkg/module"
	"github.com/JaimeStill/sift/pkg/openapi"
)

// Module is the mounted API and the domain systems behind it.
type Module struct {
	*module.Module
	Domain *Domain
}

// NewModule creates the API module with all domain handlers and middleware.
// When metrics are enabled it also schedules the metric retention job.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, err
	}

	spec, err := openapi.MarshalJSON(NewSpec(cfg, runtime.Storage != nil))
	if err != nil {
		return nil, fmt.Errorf("openapi: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime, spec)

	if runtime.Scanner.Metrics() {
		domain.Store.Start(runtime.Lifecycle)
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.Logger(runtime.Logger))

	return &Module{Module: m, Domain: domain}, nil
}
