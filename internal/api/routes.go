package api

import (
	"net/http"

	"github.com/JaimeStill/sift/pkg/openapi"
	"github.com/JaimeStill/sift/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
	spec []byte,
) {
	findingsHandler := domain.Findings.Handler()

	groups := []routes.Group{
		domain.Pipeline.Handler(runtime.MaxUploadSize).Routes(),
		findingsHandler.Routes(),
		findingsHandler.DocumentRoutes(),
	}

	if runtime.Storage != nil {
		groups = append(groups, newStorageHandler(
			runtime.Storage,
			runtime.Logger,
			runtime.MaxListSize,
		).routes())
	}

	routes.Register(mux, groups...)
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))
}
