package app

import (
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/metinatakli/cinex-booking/api"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	swagger, err := api.GetSwagger()
	if err != nil {
		panic(err)
	}

	// Paths are matched regardless of the host the server is reached on.
	swagger.Servers = nil

	router, err := legacy.NewRouter(swagger)
	if err != nil {
		panic(fmt.Errorf("failed to build openapi router: %w", err))
	}

	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(app.recoverPanic)
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(app.metrics.middleware)
	r.Use(app.sessionManager.LoadAndSave)
	r.Use(app.ensureGuestSession)

	r.Get("/openapi.json", app.openAPIDocument(swagger))
	r.Method(http.MethodGet, "/metrics", app.metrics.handler())

	r.Group(func(r chi.Router) {
		r.Use(app.validateRequest(router))

		api.HandlerWithOptions(app, api.ChiServerOptions{
			BaseRouter:       r,
			ErrorHandlerFunc: app.badRequestResponse,
		})
	})

	return r
}

func (app *Application) openAPIDocument(swagger *openapi3.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := app.writeJSON(w, http.StatusOK, swagger, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
	}
}
