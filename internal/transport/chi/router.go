// Package chi serves the Census tools over REST.
package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/metrics"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	APIKeys []string
	// Mounts are extra handlers served behind the same middleware, e.g. the MCP endpoint.
	Mounts map[string]http.Handler
}

// NewRouter assembles the middleware stack and registers the REST routes.
func NewRouter(server ServerInterface, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(metrics.Middleware())

	for pattern, h := range cfg.Mounts {
		r.Handle(pattern, h)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	return HandlerWithOptions(server, ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: InvalidParamHandler,
	})
}
