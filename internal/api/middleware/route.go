package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routeInfo reads the matched route pattern and session ID. chi fills the
// route context while routing, so it is only complete after next has run.
func routeInfo(r *http.Request) (pattern, sessionID string) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "", ""
	}
	return rctx.RoutePattern(), rctx.URLParam("id")
}
