package middleware

import "net/http"

// Middleware wraps an http.Handler with one processing stage.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h so that the first listed stage runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
