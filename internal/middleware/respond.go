package middleware

import (
	"encoding/json"
	"net/http"
)

// Denial codes surfaced in response bodies; each policy failure stays
// distinguishable on the wire.
const (
	CodeIPBlocked         = "ip_blocked"
	CodeAuthnFailed       = "authentication_failed"
	CodeAuthzDenied       = "authorization_denied"
	CodeRateLimitExceeded = "rate_limit_exceeded"
)

type denialBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeDenial(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(denialBody{Error: code, Message: message})
}

// responseWriterInterceptor captures the status code for audit and metrics.
type responseWriterInterceptor struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriterInterceptor) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
