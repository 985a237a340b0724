// Package gatewayhttp implements the HTTP Gateway (C11): the external
// surface described in spec.md §6, plus the supplementary resume-index,
// session-lookup and ASR-streaming endpoints SPEC_FULL.md adds. Grounded
// on internal/gateway/server (h2c server, CORS middleware) and
// internal/gateway/handler/rpc/user_interaction.go (the WebSocket
// keepalive pattern).
package gatewayhttp

import (
	"net/http"
	"strings"
)

// CORS mirrors the teacher's permissive-origin-echo middleware.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
