package api

import (
	"net/http"
	"slices"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/timemachine/pkg/observability"
)

const (
	headerRequestID = "X-Request-ID"
	maxRequestIDLen = 128
)

// withRequestID assigns every request an id, reusing a sane incoming
// X-Request-ID, and echoes it in the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		id := hr.Header.Get(headerRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		rw.Header().Set(headerRequestID, id)

		ctx := observability.ContextWithRequestID(hr.Context(), id)
		next.ServeHTTP(rw, hr.WithContext(ctx))
	})
}

// withCORS answers preflight requests and sets CORS headers for allowed
// origins. An empty list or "*" allows any origin.
func withCORS(origins []string, next http.Handler) http.Handler {
	anyOrigin := len(origins) == 0 || slices.Contains(origins, "*")

	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		origin := hr.Header.Get("Origin")

		switch {
		case anyOrigin:
			rw.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			rw.Header().Set("Access-Control-Allow-Origin", origin)
			rw.Header().Add("Vary", "Origin")
		}

		if hr.Method == http.MethodOptions && hr.Header.Get("Access-Control-Request-Method") != "" {
			rw.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

			allowHeaders := hr.Header.Get("Access-Control-Request-Headers")
			if allowHeaders == "" {
				allowHeaders = "*"
			}

			rw.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			rw.WriteHeader(http.StatusNoContent)

			return
		}

		next.ServeHTTP(rw, hr)
	})
}
