package httpapi

import (
	"net/http"
	"strings"
)

// withReadiness is the first middleware in the chain (spec §4.5 step
// 1): everything except /healthz and /readyz is rejected while the
// gate is shut. /readyz must always reach handleReadyz so it can
// report its own {status, checks} body instead of the generic
// NOT_READY error shape.
func (s *Server) withReadiness(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
			next.ServeHTTP(w, r)
			return
		}
		if !s.readiness.IsOpen() {
			respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "service not ready", Code: "NOT_READY"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withCORS is step 2: preflight short-circuits with a bare 204; any
// other request from a disallowed explicit Origin is rejected before
// it reaches a handler.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := s.corsOrigins()

		if r.Method == http.MethodOptions {
			if origin != "" && len(allowed) > 0 && !containsOrigin(allowed, origin) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Language-Hint")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(allowed) > 0 && !containsOrigin(allowed, origin) {
			respondJSON(w, http.StatusForbidden, errorBody{Error: "origin not allowed", Code: "CORS_REJECTED"})
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		next.ServeHTTP(w, r)
	})
}

func containsOrigin(allowed []string, origin string) bool {
	for _, o := range allowed {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) corsOrigins() []string {
	return s.store.Get().Server.CorsOrigins
}

// withRateLimit is step 3, scoped only to the two routes spec §4.5
// names. The limit is re-read from the config store on every request
// so a settings update takes effect on the very next one.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := s.store.Get().Server.RateLimitPerMinute
		key := s.clientKey(r)
		allowed := s.limiter.Allow(key, limit)
		if s.metrics != nil {
			s.metrics.RateLimiterBuckets.Set(float64(s.limiter.BucketCount()))
		}
		if !allowed {
			if s.metrics != nil {
				s.metrics.RateLimiterReject.Inc()
			}
			respondJSON(w, http.StatusTooManyRequests, errorBody{Error: "Too many requests. Please wait.", Code: "RATE_LIMITED"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey extracts the bucket key. Per spec §10 Open Question 3,
// RemoteAddr is authoritative unless trustProxyHeaders is explicitly
// enabled at boot — the source intentionally leaves proxy-header
// trust to configuration rather than assuming one.
func (s *Server) clientKey(r *http.Request) string {
	if s.trustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if i := strings.IndexByte(xff, ','); i >= 0 {
				xff = xff[:i]
			}
			if host := strings.TrimSpace(xff); host != "" {
				return host
			}
		}
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}

// withMaxBody is step 4: caps the request body per route. limit is a
// closure rather than a fixed value so a settings update to
// maxAudioBytes takes effect on the very next request, matching the
// rate limiter's read-fresh-every-check policy.
func withMaxBody(limit func() int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit())
		next.ServeHTTP(w, r)
	})
}
