package authtest

import (
	"net/http"
	"net/textproto"
	"strings"
)

// Headers browsers may send with a login request.
var corsAllowHeaders = []string{"Content-Type", "X-Request-Id"}

// WithCORSOrigins lets a browser dashboard served from one of origins call the
// backend. Origins must match exactly.
func WithCORSOrigins(origins ...string) Option {
	return func(b *Backend) {
		b.cors = newCORS(origins)
	}
}

type cors struct {
	allowed   map[string]bool
	preflight map[string]string
}

func newCORS(origins []string) *cors {
	c := &cors{
		allowed: map[string]bool{},
		preflight: map[string]string{
			"Access-Control-Allow-Methods":     http.MethodPost,
			"Access-Control-Allow-Credentials": "true",
			"Access-Control-Max-Age":           "600",
		},
	}
	headers := make([]string, len(corsAllowHeaders))
	for i, h := range corsAllowHeaders {
		headers[i] = textproto.CanonicalMIMEHeaderKey(h)
	}
	c.preflight["Access-Control-Allow-Headers"] = strings.Join(headers, ", ")
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			c.allowed[o] = true
		}
	}
	return c
}

// wrap sets the static security headers on every response and answers CORS
// preflight requests without reaching next.
func (c *cors) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if c == nil || len(c.allowed) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		h.Add("Vary", "Origin")
		origin := r.Header.Get("Origin")
		if !c.allowed[origin] {
			next.ServeHTTP(w, r)
			return
		}
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			for k, v := range c.preflight {
				h.Set(k, v)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
