package server

import "net/http"

const (
	defaultFrameOptions       = "DENY"
	defaultReferrerPolicy     = "no-referrer"
	defaultContentTypeOptions = "nosniff"
)

// SecurityConfig controls hardening headers on API responses. Zero-valued
// fields fall back to safe defaults; the API serves no markup, so no content
// security policy is emitted.
type SecurityConfig struct {
	FrameOptions       string
	ReferrerPolicy     string
	ContentTypeOptions string
}

func (cfg SecurityConfig) withDefaults() SecurityConfig {
	if cfg.FrameOptions == "" {
		cfg.FrameOptions = defaultFrameOptions
	}
	if cfg.ReferrerPolicy == "" {
		cfg.ReferrerPolicy = defaultReferrerPolicy
	}
	if cfg.ContentTypeOptions == "" {
		cfg.ContentTypeOptions = defaultContentTypeOptions
	}
	return cfg
}

func securityHeadersMiddleware(cfg SecurityConfig, next http.Handler) http.Handler {
	effective := cfg.withDefaults()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", effective.FrameOptions)
		w.Header().Set("X-Content-Type-Options", effective.ContentTypeOptions)
		w.Header().Set("Referrer-Policy", effective.ReferrerPolicy)

		next.ServeHTTP(w, r)
	})
}
