// Copyright 2026 The Agency Edge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/finestafrica/agencyedge/internal/audit"
	"github.com/finestafrica/agencyedge/internal/identity"
	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/passwordreset"
	"github.com/finestafrica/agencyedge/internal/session"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	directory     *tenant.Directory
	tenants       *tenant.Service
	users         *identity.Service
	sessions      *session.Service
	resets        *passwordreset.Service
	auditLogger   audit.Logger
	sessionConfig SessionConfig
	parser        tenant.HostParser
	healthCheck   func(context.Context) error
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
}

// Services bundles the domain services the handlers call.
type Services struct {
	Directory      *tenant.Directory
	Tenants        *tenant.Service
	Users          *identity.Service
	Sessions       *session.Service
	PasswordResets *passwordreset.Service
	Audit          audit.Logger
	HostParser     tenant.HostParser
	// HealthCheck probes backing stores for GET /health; nil always reports healthy.
	HealthCheck func(context.Context) error
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, sessionConfig SessionConfig) *Handler {
	if sessionConfig.CookieName == "" {
		sessionConfig.CookieName = "agency_session"
	}
	if sessionConfig.CookiePath == "" {
		sessionConfig.CookiePath = "/"
	}
	if svc.Audit == nil {
		svc.Audit = audit.NewSlogLogger(slog.Default())
	}
	return &Handler{
		directory:     svc.Directory,
		tenants:       svc.Tenants,
		users:         svc.Users,
		sessions:      svc.Sessions,
		resets:        svc.PasswordResets,
		auditLogger:   svc.Audit,
		sessionConfig: sessionConfig,
		parser:        svc.HostParser,
		healthCheck:   svc.HealthCheck,
	}
}

// RouterConfig holds edge and routing settings.
type RouterConfig struct {
	RateLimiter    *RateLimiter
	AdminAPIKey    string
	RequestTimeout time.Duration
	// Site serves the agency front-end bundle for unmatched routes; nil answers 404.
	Site http.Handler
}

// NewRouter creates a new HTTP router. The edge middleware runs before
// route matching so rewritten paths dispatch to the /agency/{subdomain} group.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(SecurityHeaders(h.sessionConfig.CookieSecure))
	r.Use(EdgeMiddleware(h.directory, h.parser))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	limited := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimiter != nil {
		limited = RateLimitMiddleware(cfg.RateLimiter)
	}

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/agencies/availability", h.CheckAvailability)

		r.Route("/admin/agencies", func(r chi.Router) {
			r.Use(AdminAuth(cfg.AdminAPIKey))
			r.Post("/", h.CreateAgency)
			r.Get("/", h.ListAgencies)
			r.Get("/{agencyID}", h.GetAgency)
			r.Post("/{agencyID}/users", h.ProvisionAgencyUser)
		})
	})

	r.Route("/agency/{subdomain}", func(r chi.Router) {
		r.Use(h.RequireAgency)

		r.Get("/", h.AgencyHome)
		r.Get("/login", h.LoginPage)
		r.Get("/reset-password", h.ResetPasswordPage)

		r.Route("/auth", func(r chi.Router) {
			r.Use(CSRFMiddleware)
			r.With(limited).Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.With(limited).Post("/forgot-password", h.ForgotPassword)
			r.Get("/reset-password/validate", h.ValidateResetToken)
			r.With(limited).Post("/reset-password", h.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Get("/me", h.GetCurrentUser)
				r.With(limited).Post("/change-password", h.ChangePassword)
			})
		})

		r.With(h.PageAuthMiddleware).Get("/dashboard", h.Dashboard)

		if cfg.Site != nil {
			r.Get("/*", cfg.Site.ServeHTTP)
		}
	})

	notFound := func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	}
	if cfg.Site != nil {
		notFound = cfg.Site.ServeHTTP
	}
	r.NotFound(notFound)

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.healthCheck != nil {
		if err := h.healthCheck(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "health check failed", logger.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "agencyedge",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "agencyedge",
	})
}

// Helper functions
func (h *Handler) setSessionCookie(w http.ResponseWriter, raw string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    raw,
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: h.sessionConfig.CookieHTTPOnly,
		SameSite: h.sessionConfig.CookieSameSite,
		MaxAge:   int(h.sessions.Lifetime().Seconds()),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    "",
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: h.sessionConfig.CookieHTTPOnly,
		SameSite: h.sessionConfig.CookieSameSite,
		MaxAge:   -1,
	})
}

func (h *Handler) getSessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(h.sessionConfig.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func clientMeta(r *http.Request) session.ClientMeta {
	return session.ClientMeta{
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// ParseSameSite maps a configured SameSite name to its cookie mode.
func ParseSameSite(v string) http.SameSite {
	switch v {
	case "Strict", "strict":
		return http.SameSiteStrictMode
	case "None", "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
