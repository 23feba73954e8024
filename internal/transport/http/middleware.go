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
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/session"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

// Tenant isolation rules:
// 1. The agency comes from the host (edge) or the /agency/{subdomain} path, never from a header
// 2. A host agency and a path agency that disagree is a 404
// 3. A session is honored only on the agency its user belongs to

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Host(r.Host),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// SecurityHeaders sets the fixed security headers on every response.
func SecurityHeaders(hsts bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAgency binds the {subdomain} URL parameter to an agency. A request
// rewritten by the edge already carries its agency; direct /agency/ access
// resolves the parameter itself.
func (h *Handler) RequireAgency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subdomain := tenant.NormalizeSubdomain(chi.URLParam(r, "subdomain"))

		// a tenant host may only reach its own namespace
		if hostSub, ok := h.parser.Subdomain(r.Host); ok && hostSub != subdomain {
			h.agencyNotFound(w, r, subdomain)
			return
		}

		if agency := GetAgency(r.Context()); agency != nil {
			if agency.Subdomain != subdomain {
				h.agencyNotFound(w, r, subdomain)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		agency, err := h.directory.Resolve(r.Context(), subdomain)
		if err != nil {
			if !errors.Is(err, tenant.ErrTenantNotFound) {
				slog.ErrorContext(r.Context(), "agency lookup failed", logger.Subdomain(subdomain), logger.Error(err))
			}
			h.agencyNotFound(w, r, subdomain)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAgency(r.Context(), agency)))
	})
}

func (h *Handler) agencyNotFound(w http.ResponseWriter, r *http.Request, subdomain string) {
	respondJSON(w, http.StatusNotFound, map[string]string{
		"error":     "agency_not_found",
		"message":   "No agency is registered for this address",
		"subdomain": subdomain,
		"hostname":  r.Host,
	})
}

// AuthMiddleware validates the session cookie against the current agency
// and adds the principal to context. API callers get a 401.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return h.requireSession(next, false)
}

// PageAuthMiddleware is AuthMiddleware for page routes: unauthenticated
// visitors are redirected to the agency login page.
func (h *Handler) PageAuthMiddleware(next http.Handler) http.Handler {
	return h.requireSession(next, true)
}

func (h *Handler) requireSession(next http.Handler, redirect bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agency := GetAgency(r.Context())
		raw := h.getSessionFromCookie(r)

		var principal *session.Principal
		if raw != "" && agency != nil {
			p, err := h.sessions.Validate(r.Context(), raw)
			switch {
			case err != nil:
				h.clearSessionCookie(w)
			case p.TenantID != agency.ID:
				slog.WarnContext(r.Context(), "session presented to foreign agency",
					logger.UserID(p.UserID),
					logger.TenantID(agency.ID),
				)
			default:
				principal = p
			}
		}

		if principal == nil {
			if redirect {
				http.Redirect(w, r, loginURL(r, agency), http.StatusFound)
				return
			}
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// loginURL points at the agency login page in the address space the client
// used: host-relative behind the edge, /agency/<sub>/login otherwise.
func loginURL(r *http.Request, agency *tenant.Tenant) string {
	back := originalPath(r.Context())
	login := "/login"
	if back == "" {
		back = r.URL.Path
		if agency != nil {
			login = AgencyPrefix + agency.Subdomain + "/login"
		}
	}
	return login + "?" + url.Values{"next": {back}}.Encode()
}

// AdminAuth guards the administrative API with a static bearer key. An
// empty key disables the API.
func AdminAuth(apiKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				respondError(w, http.StatusNotFound, "not found")
				return
			}
			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
				respondError(w, http.StatusUnauthorized, "invalid admin credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFHeader must accompany every state-changing request to the agency auth
// endpoints. Browsers do not attach custom headers to cross-site form posts,
// and agency subdomains are same-site with each other.
const CSRFHeader = "X-CSRF-Token"

// CSRFMiddleware rejects state-changing requests that lack the CSRF header.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get(CSRFHeader) == "" {
			slog.WarnContext(r.Context(), "missing CSRF token header",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			respondError(w, http.StatusForbidden, "X-CSRF-Token header is required for state-changing requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
