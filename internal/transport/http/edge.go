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
	"log/slog"
	"net/http"
	"strings"

	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

// AgencyPrefix is the path namespace that tenant-scoped routes live under.
const AgencyPrefix = "/agency/"

// Response headers attached to every rewritten request.
const (
	HeaderAgencyID        = "X-Agency-Id"
	HeaderAgencySubdomain = "X-Agency-Subdomain"
	HeaderAgencyName      = "X-Agency-Name"
)

// bypassPrefixes are served without tenant resolution.
var bypassPrefixes = []string{
	"/api/",
	"/_next/",
	"/static/",
	"/assets/",
	"/health/",
	AgencyPrefix,
}

// bypassPaths are matched exactly so tenant pages such as /healthy-escapes
// still resolve.
var bypassPaths = map[string]struct{}{
	"/health":      {},
	"/favicon.ico": {},
	"/robots.txt":  {},
	"/sitemap.xml": {},
}

// TenantResolver maps a subdomain to its agency.
type TenantResolver interface {
	Resolve(ctx context.Context, subdomain string) (*tenant.Tenant, error)
}

func isBypassed(path string) bool {
	if _, ok := bypassPaths[path]; ok {
		return true
	}
	for _, prefix := range bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// EdgeMiddleware maps the request host to an agency and rewrites the path
// into that agency's namespace. Hosts without a subdomain pass through.
// A subdomain that does not resolve, whether unknown or because the store
// failed, ends the request with a 404.
func EdgeMiddleware(resolver TenantResolver, parser tenant.HostParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isBypassed(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			subdomain, ok := parser.Subdomain(r.Host)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			agency, err := resolver.Resolve(r.Context(), subdomain)
			if err != nil {
				slog.InfoContext(r.Context(), "agency not resolved",
					logger.Subdomain(subdomain),
					logger.Host(r.Host),
					logger.Error(err),
				)
				respondJSON(w, http.StatusNotFound, map[string]string{
					"error":     "agency_not_found",
					"message":   "No agency is registered for this address",
					"subdomain": subdomain,
					"hostname":  r.Host,
				})
				return
			}

			prefix := AgencyPrefix + agency.Subdomain
			r2 := r.Clone(withAgency(r.Context(), agency))
			r2 = r2.WithContext(context.WithValue(r2.Context(), originalPathKey, r.URL.Path))
			r2.URL.Path = prefix + r.URL.Path
			if r.URL.RawPath != "" {
				r2.URL.RawPath = prefix + r.URL.RawPath
			}

			w.Header().Set(HeaderAgencyID, agency.ID)
			w.Header().Set(HeaderAgencySubdomain, agency.Subdomain)
			w.Header().Set(HeaderAgencyName, agency.Name)

			next.ServeHTTP(w, r2)
		})
	}
}
