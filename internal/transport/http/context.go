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

	"github.com/finestafrica/agencyedge/internal/session"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

type contextKey string

const (
	agencyKey       contextKey = "agency"
	principalKey    contextKey = "principal"
	originalPathKey contextKey = "original_path"
)

func withAgency(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, agencyKey, t)
}

// GetAgency retrieves the resolved agency from context.
func GetAgency(ctx context.Context) *tenant.Tenant {
	if val, ok := ctx.Value(agencyKey).(*tenant.Tenant); ok {
		return val
	}
	return nil
}

// GetTenantID retrieves the resolved agency ID from context.
func GetTenantID(ctx context.Context) string {
	if t := GetAgency(ctx); t != nil {
		return t.ID
	}
	return ""
}

func withPrincipal(ctx context.Context, p *session.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the authenticated principal from context.
func GetPrincipal(ctx context.Context) *session.Principal {
	if val, ok := ctx.Value(principalKey).(*session.Principal); ok {
		return val
	}
	return nil
}

// GetUserID retrieves the authenticated User ID from context.
func GetUserID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.UserID
	}
	return ""
}

// originalPath is the request path as the client sent it, before the edge
// rewrite. Empty when the request was not rewritten.
func originalPath(ctx context.Context) string {
	if val, ok := ctx.Value(originalPathKey).(string); ok {
		return val
	}
	return ""
}
