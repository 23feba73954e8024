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

package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/finestafrica/agencyedge/internal/tenant"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	s *Store
}

var _ tenant.Repository = (*TenantRepository)(nil)

func (r *TenantRepository) Create(_ context.Context, t *tenant.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tenants {
		if strings.EqualFold(existing.Subdomain, t.Subdomain) {
			return tenant.ErrSubdomainTaken
		}
	}
	cp := *t
	r.s.tenants[t.ID] = &cp
	return nil
}

func (r *TenantRepository) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TenantRepository) GetBySubdomain(_ context.Context, subdomain string) (*tenant.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t := r.s.tenantBySubdomain(subdomain)
	if t == nil {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TenantRepository) SubdomainExists(_ context.Context, subdomain string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.tenantBySubdomain(subdomain) != nil, nil
}

func (r *TenantRepository) List(_ context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	r.s.mu.RLock()
	all := make([]*tenant.Tenant, 0, len(r.s.tenants))
	for _, t := range r.s.tenants {
		cp := *t
		all = append(all, &cp)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []*tenant.Tenant{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// tenantBySubdomain expects the read lock to be held.
func (s *Store) tenantBySubdomain(subdomain string) *tenant.Tenant {
	for _, t := range s.tenants {
		if strings.EqualFold(t.Subdomain, subdomain) {
			return t
		}
	}
	return nil
}
