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

package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/finestafrica/agencyedge/internal/audit"
	"github.com/finestafrica/agencyedge/internal/id"
)

var (
	subdomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,61}[a-z0-9])?$`)
	colorPattern     = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// reservedSubdomains cannot be claimed by an agency.
var reservedSubdomains = map[string]struct{}{
	"www":    {},
	"api":    {},
	"admin":  {},
	"app":    {},
	"agency": {},
	"mail":   {},
	"static": {},
}

// CreateTenantInput carries the fields an administrator supplies for a new agency.
type CreateTenantInput struct {
	Name           string  `json:"name"`
	Subdomain      string  `json:"subdomain"`
	ContactEmail   string  `json:"contact_email"`
	LogoURL        *string `json:"logo_url,omitempty"`
	PrimaryColor   string  `json:"primary_color,omitempty"`
	SecondaryColor string  `json:"secondary_color,omitempty"`
}

// Service provides tenant management business logic
type Service struct {
	repo        Repository
	directory   *Directory
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, directory *Directory, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		directory:   directory,
		auditLogger: auditLogger,
	}
}

// ValidateSubdomain checks that subdomain is a well-formed, non-reserved slug.
func ValidateSubdomain(subdomain string) error {
	if !subdomainPattern.MatchString(subdomain) {
		return fmt.Errorf("%w: use lowercase letters, digits and inner hyphens", ErrInvalidSubdomain)
	}
	if _, reserved := reservedSubdomains[subdomain]; reserved {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidSubdomain, subdomain)
	}
	return nil
}

// CreateTenant creates a new agency. The subdomain is checked against the
// store before insert; a concurrent insert that wins the race surfaces as
// ErrSubdomainTaken from the unique index.
func (s *Service) CreateTenant(ctx context.Context, actorID string, in CreateTenantInput) (*Tenant, error) {
	subdomain := NormalizeSubdomain(in.Subdomain)
	if err := ValidateSubdomain(subdomain); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTenant)
	}
	email := strings.ToLower(strings.TrimSpace(in.ContactEmail))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid contact email", ErrInvalidTenant)
	}
	primary, secondary := in.PrimaryColor, in.SecondaryColor
	if primary == "" {
		primary = DefaultPrimaryColor
	}
	if secondary == "" {
		secondary = DefaultSecondaryColor
	}
	if !colorPattern.MatchString(primary) || !colorPattern.MatchString(secondary) {
		return nil, fmt.Errorf("%w: colors must be #RRGGBB", ErrInvalidTenant)
	}

	available, err := s.directory.CheckAvailability(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrSubdomainTaken
	}

	t := &Tenant{
		ID:             id.NewUUIDv7(),
		Name:           name,
		Subdomain:      subdomain,
		ContactEmail:   email,
		LogoURL:        in.LogoURL,
		PrimaryColor:   primary,
		SecondaryColor: secondary,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, ErrSubdomainTaken) {
			return nil, ErrSubdomainTaken
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.directory.Remember(ctx, t)

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		ActorID:  actorID,
		Resource: t.Subdomain,
		Metadata: map[string]any{"name": t.Name},
	})

	return t, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// ListTenants lists tenants with pagination
func (s *Service) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}
