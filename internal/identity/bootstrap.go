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

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/finestafrica/agencyedge/internal/observability/logger"
	"github.com/finestafrica/agencyedge/internal/tenant"
)

const (
	EnvBootstrapAgencySubdomain = "BOOTSTRAP_AGENCY_SUBDOMAIN"
	EnvBootstrapAgencyName      = "BOOTSTRAP_AGENCY_NAME"
	EnvBootstrapOwnerEmail      = "BOOTSTRAP_OWNER_EMAIL"
	EnvBootstrapOwnerName       = "BOOTSTRAP_OWNER_NAME"
	EnvBootstrapOwnerPassword   = "BOOTSTRAP_OWNER_PASSWORD"
)

// bootstrapActor is recorded as the actor of bootstrap-created records
const bootstrapActor = "system:bootstrap"

// BootstrapService seeds a first agency and its owner so that a fresh
// deployment can be logged into.
type BootstrapService struct {
	identityService *Service
	tenantService   *tenant.Service
	tenantRepo      tenant.Repository
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(identityService *Service, tenantService *tenant.Service, tenantRepo tenant.Repository) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		tenantService:   tenantService,
		tenantRepo:      tenantRepo,
	}
}

// Bootstrap reads the BOOTSTRAP_* environment and creates whatever is
// missing. It is a no-op when the variables are unset and is safe to run on
// every start.
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	subdomain := tenant.NormalizeSubdomain(os.Getenv(EnvBootstrapAgencySubdomain))
	email := os.Getenv(EnvBootstrapOwnerEmail)
	password := os.Getenv(EnvBootstrapOwnerPassword)
	if subdomain == "" || email == "" || password == "" {
		return nil
	}

	agency, err := s.tenantRepo.GetBySubdomain(ctx, subdomain)
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		name := os.Getenv(EnvBootstrapAgencyName)
		if name == "" {
			name = subdomain
		}
		agency, err = s.tenantService.CreateTenant(ctx, bootstrapActor, tenant.CreateTenantInput{
			Name:         name,
			Subdomain:    subdomain,
			ContactEmail: email,
		})
		if err != nil {
			return fmt.Errorf("failed to bootstrap agency %s: %w", subdomain, err)
		}
		slog.InfoContext(ctx, "bootstrapped agency", logger.Subdomain(subdomain), logger.TenantID(agency.ID))
	case err != nil:
		return fmt.Errorf("failed to look up bootstrap agency: %w", err)
	}

	if _, err := s.identityService.GetByEmail(ctx, agency.ID, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to look up bootstrap owner: %w", err)
	}

	owner, err := s.identityService.CreateUser(ctx, agency.ID, email, os.Getenv(EnvBootstrapOwnerName), password)
	if err != nil {
		return fmt.Errorf("failed to bootstrap owner for %s: %w", subdomain, err)
	}

	slog.InfoContext(ctx, "bootstrapped agency owner",
		logger.Subdomain(subdomain),
		logger.UserID(owner.ID),
	)
	return nil
}
