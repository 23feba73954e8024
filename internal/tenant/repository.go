package tenant

import (
	"context"
)

// Repository defines the interface for tenant storage.
// Subdomain lookups compare case-insensitively.
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
}
