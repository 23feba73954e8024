package tenant

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrSubdomainTaken   = errors.New("subdomain already taken")
	ErrInvalidSubdomain = errors.New("invalid subdomain")
	ErrInvalidTenant    = errors.New("invalid tenant")
)

// Tenant represents one travel agency served under its own subdomain.
// Its JSON form is also the cache wire format.
type Tenant struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Subdomain      string    `json:"subdomain"`
	ContactEmail   string    `json:"contact_email"`
	LogoURL        *string   `json:"logo_url,omitempty"`
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor string    `json:"secondary_color"`
	CreatedAt      time.Time `json:"created_at"`
}

// Default branding applied when an agency is created without colors.
const (
	DefaultPrimaryColor   = "#1E3A8A"
	DefaultSecondaryColor = "#F59E0B"
)

// NormalizeSubdomain lowercases and trims a subdomain slug.
func NormalizeSubdomain(subdomain string) string {
	return strings.ToLower(strings.TrimSpace(subdomain))
}

// CacheKey returns the cache key under which a tenant is stored.
func CacheKey(subdomain string) string {
	return "tenant:" + NormalizeSubdomain(subdomain)
}
