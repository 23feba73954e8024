package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates host header to subdomain mapping under the configured root domain.
// Scope: Unit Test
// Security: Tenant isolation (foreign domains never map to a tenant)
// Expected: sub.root yields sub; root, www.root and foreign hosts yield none.
// Test Case ID: HOST-01
func TestHostParser_Subdomain(t *testing.T) {
	p := NewHostParser("finestafrica.ai")

	tests := []struct {
		host string
		want string
		ok   bool
	}{
		{"wanderlust.finestafrica.ai", "wanderlust", true},
		{"Wanderlust.FinestAfrica.AI", "wanderlust", true},
		{"wanderlust.finestafrica.ai:8443", "wanderlust", true},
		{"  wanderlust.finestafrica.ai  ", "wanderlust", true},
		{"wanderlust.finestafrica.ai.", "wanderlust", true},
		{"finestafrica.ai", "", false},
		{"finestafrica.ai:443", "", false},
		{"www.finestafrica.ai", "", false},
		{"wanderlust.example.com", "", false},
		{"finestafrica.ai.evil.com", "", false},
		{"wanderlust.notfinestafrica.ai", "", false},
		{"localhost", "", false},
		{"localhost:3000", "", false},
		{"wanderlust.localhost", "wanderlust", true},
		{"wanderlust.localhost:3000", "wanderlust", true},
		{"www.localhost", "", false},
		{"", "", false},
		{"127.0.0.1:8080", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, ok := p.Subdomain(tt.host)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHostParser_MultiLabelRoot(t *testing.T) {
	p := NewHostParser("agencies.example.co.za")

	sub, ok := p.Subdomain("safari.agencies.example.co.za")
	assert.True(t, ok)
	assert.Equal(t, "safari", sub)

	_, ok = p.Subdomain("example.co.za")
	assert.False(t, ok)
	_, ok = p.Subdomain("safari.other.example.co.za")
	assert.False(t, ok)
}

func TestHostParser_ZeroValue(t *testing.T) {
	p := HostParser{RootDomain: "finestafrica.ai"}
	sub, ok := p.Subdomain("wanderlust.finestafrica.ai")
	assert.True(t, ok)
	assert.Equal(t, "wanderlust", sub)
}
