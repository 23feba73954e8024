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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance backed by the global meter provider.
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{meter: otel.Meter("noop")}, nil
	}
	return &Meter{meter: otel.Meter(serviceName)}, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// Instruments groups the counters recorded along the request path.
// A nil *Instruments is valid and records nothing.
type Instruments struct {
	cacheLookups       metric.Int64Counter
	tenantResolutions  metric.Int64Counter
	sessionValidations metric.Int64Counter
	resolveLatency     metric.Float64Histogram
}

// NewInstruments registers the edge instruments on m.
func NewInstruments(m *Meter) (*Instruments, error) {
	cacheLookups, err := m.CreateCounter("agencyedge.cache.lookups", "Tenant cache lookups by result")
	if err != nil {
		return nil, err
	}
	tenantResolutions, err := m.CreateCounter("agencyedge.tenant.resolutions", "Tenant resolutions by outcome")
	if err != nil {
		return nil, err
	}
	sessionValidations, err := m.CreateCounter("agencyedge.session.validations", "Session validations by outcome")
	if err != nil {
		return nil, err
	}
	resolveLatency, err := m.CreateHistogram("agencyedge.tenant.resolve_duration", "Tenant resolution latency", "ms")
	if err != nil {
		return nil, err
	}
	return &Instruments{
		cacheLookups:       cacheLookups,
		tenantResolutions:  tenantResolutions,
		sessionValidations: sessionValidations,
		resolveLatency:     resolveLatency,
	}, nil
}

// CacheLookup records a cache hit or miss.
func (i *Instruments) CacheLookup(ctx context.Context, hit bool) {
	if i == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	i.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// TenantResolved records the outcome of a tenant resolution and how long it took.
func (i *Instruments) TenantResolved(ctx context.Context, outcome string, ms float64) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	i.tenantResolutions.Add(ctx, 1, attrs)
	i.resolveLatency.Record(ctx, ms, attrs)
}

// SessionValidated records the outcome of a session validation.
func (i *Instruments) SessionValidated(ctx context.Context, outcome string) {
	if i == nil {
		return
	}
	i.sessionValidations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
