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

// Package cache provides the best-effort key/value cache that fronts the
// tenant directory. Every operation is fail-soft: backend errors are logged
// and reported as a miss or a false result, never returned.
package cache

import (
	"context"
	"time"
)

// Client is a best-effort byte cache.
type Client interface {
	// Get returns the cached value and true, or nil and false on a miss or backend failure.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for ttl and reports whether the write succeeded.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	// Delete removes key and reports whether the backend acknowledged it.
	Delete(ctx context.Context, key string) bool
}

// Noop is a Client that never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool)             { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration) bool { return false }
func (Noop) Delete(context.Context, string) bool                     { return false }
