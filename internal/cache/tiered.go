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

package cache

import (
	"context"
	"time"
)

// Tiered combines an in-process L1 with a shared L2.
// Get checks L1 first, then L2, backfilling L1 on an L2 hit.
// Set and Delete operate on both levels.
type Tiered struct {
	l1    Client
	l2    Client
	l1TTL time.Duration
}

// NewTiered creates a tiered cache. l1TTL bounds how long any entry lives
// in L1 so that a Delete issued on another instance is observed within it.
func NewTiered(l1, l2 Client, l1TTL time.Duration) *Tiered {
	return &Tiered{l1: l1, l2: l2, l1TTL: l1TTL}
}

// Get implements Client.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := t.l1.Get(ctx, key); ok {
		return val, true
	}
	val, ok := t.l2.Get(ctx, key)
	if !ok {
		return nil, false
	}
	t.l1.Set(ctx, key, val, t.l1TTL)
	return val, true
}

// Set implements Client. It reports the L2 result since L2 is the shared copy.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	l1TTL := t.l1TTL
	if ttl > 0 && (l1TTL <= 0 || ttl < l1TTL) {
		l1TTL = ttl
	}
	t.l1.Set(ctx, key, value, l1TTL)
	return t.l2.Set(ctx, key, value, ttl)
}

// Delete implements Client.
func (t *Tiered) Delete(ctx context.Context, key string) bool {
	t.l1.Delete(ctx, key)
	return t.l2.Delete(ctx, key)
}
