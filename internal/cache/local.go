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
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Local is an in-process Client backed by ristretto.
type Local struct {
	c *ristretto.Cache[string, []byte]
}

// NewLocal creates a local cache holding at most maxCostBytes of values.
func NewLocal(maxCostBytes int64) (*Local, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 8 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}
	return &Local{c: c}, nil
}

// Get implements Client.
func (l *Local) Get(_ context.Context, key string) ([]byte, bool) {
	return l.c.Get(key)
}

// Set implements Client. Ristretto admits writes asynchronously and may drop them.
func (l *Local) Set(_ context.Context, key string, value []byte, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0
	}
	return l.c.SetWithTTL(key, value, int64(len(value)), ttl)
}

// Delete implements Client.
func (l *Local) Delete(_ context.Context, key string) bool {
	l.c.Del(key)
	return true
}

// Wait blocks until buffered writes have been applied.
func (l *Local) Wait() {
	l.c.Wait()
}

// Close stops the cache's background goroutines.
func (l *Local) Close() {
	l.c.Close()
}
