// Copyright 2020-2021 Dolthub, Inc.
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

package connector

import (
	"context"

	"github.com/morselq/morselq/cache"
	"github.com/morselq/morselq/stats"
)

// readThrough is the cache hook every blob read funnels through (spec.md
// §6's Cache contract): key = blob path, value = raw bytes. A nil cache
// degrades to a plain fetch. Hits and misses are counted against the
// query whose statistics ride on ctx; a cache backend failure is treated
// as a miss rather than failing the read.
func readThrough(ctx context.Context, c cache.Cache, key string, fetch func() ([]byte, error)) ([]byte, error) {
	if c == nil {
		return fetch()
	}
	if data, ok, err := c.Get(key); err == nil && ok {
		if s := stats.FromContext(ctx); s != nil {
			s.AddCacheHit()
		}
		return data, nil
	}
	if s := stats.FromContext(ctx); s != nil {
		s.AddCacheMiss()
	}
	data, err := fetch()
	if err != nil {
		return nil, err
	}
	_ = c.Put(key, data)
	return data, nil
}
