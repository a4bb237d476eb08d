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

// Package cache is the read-through blob cache contract consumed by
// connectors (spec.md §6): key = blob path, value = raw bytes. Eviction
// is each backend's own concern. Backends must be safe for concurrent
// use; the cache is shared across queries while everything else in the
// engine is per-query.
package cache

import (
	"strings"

	"github.com/pkg/errors"
)

// Cache is the read-through store a Connector consults before touching
// remote storage. Get returns (nil, false, nil) on a miss rather than an
// error; an error return means the backend itself failed.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Contains(key string) (bool, error)
	Close() error
}

// New opens a Cache by backend name, mirroring the factory-selected KV
// store design the engine's pluggable cache layer follows. Recognised
// backends: "memory", "bbolt", "badger". path is ignored by "memory".
func New(backend, path string) (Cache, error) {
	switch strings.ToLower(backend) {
	case "memory":
		return NewMemoryCache(), nil
	case "bbolt":
		return NewBoltCache(path)
	case "badger":
		return NewBadgerCache(path)
	default:
		return nil, errors.Errorf("unknown cache backend %q", backend)
	}
}
