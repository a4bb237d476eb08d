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

// Package catalog is the process-accessible registry mapping a relation
// name to its RelationSchema and optional statistics. It is populated
// lazily on first reference during binding and is immutable per query,
// mirroring the teacher's sql.Catalog/DatabaseProvider split: a Catalog
// here is the read side only, filled in by whatever Connector resolves a
// name the first time a query references it.
package catalog

import (
	"sync"

	"github.com/morselq/morselq/schema"
)

// Statistics are optional, best-effort per-relation counters the physical
// planner may consult (row count estimate). Populated by a Connector, not
// required.
type Statistics struct {
	RowCount      int64
	ApproxRowSize int64
}

// Entry is one relation's catalog record.
type Entry struct {
	Name   string
	Schema schema.Schema
	Stats  *Statistics
}

// Resolver looks a relation up the first time the Catalogue is asked for
// it. It is what connects the Catalogue to the (out-of-scope) metastore
// and blob connectors: given a relation name it returns a schema, or
// errkind.DatasetNotFound.
type Resolver func(name string) (schema.Schema, *Statistics, error)

// Catalogue is process-wide and shared read-only across every concurrently
// executing query; the only mutation is the lazy, idempotent population of
// a new Entry.
type Catalogue struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	resolver Resolver
}

// New builds a Catalogue backed by resolver for relations not already
// registered.
func New(resolver Resolver) *Catalogue {
	return &Catalogue{entries: make(map[string]*Entry), resolver: resolver}
}

// Register seeds the Catalogue with a known relation (used for built-in
// relations like $planets and for Show* introspection relations).
func (c *Catalogue) Register(name string, sch schema.Schema, st *Statistics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &Entry{Name: name, Schema: sch, Stats: st}
}

// Entries returns every relation registered or resolved so far, for SHOW
// COLUMNS introspection. It does not trigger resolution of relations that
// haven't been referenced yet.
func (c *Catalogue) Entries() map[string]schema.Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]schema.Schema, len(c.entries))
	for name, e := range c.entries {
		out[name] = e.Schema
	}
	return out
}

// Lookup returns the relation's Entry, resolving it lazily via Resolver on
// first reference.
func (c *Catalogue) Lookup(name string) (*Entry, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return e, nil
	}

	if c.resolver == nil {
		return nil, nil
	}
	sch, st, err := c.resolver(name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[name]; ok {
		return e, nil
	}
	e = &Entry{Name: name, Schema: sch, Stats: st}
	c.entries[name] = e
	return e, nil
}
