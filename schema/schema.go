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

// Package schema defines a relation's column list: the Identity each
// column is addressed by internally, and the query-facing name it is
// rendered as at Exit. Identities survive renames; query names don't.
package schema

import (
	"fmt"
	"sync/atomic"

	"github.com/morselq/morselq/types"
)

// Identity is an opaque, process-wide unique handle for a logical column.
// It is stable for the lifetime of a plan: Exit's rename to query columns
// keeps identities, and a Project keeps the identity of a column it passes
// through unaliased. A Project item that is aliased or computed gets a
// freshly minted identity.
type Identity string

var counter uint64

// NewIdentity mints a fresh identity. hint is folded in only for
// readability in rendered plans (EXPLAIN output); it plays no role in
// equality.
func NewIdentity(hint string) Identity {
	n := atomic.AddUint64(&counter, 1)
	if hint == "" {
		hint = "col"
	}
	return Identity(fmt.Sprintf("%s$%d", hint, n))
}

// Column is one entry in a Schema.
type Column struct {
	Identity    Identity
	QueryColumn string
	Type        types.Type
	Nullable    bool
}

// Schema is an ordered, named list of columns.
type Schema []Column

// Find returns the index of the column by identity, or -1.
func (s Schema) Find(id Identity) int {
	for i, c := range s {
		if c.Identity == id {
			return i
		}
	}
	return -1
}

// FindByQueryColumn returns every index whose QueryColumn matches name
// (case-sensitive); callers use the length to detect ambiguity.
func (s Schema) FindByQueryColumn(name string) []int {
	var out []int
	for i, c := range s {
		if c.QueryColumn == name {
			out = append(out, i)
		}
	}
	return out
}

// Identities returns the schema's identities in order.
func (s Schema) Identities() []Identity {
	out := make([]Identity, len(s))
	for i, c := range s {
		out[i] = c.Identity
	}
	return out
}

// UniqueQueryColumns reports whether every QueryColumn in s is distinct,
// the invariant Exit must hold before emitting user-visible batches.
func (s Schema) UniqueQueryColumns() (ok bool, duplicate string) {
	seen := make(map[string]struct{}, len(s))
	for _, c := range s {
		if _, dup := seen[c.QueryColumn]; dup {
			return false, c.QueryColumn
		}
		seen[c.QueryColumn] = struct{}{}
	}
	return true, ""
}

// Project returns the sub-schema containing only the given identities, in
// the order requested.
func (s Schema) Project(ids []Identity) Schema {
	out := make(Schema, 0, len(ids))
	for _, id := range ids {
		if i := s.Find(id); i >= 0 {
			out = append(out, s[i])
		}
	}
	return out
}

// Append returns a new schema with extra columns appended.
func (s Schema) Append(cols ...Column) Schema {
	out := make(Schema, 0, len(s)+len(cols))
	out = append(out, s...)
	out = append(out, cols...)
	return out
}
