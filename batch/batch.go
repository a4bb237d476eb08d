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

// Package batch is the columnar Morsel abstraction that flows between
// operators. Nothing in the pack or teacher corpus gives Go a columnar
// array library the way pyarrow does for the Python original (go-mysql-server
// itself is row-oriented, built around sql.Row/sql.RowIter, not a columnar
// array type) — so Batch is a small hand-built columnar container in the
// same spirit as go-mysql-server defining its own Row/RowIter rather than
// importing one. See DESIGN.md for the considered-and-rejected alternative.
package batch

import (
	"github.com/morselq/morselq/schema"
)

// Column is a single typed array: one cell per row, aligned across every
// column in a Batch. A nil interface{} cell is NULL regardless of the
// column's declared type.
type Column struct {
	Identity schema.Identity
	Values   []interface{}
}

// Batch is an immutable, ordered set of equal-length named columns. Once
// built it is never mutated in place; operators build new batches.
type Batch struct {
	Schema  schema.Schema
	columns map[schema.Identity][]interface{}
	numRows int
}

// New builds a Batch from parallel schema/column-values slices. All value
// slices must have equal length; that length becomes NumRows.
func New(sch schema.Schema, cols []Column) *Batch {
	m := make(map[schema.Identity][]interface{}, len(cols))
	n := 0
	for _, c := range cols {
		m[c.Identity] = c.Values
		if len(c.Values) > n {
			n = len(c.Values)
		}
	}
	return &Batch{Schema: sch, columns: m, numRows: n}
}

// Empty builds a zero-row batch with the given schema, used to signal "no
// rows" without signalling "no schema" (Projection(identity list) on an
// empty input must still carry the projected schema).
func Empty(sch schema.Schema) *Batch {
	cols := make([]Column, len(sch))
	for i, c := range sch {
		cols[i] = Column{Identity: c.Identity, Values: nil}
	}
	return New(sch, cols)
}

func (b *Batch) NumRows() int { return b.numRows }

func (b *Batch) NumColumns() int { return len(b.Schema) }

// Column returns the raw value slice for an identity, or nil if absent.
func (b *Batch) Column(id schema.Identity) []interface{} {
	return b.columns[id]
}

// Row materialises row i as a map from identity to value; used by
// row-at-a-time consumers (joins, distinct) where random access beats
// re-slicing columns.
func (b *Batch) Row(i int) map[schema.Identity]interface{} {
	out := make(map[schema.Identity]interface{}, len(b.Schema))
	for _, c := range b.Schema {
		vals := b.columns[c.Identity]
		if i < len(vals) {
			out[c.Identity] = vals[i]
		} else {
			out[c.Identity] = nil
		}
	}
	return out
}

// Select projects the batch down to the given identities, in order. Unlike
// the original's pyarrow .select, a duplicate identity is kept only once.
func (b *Batch) Select(ids []schema.Identity) *Batch {
	cols := make([]Column, 0, len(ids))
	sch := make(schema.Schema, 0, len(ids))
	seen := make(map[schema.Identity]bool, len(ids))
	for _, id := range ids {
		i := b.Schema.Find(id)
		if i < 0 || seen[id] {
			continue
		}
		seen[id] = true
		sch = append(sch, b.Schema[i])
		cols = append(cols, Column{Identity: id, Values: b.columns[id]})
	}
	return New(sch, cols)
}

// WithColumn returns a new batch with an additional (or replaced) column
// appended to the schema.
func (b *Batch) WithColumn(col schema.Column, values []interface{}) *Batch {
	sch := make(schema.Schema, 0, len(b.Schema)+1)
	cols := make([]Column, 0, len(b.Schema)+1)
	for _, c := range b.Schema {
		if c.Identity == col.Identity {
			continue
		}
		sch = append(sch, c)
		cols = append(cols, Column{Identity: c.Identity, Values: b.columns[c.Identity]})
	}
	sch = append(sch, col)
	cols = append(cols, Column{Identity: col.Identity, Values: values})
	return New(sch, cols)
}

// RenameTo returns a new batch whose schema's QueryColumn names are
// replaced, in order, by names. It is the Exit operator's final step.
func (b *Batch) RenameTo(names []string) *Batch {
	sch := make(schema.Schema, len(b.Schema))
	copy(sch, b.Schema)
	for i := range sch {
		if i < len(names) {
			sch[i].QueryColumn = names[i]
		}
	}
	cols := make([]Column, len(sch))
	for i, c := range sch {
		cols[i] = Column{Identity: c.Identity, Values: b.columns[b.Schema[i].Identity]}
	}
	return New(sch, cols)
}

// Filter returns a new batch containing only the rows where mask is true.
func (b *Batch) Filter(mask []bool) *Batch {
	cols := make([]Column, len(b.Schema))
	for i, c := range b.Schema {
		src := b.columns[c.Identity]
		dst := make([]interface{}, 0, len(src))
		for r, keep := range mask {
			if keep && r < len(src) {
				dst = append(dst, src[r])
			}
		}
		cols[i] = Column{Identity: c.Identity, Values: dst}
	}
	return New(b.Schema, cols)
}

// Slice returns the sub-batch [start,end).
func (b *Batch) Slice(start, end int) *Batch {
	if end > b.numRows {
		end = b.numRows
	}
	if start >= end {
		return Empty(b.Schema)
	}
	cols := make([]Column, len(b.Schema))
	for i, c := range b.Schema {
		src := b.columns[c.Identity]
		cols[i] = Column{Identity: c.Identity, Values: append([]interface{}{}, src[start:end]...)}
	}
	return New(b.Schema, cols)
}

// Rekey returns a new batch whose columns are remapped from their
// decode-time identities onto fresh bind-time identities, by position. The
// Binder mints a new identity per Read/CTERef occurrence so that two
// references to the same relation within one plan (a self-join) never
// collide in a single batch's column map; Rekey is how the Scanner and
// InternalDataset operators translate the connector's or sample provider's
// own identities onto those bind-time ones before the rest of the plan
// sees the batch.
func (b *Batch) Rekey(to schema.Schema) *Batch {
	cols := make([]Column, 0, len(to))
	for i, c := range to {
		if i >= len(b.Schema) {
			break
		}
		cols = append(cols, Column{Identity: c.Identity, Values: b.columns[b.Schema[i].Identity]})
	}
	return New(to, cols)
}

// Concat concatenates batches sharing a schema into one. Used by greedy
// operators (Sort, Aggregate, AggregateAndGroup, Join build side) which
// must materialise their whole upstream before emitting.
func Concat(batches []*Batch) *Batch {
	if len(batches) == 0 {
		return nil
	}
	sch := batches[0].Schema
	cols := make([]Column, len(sch))
	for i, c := range sch {
		var vals []interface{}
		for _, b := range batches {
			vals = append(vals, b.columns[c.Identity]...)
		}
		cols[i] = Column{Identity: c.Identity, Values: vals}
	}
	return New(sch, cols)
}
