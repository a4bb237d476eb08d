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

// Package connector implements the external dataset contract consumed by
// the Scanner operator (spec.md §6): given a dataset identifier and an
// optional temporal range, yield decoded columnar batches. Grounded on
// original_source/opteryx/connectors, which splits connectors into a
// "Blob" mode (files under a path/bucket, partitioned by the Mabel
// scheme) and a "Collection" mode (a live queryable backend, here MySQL
// via go-sql-driver/mysql).
package connector

import (
	"context"
	"time"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/schema"
)

// Mode is a Connector's closed delivery mode.
type Mode int

const (
	Blob Mode = iota
	Collection
)

// Capabilities is the bitset a Connector advertises.
type Capabilities struct {
	Cacheable    bool
	Partitionable bool
	Asynchronous bool
}

// TemporalRange bounds a dataset read; a zero value means "no bound",
// which callers resolve to "today" per spec.md §6's default.
type TemporalRange struct {
	Start time.Time
	End   time.Time
}

// Connector is the contract a Scanner drives. GetDatasetSchema is called
// once at bind time; ReadDataset streams decoded batches lazily.
type Connector interface {
	Mode() Mode
	Capabilities() Capabilities
	GetDatasetSchema(ctx context.Context, dataset string) (schema.Schema, error)
	ReadDataset(ctx context.Context, dataset string, r TemporalRange) (BatchIterator, error)
}

// BatchIterator is a finite, non-restartable batch stream, the same pull
// shape the operator runtime uses.
type BatchIterator interface {
	Next(ctx context.Context) (*batch.Batch, error)
	Close() error
}

// sliceIterator adapts a pre-materialised batch slice to BatchIterator;
// several connectors decode eagerly and can hand back their whole result
// this way.
type sliceIterator struct {
	batches []*batch.Batch
	pos     int
}

// NewSliceIterator wraps an already-decoded batch slice as a BatchIterator.
func NewSliceIterator(batches []*batch.Batch) BatchIterator {
	return &sliceIterator{batches: batches}
}

func (s *sliceIterator) Next(ctx context.Context) (*batch.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.batches) {
		return nil, nil
	}
	b := s.batches[s.pos]
	s.pos++
	return b, nil
}

func (s *sliceIterator) Close() error { return nil }
