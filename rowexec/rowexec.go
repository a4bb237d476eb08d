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

// Package rowexec builds and drives the operator runtime spec.md §4.7
// describes: given a physicalplan.Plan, it produces a tree of Operators
// whose Stream is pulled to exhaustion by a Cursor, one Batch at a time.
// Named after, and filling the role of, the teacher's own sql/rowexec
// package (its RowIter-builder that engine.go wires in), one level down:
// where the teacher pulls sql.Row one at a time, this package pulls
// batch.Batch.
package rowexec

import (
	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
)

// Stream is a finite, non-restartable pull source of batches. A nil
// batch with a nil error signals end of stream.
type Stream interface {
	Next() (*batch.Batch, error)
	Close() error
}

// Operator is a built, ready-to-pull node of the runtime tree. Config
// mirrors spec.md §9's config() accessor: a map good enough for Explain
// to render without each operator kind needing its own rendering code.
type Operator interface {
	Name() string
	Config() map[string]interface{}
	IsGreedy() bool
	ProducerArity() int
	Execute() (Stream, error)
}

// Build compiles pp into a runnable Operator tree rooted at pp.Root.
func Build(pp *physicalplan.Plan, qc *qctx.Context) (Operator, error) {
	return build(pp, pp.Root, qc)
}

func build(pp *physicalplan.Plan, id physicalplan.NodeID, qc *qctx.Context) (Operator, error) {
	n := pp.Node(id)
	if n == nil {
		return nil, errkind.Internal.New("dangling physical node reference")
	}

	switch n.Kind {
	case physicalplan.ExplainKind:
		// Explain's producer handle points into its own nested sub-plan
		// arena (it renders, never executes); don't resolve it here.
		return newExplain(n, qc)
	case physicalplan.ShowKind:
		return newShow(n, qc), nil
	}

	producers := make([]Operator, len(n.Producers))
	for i, pid := range n.Producers {
		op, err := build(pp, pid, qc)
		if err != nil {
			return nil, err
		}
		producers[i] = op
	}

	switch n.Kind {
	case physicalplan.ScannerKind:
		return newScanner(n, qc), nil
	case physicalplan.InternalDatasetKind:
		return newInternalDataset(n, qc), nil
	case physicalplan.FunctionDatasetKind:
		return newFunctionDataset(n, qc), nil
	case physicalplan.SelectionKind:
		return newSelection(n, producers[0], qc), nil
	case physicalplan.ProjectionKind:
		return newProjection(n, producers[0], qc), nil
	case physicalplan.AggregateAndGroupKind:
		return newAggregateAndGroup(n, producers[0], qc), nil
	case physicalplan.AggregateKind:
		return newAggregate(n, producers[0], qc), nil
	case physicalplan.JoinKind, physicalplan.CrossJoinKind:
		return newJoin(n, producers[0], producers[1], qc), nil
	case physicalplan.DistinctKind:
		return newDistinct(n, producers[0], qc), nil
	case physicalplan.SortKind:
		return newSort(n, producers[0], qc), nil
	case physicalplan.HeapSortKind:
		return newHeapSort(n, producers[0], qc), nil
	case physicalplan.LimitKind:
		return newLimit(n, producers[0], qc), nil
	case physicalplan.MorselDefragmentKind:
		return newMorselDefragment(n, producers[0], qc), nil
	case physicalplan.ExitKind:
		return newExit(n, producers[0], qc), nil
	default:
		return nil, errkind.Internal.New("unbuildable physical node kind")
	}
}

// sliceStream adapts a fixed, already-materialised batch slice to Stream.
// Several operators (Show, greedy consumers, FunctionDataset's eager
// generators) produce their whole result up front.
type sliceStream struct {
	batches []*batch.Batch
	pos     int
}

func newSliceStream(batches ...*batch.Batch) *sliceStream {
	return &sliceStream{batches: batches}
}

func (s *sliceStream) Next() (*batch.Batch, error) {
	if s.pos >= len(s.batches) {
		return nil, nil
	}
	b := s.batches[s.pos]
	s.pos++
	return b, nil
}

func (s *sliceStream) Close() error { return nil }

// checkCancelled returns errkind.Cancelled if qc's context has been
// cancelled or its deadline has passed, the cancellation check spec.md §5
// requires between batch emissions (never mid-batch).
func checkCancelled(qc *qctx.Context) error {
	if qc == nil || qc.Ctx == nil {
		return nil
	}
	select {
	case <-qc.Ctx.Done():
		return errkind.Cancelled.New(qc.Ctx.Err())
	default:
		return nil
	}
}
