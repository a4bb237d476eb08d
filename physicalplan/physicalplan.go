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

// Package physicalplan is the Physical Planner (spec.md §4.6): a 1:1
// lowering of a bound logicalplan.Plan into an executable operator DAG,
// plus the mandatory insertions spec.md calls for: a MorselDefragment
// after every small-batch source, a single terminal Exit, and a HeapSort
// wherever a Sort immediately precedes a Limit with a small constant K.
// Grounded on the same arena-of-integer-handles shape package logicalplan
// uses (spec.md §9's Design Notes), one level down: a physicalplan.Node
// holds the bound expressions and configuration an operator instance in
// package rowexec needs, with Producers instead of logicalplan's Inputs to
// match spec.md §3's "physical plan edges denote a producer relationship."
package physicalplan

import (
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/parse"
	"github.com/morselq/morselq/schema"
)

// NodeID is an arena handle into a Plan, numbered starting at 1.
type NodeID int

// Kind is the closed set of physical operator shapes spec.md §4.7's table
// lists.
type Kind int

const (
	ScannerKind Kind = iota
	InternalDatasetKind
	FunctionDatasetKind
	SelectionKind
	ProjectionKind
	AggregateAndGroupKind
	AggregateKind
	JoinKind
	CrossJoinKind
	DistinctKind
	SortKind
	HeapSortKind
	LimitKind
	MorselDefragmentKind
	ExitKind
	ExplainKind
	ShowKind
)

func (k Kind) String() string {
	names := [...]string{
		"Scanner", "InternalDataset", "FunctionDataset", "Selection",
		"Projection", "AggregateAndGroup", "Aggregate", "Join", "CrossJoin",
		"Distinct", "Sort", "HeapSort", "Limit", "MorselDefragment", "Exit",
		"Explain", "Show",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// producerArity is the exact number of producers each Kind requires,
// spec.md §3's physical plan invariant: "each non-leaf has the arity its
// kind requires (join=2, others=1, scanner=0)".
func producerArity(k Kind) int {
	switch k {
	case ScannerKind, InternalDatasetKind, FunctionDatasetKind, ShowKind:
		return 0
	case JoinKind, CrossJoinKind:
		return 2
	case ExplainKind:
		return 1
	default:
		return 1
	}
}

// Node is one operator instance. Only the fields relevant to Kind are
// meaningful.
type Node struct {
	ID        NodeID
	Kind      Kind
	Producers []NodeID

	OutputSchema schema.Schema

	// Scanner / InternalDataset
	Relation string
	ReadNode *logicalplan.Node

	// FunctionDataset
	Call *expr.Node

	// Selection
	Predicate *expr.Node

	// Projection: Items also doubles as Exit's final identity order.
	Items []logicalplan.ProjectItem

	// AggregateAndGroup / Aggregate
	GroupBy    []*expr.Node
	GroupByIDs []schema.Identity
	Aggregates []logicalplan.ProjectItem
	Having     *expr.Node

	// Join / CrossJoin
	JoinType parse.JoinType
	On       *expr.Node
	Using    []logicalplan.UsingPair

	// Sort / HeapSort
	OrderBy []logicalplan.OrderItem
	HeapK   int64

	// Limit
	Limit, Offset int64

	// MorselDefragment
	TargetMorselSize int

	// Exit: QueryColumns is the user-facing rename list, in output order.
	QueryColumns []string

	// Explain
	Explained *Plan

	// Show
	ShowKind   string
	ShowTarget string
}

// Plan is a bound plan's lowering: an arena of operator instances rooted
// at Root, always terminating in a single ExitKind node (or, for an
// EXPLAIN/SHOW statement, the matching terminal kind).
type Plan struct {
	nodes map[NodeID]*Node
	next  NodeID
	Root  NodeID
}

func newPlan() *Plan {
	return &Plan{nodes: make(map[NodeID]*Node), next: 1}
}

func (p *Plan) new(kind Kind) *Node {
	id := p.next
	p.next++
	n := &Node{ID: id, Kind: kind}
	p.nodes[id] = n
	return n
}

// Node looks up a node by handle.
func (p *Plan) Node(id NodeID) *Node { return p.nodes[id] }

// Nodes returns every node in the arena, for Explain rendering.
func (p *Plan) Nodes() map[NodeID]*Node { return p.nodes }

// Tunables carries the config-driven thresholds Plan consults: the morsel
// target size MorselDefragment coalesces to and the largest K for which a
// Sort-then-Limit is lowered to a HeapSort.
type Tunables struct {
	MorselSize        int
	HeapSortThreshold int64
}

// Build lowers a bound logicalplan.Plan into an executable physicalplan.Plan.
func Build(lp *logicalplan.Plan, t Tunables) (*Plan, error) {
	pp := newPlan()
	root, err := pp.lower(lp, lp.Root, t)
	if err != nil {
		return nil, err
	}

	switch lp.Node(lp.Root).Kind {
	case logicalplan.ShowKind, logicalplan.ExplainKind:
		pp.Root = root
	default:
		exit := pp.new(ExitKind)
		exit.Producers = []NodeID{root}
		exit.OutputSchema = pp.Node(root).OutputSchema
		names := make([]string, len(exit.OutputSchema))
		for i, c := range exit.OutputSchema {
			names[i] = c.QueryColumn
		}
		exit.QueryColumns = names
		pp.Root = exit.ID
	}

	if err := pp.validateArity(); err != nil {
		return nil, err
	}
	return pp, nil
}

func (p *Plan) validateArity() error {
	for _, n := range p.nodes {
		if want := producerArity(n.Kind); want != len(n.Producers) {
			return errkind.Internal.New("operator " + n.Kind.String() + " wired with wrong producer arity")
		}
	}
	return nil
}

func (p *Plan) lower(lp *logicalplan.Plan, id logicalplan.NodeID, t Tunables) (NodeID, error) {
	ln := lp.Node(id)
	if ln == nil {
		return 0, errkind.Internal.New("dangling logical node reference")
	}

	switch ln.Kind {
	case logicalplan.ReadKind:
		return p.lowerRead(ln, t)

	case logicalplan.CTERefKind:
		return p.lower(lp, ln.Input(), t)

	case logicalplan.FunctionDatasetKind:
		n := p.new(FunctionDatasetKind)
		n.Call = ln.Call
		n.OutputSchema = ln.OutputSchema
		return p.wrapDefragment(n, t), nil

	case logicalplan.FilterKind:
		in, err := p.lower(lp, ln.Input(), t)
		if err != nil {
			return 0, err
		}
		n := p.new(SelectionKind)
		n.Producers = []NodeID{in}
		n.Predicate = ln.Predicate
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil

	case logicalplan.ProjectKind:
		in, err := p.lower(lp, ln.Input(), t)
		if err != nil {
			return 0, err
		}
		n := p.new(ProjectionKind)
		n.Producers = []NodeID{in}
		n.Items = ln.Items
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil

	case logicalplan.GroupAggregateKind:
		in, err := p.lower(lp, ln.Input(), t)
		if err != nil {
			return 0, err
		}
		n := p.new(AggregateAndGroupKind)
		n.Producers = []NodeID{in}
		n.GroupBy = ln.GroupBy
		n.GroupByIDs = ln.ResolvedGroupBy
		n.Aggregates = ln.Aggregates
		n.Having = ln.Having
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil

	case logicalplan.AggregateKind:
		in, err := p.lower(lp, ln.Input(), t)
		if err != nil {
			return 0, err
		}
		n := p.new(AggregateKind)
		n.Producers = []NodeID{in}
		n.Aggregates = ln.Aggregates
		n.Having = ln.Having
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil

	case logicalplan.JoinKind:
		left, err := p.lower(lp, ln.Inputs[0], t)
		if err != nil {
			return 0, err
		}
		right, err := p.lower(lp, ln.Inputs[1], t)
		if err != nil {
			return 0, err
		}
		kind := JoinKind
		if ln.JoinType == parse.CrossJoin {
			kind = CrossJoinKind
		}
		n := p.new(kind)
		n.Producers = []NodeID{left, right}
		n.JoinType = ln.JoinType
		n.On = ln.On
		n.Using = ln.ResolvedUsing
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil

	case logicalplan.DistinctKind:
		in, err := p.lower(lp, ln.Input(), t)
		if err != nil {
			return 0, err
		}
		n := p.new(DistinctKind)
		n.Producers = []NodeID{in}
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil

	case logicalplan.SortKind:
		in, err := p.lower(lp, ln.Input(), t)
		if err != nil {
			return 0, err
		}
		// HeapSort insertion: a Sort whose immediate logical consumer (the
		// Limit this lower() call is about to lower on top of it) asks for
		// no more than t.HeapSortThreshold rows is lowered to a bounded
		// top-K streaming sort instead of a full greedy sort (spec.md
		// §4.6). lowerLimit below is the actual call site; a bare Sort
		// with no following Limit always gets the full SortKind.
		n := p.new(SortKind)
		n.Producers = []NodeID{in}
		n.OrderBy = ln.OrderBy
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil

	case logicalplan.LimitKind:
		return p.lowerLimit(lp, ln, t)

	case logicalplan.ShowKind:
		n := p.new(ShowKind)
		n.ShowKind = ln.ShowKind
		n.ShowTarget = ln.ShowTarget
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil

	case logicalplan.ExplainKind:
		inner, err := p.lowerExplainTarget(lp, ln.Input(), t)
		if err != nil {
			return 0, err
		}
		n := p.new(ExplainKind)
		n.Producers = []NodeID{inner.Root}
		n.Explained = inner
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil

	default:
		return 0, errkind.Internal.New("unlowerable logical node kind")
	}
}

// lowerExplainTarget lowers the statement EXPLAIN wraps into its own
// sub-Plan so Explain can render it without executing it (spec.md §4.7:
// "Explain ... Does not execute; renders the plan").
func (p *Plan) lowerExplainTarget(lp *logicalplan.Plan, id logicalplan.NodeID, t Tunables) (*Plan, error) {
	sub := newPlan()
	root, err := sub.lower(lp, id, t)
	if err != nil {
		return nil, err
	}
	sub.Root = root
	return sub, nil
}

// lowerLimit folds a Sort immediately beneath a Limit into a single
// HeapSort operator when the Limit's row count is small enough
// (spec.md §4.6), instead of lowering the Sort and Limit as two separate
// operators.
func (p *Plan) lowerLimit(lp *logicalplan.Plan, ln *logicalplan.Node, t Tunables) (NodeID, error) {
	limit := int64(0)
	if ln.Limit != nil {
		limit = *ln.Limit
	}
	offset := int64(0)
	if ln.Offset != nil {
		offset = *ln.Offset
	}

	below := lp.Node(ln.Input())
	if below.Kind == logicalplan.SortKind && limit > 0 && offset == 0 && limit <= t.HeapSortThreshold {
		in, err := p.lower(lp, below.Input(), t)
		if err != nil {
			return 0, err
		}
		n := p.new(HeapSortKind)
		n.Producers = []NodeID{in}
		n.OrderBy = below.OrderBy
		n.HeapK = limit
		n.OutputSchema = ln.OutputSchema
		return n.ID, nil
	}

	in, err := p.lower(lp, ln.Input(), t)
	if err != nil {
		return 0, err
	}
	n := p.new(LimitKind)
	n.Producers = []NodeID{in}
	n.Limit = limit
	n.Offset = offset
	n.OutputSchema = ln.OutputSchema
	return n.ID, nil
}

// lowerRead turns a bound Read into either an InternalDataset leaf (its
// relation name is "$"-prefixed, served by qctx.InternalProvider) or a
// Scanner leaf (connector-backed), each immediately followed by a
// MorselDefragment per spec.md §4.6's mandatory insertion "after
// small-batch sources".
func (p *Plan) lowerRead(ln *logicalplan.Node, t Tunables) (NodeID, error) {
	kind := ScannerKind
	if isInternalRelation(ln.Relation) {
		kind = InternalDatasetKind
	}
	n := p.new(kind)
	n.Relation = ln.Relation
	n.ReadNode = ln
	n.OutputSchema = ln.OutputSchema
	return p.wrapDefragment(n, t), nil
}

func (p *Plan) wrapDefragment(src *Node, t Tunables) NodeID {
	d := p.new(MorselDefragmentKind)
	d.Producers = []NodeID{src.ID}
	d.OutputSchema = src.OutputSchema
	d.TargetMorselSize = t.MorselSize
	return d.ID
}

func isInternalRelation(name string) bool {
	return len(name) > 0 && name[0] == '$'
}
