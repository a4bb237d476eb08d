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

// Package logicalplan is the Logical Plan DAG (spec.md §3, §4.4): a
// directed acyclic graph of logical operators built from an AST, with
// CTEs resolved and subqueries nested. Per spec.md §9's Design Notes, the
// plan is an arena of nodes addressed by integer handle rather than an
// owning-pointer tree, so two FromItems can each hold a NodeID reference
// into the same CTE subtree without creating a Go-level cycle or forcing
// a second copy of it.
package logicalplan

import (
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/parse"
	"github.com/morselq/morselq/rewrite"
	"github.com/morselq/morselq/schema"
)

// NodeID is an arena handle. The zero value never denotes a real node;
// every Plan's nodes are numbered starting at 1.
type NodeID int

// Kind is the closed set of logical operator shapes spec.md §3 lists.
type Kind int

const (
	ReadKind Kind = iota
	CTERefKind
	FunctionDatasetKind
	FilterKind
	ProjectKind
	GroupAggregateKind
	AggregateKind
	JoinKind
	SortKind
	LimitKind
	DistinctKind
	ShowKind
	ExplainKind
)

func (k Kind) String() string {
	names := [...]string{
		"Read", "CTERef", "FunctionDataset", "Filter", "Project",
		"GroupAggregate", "Aggregate", "Join", "Sort", "Limit", "Distinct",
		"Show", "Explain",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// ProjectItem is one entry of a Project, GroupAggregate, or Aggregate
// node's output list. Identity is unset until the Binder assigns a fresh
// one per spec.md §4.5.
type ProjectItem struct {
	Expr     *expr.Node
	Alias    string
	Identity schema.Identity
}

// OrderItem is one Sort key.
type OrderItem struct {
	Expr *expr.Node
	Desc bool
}

// UsingPair is one resolved column of a JOIN ... USING (...) clause,
// filled in by the Binder.
type UsingPair struct {
	Left, Right schema.Identity
}

// Node is one entry in a Plan's arena. Only the fields relevant to Kind
// are meaningful, the same closed-tagged-variant shape package expr uses
// for expressions (spec.md §9).
type Node struct {
	ID     NodeID
	Kind   Kind
	Inputs []NodeID

	// Read
	Relation string
	Alias    string
	Temporal *rewrite.TemporalFilter

	// CTERef
	CTEName string

	// FunctionDataset: Call is nil for the implicit single-row relation a
	// FROM-less SELECT reads from.
	Call *expr.Node

	// Filter
	Predicate *expr.Node

	// Project / GroupAggregate's and Aggregate's own output list
	Items []ProjectItem

	// GroupAggregate / Aggregate
	GroupBy    []*expr.Node
	Aggregates []ProjectItem
	Having     *expr.Node

	// Join
	JoinType parse.JoinType
	On       *expr.Node
	Using    []string

	// Sort
	OrderBy []OrderItem

	// Limit
	Limit, Offset *int64

	// Show
	ShowKind   string
	ShowTarget string

	// --- filled in by package binder ---
	OutputSchema    schema.Schema
	ResolvedGroupBy []schema.Identity
	ResolvedUsing   []UsingPair
	// ResolvedTags maps an expr.Node.Tag to the identity its bound
	// occurrence here computed, consumed by the Project node directly
	// above a GroupAggregate/Aggregate to rebind its cloned copies
	// (spec.md §3).
	ResolvedTags map[int]schema.Identity
}

// Plan is one statement's logical plan: a single arena shared by the
// statement's own clauses, every CTE it declares, and every nested
// subquery, so a FromItem referencing a CTE or subquery is just another
// NodeID rather than a separately-owned tree.
type Plan struct {
	nodes map[NodeID]*Node
	next  NodeID

	Root NodeID
	// CTEs maps a WITH-bound name to the NodeID of its already-built
	// subtree, populated left-to-right as each CTE is planned so that a
	// later CTE may reference an earlier one but never the reverse.
	CTEs map[string]NodeID
	// Kind is the statement's own top-level kind, used by callers to
	// apply the permission check spec.md §4.4 requires before planning
	// completes.
	Kind parse.StatementKind
}

func newPlan() *Plan {
	return &Plan{nodes: make(map[NodeID]*Node), next: 1, CTEs: make(map[string]NodeID)}
}

// New allocates a fresh node of the given kind in p's arena.
func (p *Plan) New(kind Kind) *Node {
	id := p.next
	p.next++
	n := &Node{ID: id, Kind: kind}
	p.nodes[id] = n
	return n
}

// Node looks up a node by handle. Panics are never raised; a missing ID
// indicates an internal bug and returns nil, which callers should treat
// as errkind.Internal.
func (p *Plan) Node(id NodeID) *Node { return p.nodes[id] }

// Nodes returns every node in the arena, for whole-plan walks (Explain
// rendering, invariant checks).
func (p *Plan) Nodes() map[NodeID]*Node { return p.nodes }

// Input is a small convenience for the common single-producer case.
func (n *Node) Input() NodeID {
	if len(n.Inputs) == 0 {
		return 0
	}
	return n.Inputs[0]
}
