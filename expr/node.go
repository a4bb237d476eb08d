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

// Package expr is the expression tree: a tagged variant whose tag is drawn
// from the closed NodeType set, so that per-tag payloads replace runtime
// attribute probing (spec.md §9 "dynamic typing / duck-typed node trees").
package expr

import (
	"fmt"

	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/types"
)

// NodeType is the closed tag set every expression Node carries.
type NodeType int

const (
	LITERAL NodeType = iota
	IDENTIFIER
	WILDCARD
	FUNCTION
	AGGREGATOR
	BINARY_OPERATOR
	COMPARISON_OPERATOR
	UNARY_OPERATOR
	NESTED
	AND
	OR
	NOT
)

func (t NodeType) String() string {
	names := [...]string{
		"LITERAL", "IDENTIFIER", "WILDCARD", "FUNCTION", "AGGREGATOR",
		"BINARY_OPERATOR", "COMPARISON_OPERATOR", "UNARY_OPERATOR", "NESTED",
		"AND", "OR", "NOT",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// AggregatorOptions carries ARRAY_AGG's optional DISTINCT/ORDER/LIMIT
// modifiers; nil for every other aggregator.
type AggregatorOptions struct {
	Distinct   bool
	OrderAsc   bool
	HasOrder   bool
	Limit      int64
	HasLimit   bool
}

// Node is one expression tree node. Exactly the fields relevant to
// NodeType are meaningful; see the comment on each field.
type Node struct {
	NodeType NodeType

	// Value holds the literal value (LITERAL), the function or aggregator
	// name (FUNCTION, AGGREGATOR), the operator token (BINARY_OPERATOR,
	// COMPARISON_OPERATOR, UNARY_OPERATOR), or the identifier's source name
	// (IDENTIFIER) before binding.
	Value interface{}

	// LiteralType is the literal's declared type; only meaningful when
	// NodeType == LITERAL.
	LiteralType types.Type

	// Parameters holds FUNCTION/AGGREGATOR arguments, in order. Parameters[0]
	// is the WILDCARD node for COUNT(*).
	Parameters []*Node

	// Left/Right/Centre hold BINARY_OPERATOR/COMPARISON_OPERATOR/AND/OR
	// operands (Left, Right) and UNARY_OPERATOR/NESTED/NOT's single operand
	// (Centre).
	Left, Right, Centre *Node

	// AggregatorOpts is non-nil only for NodeType == AGGREGATOR.
	AggregatorOpts *AggregatorOptions

	// QueryColumn is the user-facing name this expression should be
	// rendered as if it becomes a top-level projection column.
	QueryColumn string

	// SchemaColumn is set by the Binder; it is nil on every node before
	// binding and must be non-nil on every IDENTIFIER node after binding.
	// Per spec.md §3, any node type may carry one once bound: the Binder
	// uses this to let a Project downstream of a GroupAggregate reference
	// an already-computed aggregate or GROUP BY expression directly,
	// without re-evaluating it as if it were still an AGGREGATOR node.
	SchemaColumn *schema.Column

	// Tag correlates clones of the same source expression across sibling
	// logical plan nodes (an aggregate call appears once in a
	// GroupAggregate's aggregate list and again, cloned, in the
	// following Project's item list). Zero means untagged. Assigned by
	// package logicalplan, consumed by package binder.
	Tag int
}

// Clone returns a deep copy of n, preserving Tag but not SchemaColumn
// (clones are rebound independently).
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.SchemaColumn = nil
	c.Parameters = make([]*Node, len(n.Parameters))
	for i, p := range n.Parameters {
		c.Parameters[i] = Clone(p)
	}
	c.Left = Clone(n.Left)
	c.Right = Clone(n.Right)
	c.Centre = Clone(n.Centre)
	if n.AggregatorOpts != nil {
		opts := *n.AggregatorOpts
		c.AggregatorOpts = &opts
	}
	return &c
}

// Literal builds a LITERAL node.
func Literal(v interface{}, t types.Type) *Node {
	return &Node{NodeType: LITERAL, Value: v, LiteralType: t, QueryColumn: fmt.Sprintf("%v", v)}
}

// Identifier builds an unbound IDENTIFIER node referencing name.
func Identifier(name string) *Node {
	return &Node{NodeType: IDENTIFIER, Value: name, QueryColumn: name}
}

// Wildcard builds the `*` node used as COUNT(*)'s sole parameter.
func Wildcard() *Node {
	return &Node{NodeType: WILDCARD, Value: "*", QueryColumn: "*"}
}

// Function builds a FUNCTION node.
func Function(name string, params ...*Node) *Node {
	return &Node{NodeType: FUNCTION, Value: name, Parameters: params, QueryColumn: renderCall(name, params)}
}

// Aggregator builds an AGGREGATOR node.
func Aggregator(name string, opts *AggregatorOptions, params ...*Node) *Node {
	return &Node{NodeType: AGGREGATOR, Value: name, Parameters: params, AggregatorOpts: opts, QueryColumn: renderCall(name, params)}
}

func renderCall(name string, params []*Node) string {
	s := name + "("
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += p.QueryColumn
	}
	return s + ")"
}

// Children returns every direct child of n, regardless of which field
// they live in, for walks that don't care about node shape.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	out = append(out, n.Parameters...)
	for _, c := range []*Node{n.Left, n.Right, n.Centre} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits n and every descendant, depth-first, calling fn on each.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// AllOfType collects every node of the given type reachable from roots.
func AllOfType(roots []*Node, t NodeType) []*Node {
	var out []*Node
	for _, r := range roots {
		Walk(r, func(n *Node) {
			if n.NodeType == t {
				out = append(out, n)
			}
		})
	}
	return out
}

// Resolved reports whether every IDENTIFIER reachable from n has been
// bound to a schema column.
func Resolved(n *Node) bool {
	resolved := true
	Walk(n, func(c *Node) {
		if c.NodeType == IDENTIFIER && c.SchemaColumn == nil {
			resolved = false
		}
	})
	return resolved
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.NodeType {
	case LITERAL:
		return fmt.Sprintf("%v", n.Value)
	case IDENTIFIER:
		if n.SchemaColumn != nil {
			return string(n.SchemaColumn.Identity)
		}
		return fmt.Sprintf("%v", n.Value)
	case WILDCARD:
		return "*"
	case FUNCTION, AGGREGATOR:
		return n.QueryColumn
	case AND:
		return fmt.Sprintf("(%s AND %s)", n.Left, n.Right)
	case OR:
		return fmt.Sprintf("(%s OR %s)", n.Left, n.Right)
	case NOT:
		return fmt.Sprintf("NOT (%s)", n.Centre)
	case BINARY_OPERATOR, COMPARISON_OPERATOR:
		return fmt.Sprintf("(%s %v %s)", n.Left, n.Value, n.Right)
	case UNARY_OPERATOR:
		return fmt.Sprintf("%v(%s)", n.Value, n.Centre)
	case NESTED:
		return fmt.Sprintf("(%s)", n.Centre)
	default:
		return "?"
	}
}
