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

package expr

import (
	"fmt"
	"strings"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr/function"
	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/types"
)

// EvalBatch evaluates n once per row of b and returns the resulting column,
// in row order. AGGREGATOR nodes are not valid here; evaluate their
// arguments individually and aggregate with package expr/function's
// aggregate builders instead.
func EvalBatch(n *Node, b *batch.Batch) ([]interface{}, error) {
	rows := b.NumRows()
	out := make([]interface{}, rows)
	for i := 0; i < rows; i++ {
		v, err := EvalRow(n, b, i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EvalRow evaluates n against row i of b.
func EvalRow(n *Node, b *batch.Batch, row int) (interface{}, error) {
	// A node bound to a schema column (spec.md §3: "after binding a
	// schema_column handle") is read directly regardless of its
	// NodeType. This is how a Project downstream of a GroupAggregate
	// consumes an AGGREGATOR node's already-computed result column
	// instead of re-evaluating the aggregator.
	if n.SchemaColumn != nil && n.NodeType != IDENTIFIER {
		col := b.Column(n.SchemaColumn.Identity)
		if row >= len(col) {
			return nil, nil
		}
		return col[row], nil
	}
	switch n.NodeType {
	case LITERAL:
		return n.Value, nil

	case IDENTIFIER:
		if n.SchemaColumn == nil {
			return nil, errkind.Internal.New(fmt.Sprintf("unbound identifier %v evaluated", n.Value))
		}
		col := b.Column(n.SchemaColumn.Identity)
		if row >= len(col) {
			return nil, nil
		}
		return col[row], nil

	case WILDCARD:
		return nil, errkind.Internal.New("wildcard has no scalar value")

	case NESTED:
		return EvalRow(n.Centre, b, row)

	case NOT:
		v, err := EvalRow(n.Centre, b, row)
		if err != nil {
			return nil, err
		}
		bv, ok := v.(bool)
		if !ok {
			return nil, nil
		}
		return !bv, nil

	case AND:
		l, err := EvalRow(n.Left, b, row)
		if err != nil {
			return nil, err
		}
		if lb, ok := l.(bool); ok && !lb {
			return false, nil
		}
		r, err := EvalRow(n.Right, b, row)
		if err != nil {
			return nil, err
		}
		rb, rok := r.(bool)
		lb, lok := l.(bool)
		if !lok || !rok {
			return nil, nil
		}
		return lb && rb, nil

	case OR:
		l, err := EvalRow(n.Left, b, row)
		if err != nil {
			return nil, err
		}
		if lb, ok := l.(bool); ok && lb {
			return true, nil
		}
		r, err := EvalRow(n.Right, b, row)
		if err != nil {
			return nil, err
		}
		rb, rok := r.(bool)
		lb, lok := l.(bool)
		if !lok || !rok {
			return nil, nil
		}
		return lb || rb, nil

	case UNARY_OPERATOR:
		v, err := EvalRow(n.Centre, b, row)
		if err != nil {
			return nil, err
		}
		return function.EvalUnary(n.Value.(string), v)

	case BINARY_OPERATOR:
		l, err := EvalRow(n.Left, b, row)
		if err != nil {
			return nil, err
		}
		r, err := EvalRow(n.Right, b, row)
		if err != nil {
			return nil, err
		}
		return function.EvalBinary(n.Value.(string), l, r)

	case COMPARISON_OPERATOR:
		l, err := EvalRow(n.Left, b, row)
		if err != nil {
			return nil, err
		}
		r, err := EvalRow(n.Right, b, row)
		if err != nil {
			return nil, err
		}
		return function.EvalComparison(n.Value.(string), l, r)

	case FUNCTION:
		name := strings.ToUpper(n.Value.(string))
		args := make([]interface{}, len(n.Parameters))
		for i, p := range n.Parameters {
			v, err := EvalRow(p, b, row)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return function.Call(name, args)

	case AGGREGATOR:
		return nil, errkind.Internal.New("aggregator node evaluated outside an aggregation operator")

	default:
		return nil, errkind.Internal.New(fmt.Sprintf("unknown node type %v", n.NodeType))
	}
}

// AppendComputed evaluates n over every row of b and returns a new batch
// with the result appended as a fresh column under id. This implements the
// "evaluate inner sub-expressions, append as synthetic columns" step of
// spec.md §4.7's evaluation ordering.
func AppendComputed(n *Node, b *batch.Batch, id schema.Identity, t types.Type) (*batch.Batch, error) {
	vals, err := EvalBatch(n, b)
	if err != nil {
		return nil, err
	}
	return b.WithColumn(schema.Column{Identity: id, QueryColumn: n.QueryColumn, Type: t}, vals), nil
}
