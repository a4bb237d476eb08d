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

// Package astrewrite implements the AST Rewriter (spec.md §4.3): it
// substitutes positional `?` parameters with bound literals and
// re-attaches the temporal filters package rewrite extracted, now that
// the relations they were lexically keyed on can be matched against
// actual TableRefs in the parsed statement.
package astrewrite

import (
	"fmt"
	"time"

	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/parse"
	"github.com/morselq/morselq/rewrite"
	"github.com/morselq/morselq/types"
)

// Defaults carries connection-scoped values such as the session timestamp.
// Rewrite accepts it but substitutes none of its values; NOW() still
// reads the wall clock when evaluated.
type Defaults struct {
	Now *time.Time
}

// Rewrite substitutes stmt's positional parameters with params (failing
// with errkind.ParameterError on a count mismatch) and attaches filters to
// the TableRefs they name. It is the identity transform when stmt has no
// parameters and filters is empty.
func Rewrite(stmt *parse.Statement, params []interface{}, filters []rewrite.TemporalFilter, defaults Defaults) (*parse.Statement, error) {
	idx := 0
	var substErr error
	walkStatement(stmt, func(sel *parse.SelectStatement) {
		forEachExpr(sel, func(n *expr.Node) {
			if substErr != nil {
				return
			}
			expr.Walk(n, func(c *expr.Node) {
				if substErr != nil || c.NodeType != expr.LITERAL {
					return
				}
				if _, ok := c.Value.(parse.ParamPlaceholder); !ok {
					return
				}
				if idx >= len(params) {
					substErr = errkind.ParameterError.New(fmt.Sprintf("not enough parameters supplied: expected more than %d", len(params)))
					return
				}
				v := params[idx]
				idx++
				c.Value = v
				c.LiteralType = inferType(v)
				c.QueryColumn = fmt.Sprintf("%v", v)
			})
		})
	})
	if substErr != nil {
		return nil, substErr
	}
	if idx != len(params) {
		return nil, errkind.ParameterError.New(fmt.Sprintf("too many parameters supplied: used %d of %d", idx, len(params)))
	}

	if len(filters) > 0 {
		walkStatement(stmt, func(sel *parse.SelectStatement) {
			attachTemporal(sel.From, filters)
		})
	}

	return stmt, nil
}

func inferType(v interface{}) types.Type {
	switch v.(type) {
	case nil:
		return types.Null
	case bool:
		return types.Of(types.BOOLEAN)
	case int, int64:
		return types.Of(types.INTEGER)
	case float32, float64:
		return types.Of(types.DOUBLE)
	case time.Time:
		return types.Of(types.TIMESTAMP)
	default:
		return types.Of(types.VARCHAR)
	}
}

// walkStatement invokes fn on every SelectStatement reachable from stmt,
// including nested CTEs, subqueries in FROM, and the Explain wrapping.
func walkStatement(stmt *parse.Statement, fn func(*parse.SelectStatement)) {
	if stmt == nil {
		return
	}
	if stmt.Explain != nil {
		walkStatement(stmt.Explain, fn)
	}
	if stmt.Select != nil {
		walkSelect(stmt.Select, fn)
	}
}

func walkSelect(sel *parse.SelectStatement, fn func(*parse.SelectStatement)) {
	if sel == nil {
		return
	}
	for _, cte := range sel.CTEs {
		walkSelect(cte.Query, fn)
	}
	walkFromSubqueries(sel.From, fn)
	fn(sel)
}

func walkFromSubqueries(item *parse.FromItem, fn func(*parse.SelectStatement)) {
	if item == nil {
		return
	}
	if item.Join != nil {
		walkFromSubqueries(item.Join.Left, fn)
		walkFromSubqueries(item.Join.Right, fn)
		return
	}
	if item.Table != nil && item.Table.Subquery != nil {
		walkSelect(item.Table.Subquery, fn)
	}
}

// forEachExpr visits every expression reachable from a single
// SelectStatement's own clauses (not its subqueries' internals, which
// walkSelect already visits independently).
func forEachExpr(sel *parse.SelectStatement, fn func(*expr.Node)) {
	for _, item := range sel.Projection {
		fn(item.Expr)
	}
	if sel.Where != nil {
		fn(sel.Where)
	}
	for _, g := range sel.GroupBy {
		fn(g)
	}
	if sel.Having != nil {
		fn(sel.Having)
	}
	for _, o := range sel.OrderBy {
		fn(o.Expr)
	}
	forEachJoinExpr(sel.From, fn)
}

func forEachJoinExpr(item *parse.FromItem, fn func(*expr.Node)) {
	if item == nil || item.Join == nil {
		return
	}
	if item.Join.On != nil {
		fn(item.Join.On)
	}
	forEachJoinExpr(item.Join.Left, fn)
	forEachJoinExpr(item.Join.Right, fn)
}

// attachTemporal matches each filter's Relation against the name or alias
// of every TableRef reachable from item, attaching the filter to every
// match (a relation may be referenced, and FOR-scoped, more than once
// under different aliases).
func attachTemporal(item *parse.FromItem, filters []rewrite.TemporalFilter) {
	if item == nil {
		return
	}
	if item.Join != nil {
		attachTemporal(item.Join.Left, filters)
		attachTemporal(item.Join.Right, filters)
		return
	}
	t := item.Table
	if t == nil {
		return
	}
	key := t.Alias
	if key == "" {
		key = t.Name
	}
	for i := range filters {
		if filters[i].Relation == key || filters[i].Relation == t.Name {
			f := filters[i]
			t.Temporal = &f
		}
	}
}
