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

package parse

import (
	"strings"

	"github.com/ha1tch/tsqlparser"
	tsqlast "github.com/ha1tch/tsqlparser/ast"

	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/expr/function"
	"github.com/morselq/morselq/types"
)

// parseTSQL drives the "tsql" dialect through ha1tch/tsqlparser and
// lowers its AST into the engine's Statement shape. T-SQL has no SHOW;
// introspection statements are mysql-dialect only. TOP and OFFSET/FETCH
// both lower onto Limit/Offset, and an aggregate's WITHIN GROUP (ORDER
// BY ...) clause lowers onto the aggregator's order modifier.
func parseTSQL(sql string) (*Statement, error) {
	program, errs := tsqlparser.Parse(sql)
	if len(errs) > 0 {
		return nil, errkind.SqlError.New(strings.Join(errs, "; "))
	}
	if program == nil || len(program.Statements) == 0 {
		return nil, errkind.MissingSqlStatement.New("")
	}
	if len(program.Statements) > 1 {
		return nil, errkind.UnsupportedSyntax.New("multiple statements in one parse unit")
	}

	switch s := program.Statements[0].(type) {
	case *tsqlast.SelectStatement:
		sel, err := lowerTSQLSelect(s)
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: SelectKind, Select: sel}, nil

	case *tsqlast.WithStatement:
		inner, ok := s.Query.(*tsqlast.SelectStatement)
		if !ok {
			return nil, errkind.UnsupportedSyntax.New("WITH wrapping a non-SELECT")
		}
		sel, err := lowerTSQLSelect(inner)
		if err != nil {
			return nil, err
		}
		for _, cte := range s.CTEs {
			body, err := lowerTSQLSelect(cte.Query)
			if err != nil {
				return nil, err
			}
			sel.CTEs = append(sel.CTEs, CTE{Name: cte.Name.Value, Query: body})
		}
		return &Statement{Kind: SelectKind, Select: sel}, nil

	default:
		return nil, errkind.UnsupportedSyntax.New(s.TokenLiteral())
	}
}

func lowerTSQLSelect(s *tsqlast.SelectStatement) (*SelectStatement, error) {
	if s.Union != nil {
		return nil, errkind.UnsupportedSyntax.New("set operations")
	}
	out := &SelectStatement{Distinct: s.Distinct}

	for _, col := range s.Columns {
		if col.AllColumns {
			out.Projection = append(out.Projection, SelectItem{Expr: expr.Wildcard()})
			continue
		}
		if col.Variable != nil {
			return nil, errkind.UnsupportedSyntax.New("variable assignment in SELECT")
		}
		e, err := lowerTSQLExpr(col.Expression)
		if err != nil {
			return nil, err
		}
		alias := ""
		if col.Alias != nil {
			alias = col.Alias.Value
		}
		out.Projection = append(out.Projection, SelectItem{Expr: e, Alias: alias})
	}

	if s.From != nil && len(s.From.Tables) > 0 {
		var items []*FromItem
		for _, t := range s.From.Tables {
			item, err := lowerTSQLTableRef(t)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		out.From = foldCrossJoins(items)
	}

	if s.Where != nil {
		w, err := lowerTSQLExpr(s.Where)
		if err != nil {
			return nil, err
		}
		out.Where = w
	}

	for _, g := range s.GroupBy {
		e, err := lowerTSQLExpr(g)
		if err != nil {
			return nil, err
		}
		out.GroupBy = append(out.GroupBy, e)
	}

	if s.Having != nil {
		h, err := lowerTSQLExpr(s.Having)
		if err != nil {
			return nil, err
		}
		out.Having = h
	}

	for _, o := range s.OrderBy {
		e, err := lowerTSQLExpr(o.Expression)
		if err != nil {
			return nil, err
		}
		out.OrderBy = append(out.OrderBy, OrderByItem{Expr: e, Desc: o.Descending})
	}

	// TOP n and OFFSET/FETCH both land on Limit/Offset; TOP wins when
	// both are (nonsensically) present.
	if s.Offset != nil {
		n, err := lowerTSQLCount(s.Offset)
		if err != nil {
			return nil, err
		}
		out.Offset = n
	}
	if s.Fetch != nil {
		n, err := lowerTSQLCount(s.Fetch)
		if err != nil {
			return nil, err
		}
		out.Limit = n
	}
	if s.Top != nil {
		if s.Top.Percent || s.Top.WithTies {
			return nil, errkind.UnsupportedSyntax.New("TOP PERCENT / WITH TIES")
		}
		n, err := lowerTSQLCount(s.Top.Count)
		if err != nil {
			return nil, err
		}
		out.Limit = n
	}

	return out, nil
}

func lowerTSQLCount(e tsqlast.Expression) (*int64, error) {
	lit, ok := e.(*tsqlast.IntegerLiteral)
	if !ok {
		return nil, errkind.UnsupportedSyntax.New("non-integer row count")
	}
	n := lit.Value
	return &n, nil
}

func lowerTSQLTableRef(t tsqlast.TableReference) (*FromItem, error) {
	switch ref := t.(type) {
	case *tsqlast.TableName:
		alias := ""
		if ref.Alias != nil {
			alias = ref.Alias.Value
		}
		return &FromItem{Table: &TableRef{Name: ref.Name.String(), Alias: alias}}, nil

	case *tsqlast.DerivedTable:
		sub, err := lowerTSQLSelect(ref.Subquery)
		if err != nil {
			return nil, err
		}
		alias := ""
		if ref.Alias != nil {
			alias = ref.Alias.Value
		}
		return &FromItem{Table: &TableRef{Alias: alias, Subquery: sub}}, nil

	case *tsqlast.JoinClause:
		left, err := lowerTSQLTableRef(ref.Left)
		if err != nil {
			return nil, err
		}
		right, err := lowerTSQLTableRef(ref.Right)
		if err != nil {
			return nil, err
		}
		jc := &JoinClause{Left: left, Right: right}
		switch strings.ToUpper(ref.Type) {
		case "LEFT":
			jc.Type = LeftOuterJoin
		case "RIGHT":
			jc.Type = RightOuterJoin
		case "FULL":
			jc.Type = FullOuterJoin
		case "CROSS":
			jc.Type = CrossJoin
		default:
			jc.Type = InnerJoin
		}
		if ref.Condition != nil {
			on, err := lowerTSQLExpr(ref.Condition)
			if err != nil {
				return nil, err
			}
			jc.On = on
		}
		return &FromItem{Join: jc}, nil

	default:
		return nil, errkind.UnsupportedSyntax.New(t.TokenLiteral())
	}
}

func lowerTSQLExpr(e tsqlast.Expression) (*expr.Node, error) {
	switch v := e.(type) {
	case *tsqlast.Identifier:
		if v.Value == "*" {
			return expr.Wildcard(), nil
		}
		return expr.Identifier(v.Value), nil

	case *tsqlast.QualifiedIdentifier:
		return expr.Identifier(v.String()), nil

	case *tsqlast.IntegerLiteral:
		return expr.Literal(v.Value, types.Of(types.INTEGER)), nil

	case *tsqlast.FloatLiteral:
		return expr.Literal(v.Value, types.Of(types.DOUBLE)), nil

	case *tsqlast.StringLiteral:
		return expr.Literal(v.Value, types.Of(types.VARCHAR)), nil

	case *tsqlast.NullLiteral:
		return expr.Literal(nil, types.Of(types.NULL)), nil

	case *tsqlast.PrefixExpression:
		inner, err := lowerTSQLExpr(v.Right)
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(v.Operator) {
		case "NOT":
			return &expr.Node{NodeType: expr.NOT, Centre: inner}, nil
		case "-":
			return unaryNode("-", inner), nil
		case "+":
			return inner, nil
		}
		return nil, errkind.UnsupportedSyntax.New("prefix " + v.Operator)

	case *tsqlast.InfixExpression:
		return lowerTSQLInfix(v)

	case *tsqlast.BetweenExpression:
		l, err := lowerTSQLExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		lo, err := lowerTSQLExpr(v.Low)
		if err != nil {
			return nil, err
		}
		hi, err := lowerTSQLExpr(v.High)
		if err != nil {
			return nil, err
		}
		between := &expr.Node{
			NodeType: expr.AND,
			Left:     comparisonNode(">=", l, lo),
			Right:    comparisonNode("<=", expr.Clone(l), hi),
		}
		if v.Not {
			return &expr.Node{NodeType: expr.NOT, Centre: between}, nil
		}
		return between, nil

	case *tsqlast.InExpression:
		if v.Subquery != nil {
			return nil, errkind.UnsupportedSyntax.New("IN over a subquery")
		}
		l, err := lowerTSQLExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		var chain *expr.Node
		for _, item := range v.Values {
			r, err := lowerTSQLExpr(item)
			if err != nil {
				return nil, err
			}
			eq := comparisonNode("=", expr.Clone(l), r)
			if chain == nil {
				chain = eq
			} else {
				chain = &expr.Node{NodeType: expr.OR, Left: chain, Right: eq}
			}
		}
		if chain == nil {
			chain = expr.Literal(false, types.Of(types.BOOLEAN))
		}
		if v.Not {
			chain = &expr.Node{NodeType: expr.NOT, Centre: chain}
		}
		return chain, nil

	case *tsqlast.LikeExpression:
		l, err := lowerTSQLExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		p, err := lowerTSQLExpr(v.Pattern)
		if err != nil {
			return nil, err
		}
		like := comparisonNode("LIKE", l, p)
		if v.Not {
			return &expr.Node{NodeType: expr.NOT, Centre: like}, nil
		}
		return like, nil

	case *tsqlast.IsNullExpression:
		inner, err := lowerTSQLExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		if v.Not {
			return unaryNode("IS NOT NULL", inner), nil
		}
		return unaryNode("IS NULL", inner), nil

	case *tsqlast.CastExpression:
		inner, err := lowerTSQLExpr(v.Expression)
		if err != nil {
			return nil, err
		}
		name := "CAST"
		if v.IsTry {
			name = "TRY_CAST"
		}
		return expr.Function(name, inner, expr.Literal(strings.ToUpper(v.TargetType.Name), types.Of(types.VARCHAR))), nil

	case *tsqlast.FunctionCall:
		return lowerTSQLFunc(v)

	default:
		return nil, errkind.UnsupportedSyntax.New(e.String())
	}
}

func lowerTSQLInfix(v *tsqlast.InfixExpression) (*expr.Node, error) {
	l, err := lowerTSQLExpr(v.Left)
	if err != nil {
		return nil, err
	}
	r, err := lowerTSQLExpr(v.Right)
	if err != nil {
		return nil, err
	}
	switch v.Operator {
	case "AND":
		return &expr.Node{NodeType: expr.AND, Left: l, Right: r}, nil
	case "OR":
		return &expr.Node{NodeType: expr.OR, Left: l, Right: r}, nil
	case "=", "<", ">", "<=", ">=":
		return comparisonNode(v.Operator, l, r), nil
	case "!=", "<>":
		return comparisonNode("!=", l, r), nil
	case "+", "-", "*", "/", "%":
		return binaryNode(v.Operator, l, r), nil
	}
	return nil, errkind.UnsupportedSyntax.New("operator " + v.Operator)
}

func lowerTSQLFunc(v *tsqlast.FunctionCall) (*expr.Node, error) {
	name := strings.ToUpper(v.Function.String())
	var params []*expr.Node
	for _, arg := range v.Arguments {
		p, err := lowerTSQLExpr(arg)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	if !function.IsAggregator(name) {
		return expr.Function(name, params...), nil
	}

	var opts *expr.AggregatorOptions
	if len(v.WithinGroup) > 0 {
		if len(v.WithinGroup) > 1 {
			return nil, errkind.UnsupportedSyntax.New("multi-key WITHIN GROUP")
		}
		opts = &expr.AggregatorOptions{HasOrder: true, OrderAsc: !v.WithinGroup[0].Descending}
	}
	return expr.Aggregator(name, opts, params...), nil
}
