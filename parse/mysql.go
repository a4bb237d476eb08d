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
	"strconv"
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"

	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/expr/function"
	"github.com/morselq/morselq/types"
)

// parseMySQL drives the "mysql" dialect through vitess's sqlparser — the
// same parser mysql-server's engine.go feeds — and lowers the resulting
// statement tree into this engine's Statement shape.
func parseMySQL(sql string) (*Statement, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, errkind.SqlError.New(err.Error())
	}
	return lowerMySQLStatement(stmt)
}

func lowerMySQLStatement(stmt sqlparser.Statement) (*Statement, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		sel, err := lowerMySQLSelect(s)
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: SelectKind, Select: sel}, nil

	case *sqlparser.Show:
		return lowerMySQLShow(s)

	case *sqlparser.Explain:
		inner, err := lowerMySQLStatement(s.Statement)
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: ExplainKind, Explain: inner}, nil

	default:
		return nil, errkind.UnsupportedSyntax.New(sqlparser.String(stmt))
	}
}

func lowerMySQLSelect(s *sqlparser.Select) (*SelectStatement, error) {
	out := &SelectStatement{Distinct: s.QueryOpts.Distinct}

	if s.With != nil {
		if s.With.Recursive {
			return nil, errkind.UnsupportedSyntax.New("recursive CTE")
		}
		for _, cte := range s.With.Ctes {
			ate := cte.AliasedTableExpr
			sub, ok := ate.Expr.(*sqlparser.Subquery)
			if !ok {
				return nil, errkind.UnsupportedSyntax.New("non-subquery CTE")
			}
			inner, ok := sub.Select.(*sqlparser.Select)
			if !ok {
				return nil, errkind.UnsupportedSyntax.New("set operation in CTE")
			}
			body, err := lowerMySQLSelect(inner)
			if err != nil {
				return nil, err
			}
			out.CTEs = append(out.CTEs, CTE{Name: ate.As.String(), Query: body})
		}
	}

	for _, se := range s.SelectExprs {
		switch item := se.(type) {
		case *sqlparser.StarExpr:
			out.Projection = append(out.Projection, SelectItem{Expr: expr.Wildcard()})
		case *sqlparser.AliasedExpr:
			e, err := lowerMySQLExpr(item.Expr)
			if err != nil {
				return nil, err
			}
			out.Projection = append(out.Projection, SelectItem{Expr: e, Alias: item.As.String()})
		default:
			return nil, errkind.UnsupportedSyntax.New(sqlparser.String(se))
		}
	}

	// vitess normalises a FROM-less SELECT to `FROM dual`; that is the
	// implicit single-row relation, not a real table to resolve.
	if len(s.From) > 0 && !isDualOnly(s.From) {
		from, err := lowerMySQLFrom(s.From)
		if err != nil {
			return nil, err
		}
		out.From = from
	}

	if s.Where != nil {
		w, err := lowerMySQLExpr(s.Where.Expr)
		if err != nil {
			return nil, err
		}
		out.Where = w
	}

	for _, g := range s.GroupBy {
		e, err := lowerMySQLExpr(g)
		if err != nil {
			return nil, err
		}
		out.GroupBy = append(out.GroupBy, e)
	}

	if s.Having != nil {
		h, err := lowerMySQLExpr(s.Having.Expr)
		if err != nil {
			return nil, err
		}
		out.Having = h
	}

	for _, o := range s.OrderBy {
		e, err := lowerMySQLExpr(o.Expr)
		if err != nil {
			return nil, err
		}
		out.OrderBy = append(out.OrderBy, OrderByItem{Expr: e, Desc: strings.EqualFold(o.Direction, "desc")})
	}

	if s.Limit != nil {
		limit, err := lowerMySQLCount(s.Limit.Rowcount)
		if err != nil {
			return nil, err
		}
		out.Limit = limit
		if s.Limit.Offset != nil {
			offset, err := lowerMySQLCount(s.Limit.Offset)
			if err != nil {
				return nil, err
			}
			out.Offset = offset
		}
	}

	return out, nil
}

// lowerMySQLCount extracts the integer a LIMIT/OFFSET clause carries.
func lowerMySQLCount(e sqlparser.Expr) (*int64, error) {
	if e == nil {
		return nil, nil
	}
	val, ok := e.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.IntVal {
		return nil, errkind.UnsupportedSyntax.New("non-integer LIMIT/OFFSET")
	}
	n, err := strconv.ParseInt(string(val.Val), 10, 64)
	if err != nil {
		return nil, errkind.SqlError.New(err.Error())
	}
	return &n, nil
}

func isDualOnly(exprs sqlparser.TableExprs) bool {
	if len(exprs) != 1 {
		return false
	}
	ate, ok := exprs[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return false
	}
	tn, ok := ate.Expr.(sqlparser.TableName)
	return ok && strings.EqualFold(tn.Name.String(), "dual")
}

// lowerMySQLFrom folds a FROM clause's comma-separated table expressions
// into a left-deep chain of cross joins, then lowers each.
func lowerMySQLFrom(exprs sqlparser.TableExprs) (*FromItem, error) {
	var items []*FromItem
	for _, te := range exprs {
		item, err := lowerMySQLTableExpr(te)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return foldCrossJoins(items), nil
}

func foldCrossJoins(items []*FromItem) *FromItem {
	out := items[0]
	for _, right := range items[1:] {
		out = &FromItem{Join: &JoinClause{Left: out, Right: right, Type: CrossJoin}}
	}
	return out
}

func lowerMySQLTableExpr(te sqlparser.TableExpr) (*FromItem, error) {
	switch t := te.(type) {
	case *sqlparser.AliasedTableExpr:
		alias := t.As.String()
		switch st := t.Expr.(type) {
		case sqlparser.TableName:
			return &FromItem{Table: &TableRef{Name: st.Name.String(), Alias: alias}}, nil
		case *sqlparser.Subquery:
			inner, ok := st.Select.(*sqlparser.Select)
			if !ok {
				return nil, errkind.UnsupportedSyntax.New("set operation in FROM subquery")
			}
			sub, err := lowerMySQLSelect(inner)
			if err != nil {
				return nil, err
			}
			return &FromItem{Table: &TableRef{Alias: alias, Subquery: sub}}, nil
		default:
			return nil, errkind.UnsupportedSyntax.New(sqlparser.String(te))
		}

	case *sqlparser.ParenTableExpr:
		return lowerMySQLFrom(t.Exprs)

	case *sqlparser.JoinTableExpr:
		left, err := lowerMySQLTableExpr(t.LeftExpr)
		if err != nil {
			return nil, err
		}
		right, err := lowerMySQLTableExpr(t.RightExpr)
		if err != nil {
			return nil, err
		}
		jc := &JoinClause{Left: left, Right: right}
		join := strings.ToLower(t.Join)
		switch {
		case strings.Contains(join, "natural"):
			return nil, errkind.UnsupportedSyntax.New("NATURAL JOIN")
		case strings.Contains(join, "left"):
			jc.Type = LeftOuterJoin
		case strings.Contains(join, "right"):
			jc.Type = RightOuterJoin
		case strings.Contains(join, "full"):
			jc.Type = FullOuterJoin
		default:
			jc.Type = InnerJoin
		}
		if t.Condition.On != nil {
			on, err := lowerMySQLExpr(t.Condition.On)
			if err != nil {
				return nil, err
			}
			jc.On = on
		}
		for _, c := range t.Condition.Using {
			jc.Using = append(jc.Using, c.String())
		}
		if jc.Type == InnerJoin && jc.On == nil && len(jc.Using) == 0 {
			// MySQL spells a cross join as a bare JOIN with no condition.
			jc.Type = CrossJoin
		}
		return &FromItem{Join: jc}, nil

	default:
		return nil, errkind.UnsupportedSyntax.New(sqlparser.String(te))
	}
}

func lowerMySQLExpr(e sqlparser.Expr) (*expr.Node, error) {
	switch v := e.(type) {
	case *sqlparser.ColName:
		name := v.Name.String()
		if q := v.Qualifier.Name.String(); q != "" {
			name = q + "." + name
		}
		return expr.Identifier(name), nil

	case *sqlparser.SQLVal:
		return lowerMySQLVal(v)

	case *sqlparser.NullVal:
		return expr.Literal(nil, types.Of(types.NULL)), nil

	case sqlparser.BoolVal:
		return expr.Literal(bool(v), types.Of(types.BOOLEAN)), nil

	case *sqlparser.ParenExpr:
		inner, err := lowerMySQLExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		return &expr.Node{NodeType: expr.NESTED, Centre: inner, QueryColumn: inner.QueryColumn}, nil

	case *sqlparser.AndExpr:
		return lowerMySQLLogical(expr.AND, v.Left, v.Right)

	case *sqlparser.OrExpr:
		return lowerMySQLLogical(expr.OR, v.Left, v.Right)

	case *sqlparser.NotExpr:
		inner, err := lowerMySQLExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		return &expr.Node{NodeType: expr.NOT, Centre: inner, QueryColumn: "NOT " + inner.QueryColumn}, nil

	case *sqlparser.ComparisonExpr:
		return lowerMySQLComparison(v)

	case *sqlparser.RangeCond:
		return lowerMySQLRange(v)

	case *sqlparser.IsExpr:
		return lowerMySQLIs(v)

	case *sqlparser.UnaryExpr:
		return lowerMySQLUnary(v)

	case *sqlparser.BinaryExpr:
		l, err := lowerMySQLExpr(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := lowerMySQLExpr(v.Right)
		if err != nil {
			return nil, err
		}
		op := strings.ToLower(v.Operator)
		switch op {
		case "+", "-", "*", "/", "%":
			return binaryNode(op, l, r), nil
		}
		return nil, errkind.UnsupportedSyntax.New("operator " + v.Operator)

	case *sqlparser.FuncExpr:
		return lowerMySQLFunc(v)

	case *sqlparser.ConvertExpr:
		inner, err := lowerMySQLExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		typeName := strings.ToUpper(v.Type.Type)
		return expr.Function("CAST", inner, expr.Literal(typeName, types.Of(types.VARCHAR))), nil

	default:
		return nil, errkind.UnsupportedSyntax.New(sqlparser.String(e))
	}
}

func lowerMySQLVal(v *sqlparser.SQLVal) (*expr.Node, error) {
	switch v.Type {
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(v.Val), 10, 64)
		if err != nil {
			return nil, errkind.SqlError.New(err.Error())
		}
		return expr.Literal(n, types.Of(types.INTEGER)), nil
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(string(v.Val), 64)
		if err != nil {
			return nil, errkind.SqlError.New(err.Error())
		}
		return expr.Literal(f, types.Of(types.DOUBLE)), nil
	case sqlparser.StrVal:
		return expr.Literal(string(v.Val), types.Of(types.VARCHAR)), nil
	case sqlparser.ValArg:
		// vitess renders `?` as a named bind var (":v1"); the AST
		// Rewriter substitutes them positionally.
		return expr.Literal(ParamPlaceholder{}, types.Of(types.NULL)), nil
	default:
		return nil, errkind.UnsupportedSyntax.New("literal " + string(v.Val))
	}
}

func lowerMySQLLogical(kind expr.NodeType, left, right sqlparser.Expr) (*expr.Node, error) {
	l, err := lowerMySQLExpr(left)
	if err != nil {
		return nil, err
	}
	r, err := lowerMySQLExpr(right)
	if err != nil {
		return nil, err
	}
	return &expr.Node{NodeType: kind, Left: l, Right: r}, nil
}

func lowerMySQLComparison(v *sqlparser.ComparisonExpr) (*expr.Node, error) {
	l, err := lowerMySQLExpr(v.Left)
	if err != nil {
		return nil, err
	}
	op := strings.ToLower(v.Operator)

	// IN-lists lower to an equality chain; the evaluator has no list
	// membership kernel and a handful of ORs costs the same.
	if op == "in" || op == "not in" {
		tuple, ok := v.Right.(sqlparser.ValTuple)
		if !ok {
			return nil, errkind.UnsupportedSyntax.New("IN over a subquery")
		}
		var chain *expr.Node
		for _, item := range tuple {
			r, err := lowerMySQLExpr(item)
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
		if op == "not in" {
			chain = &expr.Node{NodeType: expr.NOT, Centre: chain}
		}
		return chain, nil
	}

	r, err := lowerMySQLExpr(v.Right)
	if err != nil {
		return nil, err
	}
	switch op {
	case "=", "<", ">", "<=", ">=":
		return comparisonNode(op, l, r), nil
	case "!=", "<>":
		return comparisonNode("!=", l, r), nil
	case "like":
		return comparisonNode("LIKE", l, r), nil
	case "not like":
		return &expr.Node{NodeType: expr.NOT, Centre: comparisonNode("LIKE", l, r)}, nil
	}
	return nil, errkind.UnsupportedSyntax.New("comparison " + v.Operator)
}

func lowerMySQLRange(v *sqlparser.RangeCond) (*expr.Node, error) {
	l, err := lowerMySQLExpr(v.Left)
	if err != nil {
		return nil, err
	}
	lo, err := lowerMySQLExpr(v.From)
	if err != nil {
		return nil, err
	}
	hi, err := lowerMySQLExpr(v.To)
	if err != nil {
		return nil, err
	}
	between := &expr.Node{
		NodeType: expr.AND,
		Left:     comparisonNode(">=", l, lo),
		Right:    comparisonNode("<=", expr.Clone(l), hi),
	}
	if strings.Contains(strings.ToLower(v.Operator), "not") {
		return &expr.Node{NodeType: expr.NOT, Centre: between}, nil
	}
	return between, nil
}

func lowerMySQLIs(v *sqlparser.IsExpr) (*expr.Node, error) {
	inner, err := lowerMySQLExpr(v.Expr)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(v.Operator) {
	case "is null":
		return unaryNode("IS NULL", inner), nil
	case "is not null":
		return unaryNode("IS NOT NULL", inner), nil
	}
	return nil, errkind.UnsupportedSyntax.New(v.Operator)
}

func lowerMySQLUnary(v *sqlparser.UnaryExpr) (*expr.Node, error) {
	inner, err := lowerMySQLExpr(v.Expr)
	if err != nil {
		return nil, err
	}
	switch strings.TrimSpace(strings.ToLower(v.Operator)) {
	case "-":
		return unaryNode("-", inner), nil
	case "+":
		return inner, nil
	}
	return nil, errkind.UnsupportedSyntax.New("unary " + v.Operator)
}

func lowerMySQLFunc(v *sqlparser.FuncExpr) (*expr.Node, error) {
	name := strings.ToUpper(v.Name.String())
	var params []*expr.Node
	for _, se := range v.Exprs {
		switch arg := se.(type) {
		case *sqlparser.StarExpr:
			params = append(params, expr.Wildcard())
		case *sqlparser.AliasedExpr:
			p, err := lowerMySQLExpr(arg.Expr)
			if err != nil {
				return nil, err
			}
			params = append(params, p)
		default:
			return nil, errkind.UnsupportedSyntax.New(sqlparser.String(se))
		}
	}
	if function.IsAggregator(name) {
		var opts *expr.AggregatorOptions
		if v.Distinct {
			opts = &expr.AggregatorOptions{Distinct: true}
		}
		return expr.Aggregator(name, opts, params...), nil
	}
	return expr.Function(name, params...), nil
}

func lowerMySQLShow(s *sqlparser.Show) (*Statement, error) {
	show := &ShowStatement{Target: s.Table.Name.String()}
	switch strings.ToLower(s.Type) {
	case "columns", "fields":
		show.Kind = "COLUMNS"
	case "variables", "session variables", "global variables":
		show.Kind = "VARIABLES"
	case "databases", "schemas":
		show.Kind = "DATABASES"
	case "create table":
		show.Kind = "CREATE"
	case "functions", "function status":
		show.Kind = "FUNCTIONS"
	default:
		return nil, errkind.UnsupportedSyntax.New("SHOW " + s.Type)
	}
	return &Statement{Kind: ShowKind, Show: show}, nil
}

func comparisonNode(op string, l, r *expr.Node) *expr.Node {
	return &expr.Node{NodeType: expr.COMPARISON_OPERATOR, Value: op, Left: l, Right: r,
		QueryColumn: l.QueryColumn + " " + op + " " + r.QueryColumn}
}

func binaryNode(op string, l, r *expr.Node) *expr.Node {
	return &expr.Node{NodeType: expr.BINARY_OPERATOR, Value: op, Left: l, Right: r,
		QueryColumn: l.QueryColumn + " " + op + " " + r.QueryColumn}
}

func unaryNode(op string, centre *expr.Node) *expr.Node {
	return &expr.Node{NodeType: expr.UNARY_OPERATOR, Value: op, Centre: centre,
		QueryColumn: op + " " + centre.QueryColumn}
}
