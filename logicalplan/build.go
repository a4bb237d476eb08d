package logicalplan

import (
	"strings"

	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/parse"
)

// Permission is the closed, fixed vocabulary spec.md §4.4 and §6 describe:
// a Connection holds a subset of these, and the Logical Planner validates
// the top-level query kind against it before emitting a plan.
type Permission string

const (
	PermQuery   Permission = "QUERY"
	PermShow    Permission = "SHOW"
	PermExplain Permission = "EXPLAIN"
)

// PermissionChecker is the narrow contract Build needs from a Connection;
// package client's Connection implements it.
type PermissionChecker interface {
	HasPermission(Permission) bool
}

func requiredPermission(kind parse.StatementKind) Permission {
	switch kind {
	case parse.ShowKind:
		return PermShow
	case parse.ExplainKind:
		return PermExplain
	default:
		return PermQuery
	}
}

// Build lowers a parsed Statement into a Plan, resolving CTEs into named
// sub-plans in the same arena and validating the connection holds the
// permission the statement's top-level kind requires (spec.md §4.4).
// It fails with errkind.MissingSqlStatement on a nil Statement,
// errkind.PermissionsError when perms lacks the required permission, and
// errkind.UnsupportedSyntax for AST shapes this planner does not lower.
func Build(stmt *parse.Statement, perms PermissionChecker) (*Plan, error) {
	if stmt == nil {
		return nil, errkind.MissingSqlStatement.New("")
	}
	if perms != nil && !perms.HasPermission(requiredPermission(stmt.Kind)) {
		return nil, errkind.PermissionsError.New(string(requiredPermission(stmt.Kind)))
	}

	p := newPlan()
	p.Kind = stmt.Kind
	root, err := p.buildStatement(stmt)
	if err != nil {
		return nil, err
	}
	p.Root = root
	return p, nil
}

func (p *Plan) buildStatement(stmt *parse.Statement) (NodeID, error) {
	switch stmt.Kind {
	case parse.SelectKind:
		return p.buildSelect(stmt.Select)
	case parse.ShowKind:
		n := p.New(ShowKind)
		n.ShowKind = stmt.Show.Kind
		n.ShowTarget = stmt.Show.Target
		return n.ID, nil
	case parse.ExplainKind:
		inner, err := p.buildStatement(stmt.Explain)
		if err != nil {
			return 0, err
		}
		n := p.New(ExplainKind)
		n.Inputs = []NodeID{inner}
		return n.ID, nil
	default:
		return 0, errkind.UnsupportedSyntax.New("statement kind")
	}
}

func (p *Plan) buildSelect(sel *parse.SelectStatement) (NodeID, error) {
	tagSelect(sel)

	for _, cte := range sel.CTEs {
		if _, exists := p.CTEs[cte.Name]; exists {
			return 0, errkind.UnsupportedSyntax.New("duplicate CTE name " + cte.Name)
		}
		root, err := p.buildSelect(cte.Query)
		if err != nil {
			return 0, err
		}
		p.CTEs[cte.Name] = root
	}

	node, err := p.buildImplicitFunctionFrom(sel)
	if err != nil {
		return 0, err
	}
	if node == 0 {
		node, err = p.buildFrom(sel.From)
		if err != nil {
			return 0, err
		}
	}

	if sel.Where != nil {
		f := p.New(FilterKind)
		f.Inputs = []NodeID{node}
		f.Predicate = sel.Where
		node = f.ID
	}

	groupBy := resolvePositionalGroupBy(sel.GroupBy, sel.Projection)
	hasAgg := len(groupBy) > 0 || exprsHaveAggregator(selectExprs(sel)...)
	if hasAgg {
		kind := AggregateKind
		if len(groupBy) > 0 {
			kind = GroupAggregateKind
		}
		g := p.New(kind)
		g.Inputs = []NodeID{node}
		g.GroupBy = groupBy
		g.Aggregates = toProjectItems(sel.Projection)
		g.Having = sel.Having
		node = g.ID
	} else if sel.Having != nil {
		return 0, errkind.UnsupportedSyntax.New("HAVING without aggregation")
	}

	if sel.Distinct {
		d := p.New(DistinctKind)
		d.Inputs = []NodeID{node}
		node = d.ID
	}

	if len(sel.OrderBy) > 0 {
		s := p.New(SortKind)
		s.Inputs = []NodeID{node}
		for _, o := range sel.OrderBy {
			s.OrderBy = append(s.OrderBy, OrderItem{Expr: o.Expr, Desc: o.Desc})
		}
		node = s.ID
	}

	if sel.Limit != nil {
		l := p.New(LimitKind)
		l.Inputs = []NodeID{node}
		l.Limit = sel.Limit
		l.Offset = sel.Offset
		node = l.ID
	}

	proj := p.New(ProjectKind)
	proj.Inputs = []NodeID{node}
	if hasAgg {
		// Clone the select list: the GroupAggregate/Aggregate node below
		// keeps the originals to evaluate, this node's copies carry the
		// same Tag values so the Binder can rebind an aggregate call here
		// as a reference to its already-computed result column instead
		// of re-evaluating it (spec.md §3's schema_column-on-any-node
		// note).
		proj.Items = cloneProjectItems(toProjectItems(sel.Projection))
	} else {
		proj.Items = toProjectItems(sel.Projection)
	}
	return proj.ID, nil
}

// setReturningFunctions names the scalar-position function calls that
// actually produce a relation (spec.md §8 scenario 5: `SELECT
// GENERATE_SERIES(1,5) AS i` reads 5 rows, it does not evaluate the call
// once as an ordinary scalar function). VALUES is excluded here: its
// multi-column shape only makes sense spelled as `FROM VALUES(...)`, which
// buildFrom already handles via TableRef.FunctionCall.
var setReturningFunctions = map[string]bool{
	"GENERATE_SERIES": true,
	"FAKE":            true,
	"UNNEST":          true,
}

// buildImplicitFunctionFrom recognises a FROM-less SELECT whose sole
// projection item is a set-returning function call and rewrites it into a
// FunctionDataset leaf plus a plain column reference, so the rest of the
// pipeline treats it exactly like `SELECT i FROM GENERATE_SERIES(1,5) AS
// t(i)` would. Returns NodeID 0 (never a valid handle) when sel does not
// match this shape, so the caller falls back to the ordinary buildFrom path.
func (p *Plan) buildImplicitFunctionFrom(sel *parse.SelectStatement) (NodeID, error) {
	if sel.From != nil || len(sel.Projection) != 1 {
		return 0, nil
	}
	call := sel.Projection[0].Expr
	if call.NodeType != expr.FUNCTION {
		return 0, nil
	}
	name, _ := call.Value.(string)
	if !setReturningFunctions[strings.ToUpper(name)] {
		return 0, nil
	}

	n := p.New(FunctionDatasetKind)
	n.Call = call
	n.Alias = call.QueryColumn
	sel.Projection[0].Expr = expr.Identifier(call.QueryColumn)
	return n.ID, nil
}

func (p *Plan) buildFrom(item *parse.FromItem) (NodeID, error) {
	if item == nil {
		n := p.New(FunctionDatasetKind)
		n.Alias = "dual"
		return n.ID, nil
	}
	if item.Join != nil {
		left, err := p.buildFrom(item.Join.Left)
		if err != nil {
			return 0, err
		}
		right, err := p.buildFrom(item.Join.Right)
		if err != nil {
			return 0, err
		}
		if len(item.Join.Using) > 0 && item.Join.Type != parse.InnerJoin && item.Join.Type != parse.LeftOuterJoin {
			return 0, errkind.UnsupportedSyntax.New("USING is only permitted for INNER and LEFT OUTER joins")
		}
		n := p.New(JoinKind)
		n.Inputs = []NodeID{left, right}
		n.JoinType = item.Join.Type
		n.On = item.Join.On
		n.Using = item.Join.Using
		return n.ID, nil
	}

	t := item.Table
	switch {
	case t.Subquery != nil:
		root, err := p.buildSelect(t.Subquery)
		if err != nil {
			return 0, err
		}
		alias := t.Alias
		if alias == "" {
			alias = "subquery"
		}
		p.Node(root).Alias = alias
		return root, nil
	case t.FunctionCall != nil:
		n := p.New(FunctionDatasetKind)
		n.Call = t.FunctionCall
		n.Alias = t.Alias
		if n.Alias == "" {
			n.Alias = t.FunctionCall.QueryColumn
		}
		return n.ID, nil
	default:
		if root, ok := p.CTEs[t.Name]; ok {
			n := p.New(CTERefKind)
			n.CTEName = t.Name
			n.Alias = t.Alias
			n.Inputs = []NodeID{root}
			return n.ID, nil
		}
		n := p.New(ReadKind)
		n.Relation = t.Name
		n.Alias = t.Alias
		n.Temporal = t.Temporal
		return n.ID, nil
	}
}

// tagSelect assigns a unique expr.Node.Tag to every node reachable from
// sel's own projection/having (not its subqueries', which tag themselves
// when buildSelect recurses into them). Tags correlate an aggregate
// call's occurrence in the GroupAggregate's Aggregates list with its
// cloned occurrence in the following Project's Items list.
func tagSelect(sel *parse.SelectStatement) {
	counter := 1
	for _, item := range sel.Projection {
		expr.Walk(item.Expr, func(n *expr.Node) { n.Tag = counter; counter++ })
	}
	if sel.Having != nil {
		expr.Walk(sel.Having, func(n *expr.Node) { n.Tag = counter; counter++ })
	}
	for _, g := range sel.GroupBy {
		expr.Walk(g, func(n *expr.Node) { n.Tag = counter; counter++ })
	}
}

func selectExprs(sel *parse.SelectStatement) []*expr.Node {
	var out []*expr.Node
	for _, item := range sel.Projection {
		out = append(out, item.Expr)
	}
	if sel.Having != nil {
		out = append(out, sel.Having)
	}
	return out
}

func exprsHaveAggregator(nodes ...*expr.Node) bool {
	return len(expr.AllOfType(nodes, expr.AGGREGATOR)) > 0
}

// resolvePositionalGroupBy rewrites `GROUP BY <n>` integer-literal entries
// into the corresponding projection item's expression, per spec.md §4.5.
func resolvePositionalGroupBy(groupBy []*expr.Node, projection []parse.SelectItem) []*expr.Node {
	out := make([]*expr.Node, len(groupBy))
	for i, g := range groupBy {
		if g.NodeType == expr.LITERAL {
			if n, ok := g.Value.(int64); ok && n >= 1 && int(n) <= len(projection) {
				out[i] = projection[n-1].Expr
				continue
			}
		}
		out[i] = g
	}
	return out
}

func toProjectItems(items []parse.SelectItem) []ProjectItem {
	out := make([]ProjectItem, len(items))
	for i, it := range items {
		out[i] = ProjectItem{Expr: it.Expr, Alias: it.Alias}
	}
	return out
}

func cloneProjectItems(items []ProjectItem) []ProjectItem {
	out := make([]ProjectItem, len(items))
	for i, it := range items {
		out[i] = ProjectItem{Expr: expr.Clone(it.Expr), Alias: it.Alias}
	}
	return out
}
