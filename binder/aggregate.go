package binder

import (
	"strings"

	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/schema"
)

// bindAggregate binds a GroupAggregate or Aggregate node: its GROUP BY
// keys, its SELECT-list items (aggregate calls and plain pass-through
// group columns), and any HAVING predicate, which may reference an
// aggregate call that never appears in the SELECT list (a "hidden"
// aggregate, appended to the operator's own output so HAVING can filter
// on it). It returns the tag->identity map so the following Project can
// rebind its cloned copies of these same expressions (spec.md §3).
func bindAggregate(n *logicalplan.Node, inputSchema schema.Schema, inputScope scope) (map[int]schema.Identity, error) {
	tags := map[int]schema.Identity{}
	var out schema.Schema
	var groupNames []string
	var groupIdentities []schema.Identity
	var groupExprStrings []string

	for i, g := range n.GroupBy {
		if err := bindExpr(g, inputScope, nil, inputSchema); err != nil {
			return nil, err
		}
		hint := g.QueryColumn
		id := schema.NewIdentity(hint)
		n.ResolvedGroupBy = append(n.ResolvedGroupBy, id)
		out = append(out, schema.Column{Identity: id, QueryColumn: hint, Type: inferType(g), Nullable: true})
		if g.Tag != 0 {
			tags[g.Tag] = id
		}
		if g.NodeType == expr.IDENTIFIER && g.SchemaColumn != nil {
			groupNames = append(groupNames, bareName(g.SchemaColumn.QueryColumn))
			groupIdentities = append(groupIdentities, id)
		}
		groupExprStrings = append(groupExprStrings, g.String())
		_ = i
	}

	for i := range n.Aggregates {
		item := &n.Aggregates[i]
		switch {
		case item.Expr.NodeType == expr.AGGREGATOR:
			if err := bindAggregatorArgs(item.Expr, inputScope, inputSchema); err != nil {
				return nil, err
			}
			hint := item.Alias
			if hint == "" {
				hint = item.Expr.QueryColumn
			}
			id := schema.NewIdentity(hint)
			item.Identity = id
			if item.Expr.Tag != 0 {
				tags[item.Expr.Tag] = id
			}
			out = append(out, schema.Column{Identity: id, QueryColumn: hint, Type: inferAggregatorType(item.Expr), Nullable: true})

		case item.Expr.NodeType == expr.IDENTIFIER:
			name := bareName(item.Expr.Value.(string))
			id, ok := matchName(name, groupNames, groupIdentities)
			if !ok {
				return nil, errkind.UnsupportedSyntax.New("column " + name + " must appear in GROUP BY or be used in an aggregate function")
			}
			item.Expr.SchemaColumn = &schema.Column{Identity: id, QueryColumn: item.Expr.QueryColumn, Type: inferType(item.Expr)}
			item.Identity = id

		default:
			if err := bindExpr(item.Expr, inputScope, nil, inputSchema); err != nil {
				return nil, err
			}
			id, ok := matchExprString(item.Expr.String(), groupExprStrings, groupIdentities)
			if !ok {
				return nil, errkind.UnsupportedSyntax.New("expression must appear in GROUP BY or be used in an aggregate function")
			}
			item.Expr.SchemaColumn = &schema.Column{Identity: id, QueryColumn: item.Expr.QueryColumn, Type: inferType(item.Expr)}
			item.Identity = id
		}
	}

	if n.Having != nil {
		for _, a := range expr.AllOfType([]*expr.Node{n.Having}, expr.AGGREGATOR) {
			if _, already := tags[a.Tag]; already {
				continue
			}
			if err := bindAggregatorArgs(a, inputScope, inputSchema); err != nil {
				return nil, err
			}
			id := schema.NewIdentity(a.QueryColumn)
			if a.Tag != 0 {
				tags[a.Tag] = id
			}
			out = append(out, schema.Column{Identity: id, QueryColumn: a.QueryColumn, Type: inferAggregatorType(a), Nullable: true})
		}
		postGroup := scopeOf("", schema.Schema{})
		for i, name := range groupNames {
			postGroup = append(postGroup, qualifiedColumn{Column: schema.Column{Identity: groupIdentities[i], QueryColumn: name}})
		}
		if err := bindExpr(n.Having, postGroup, tags, out); err != nil {
			return nil, err
		}
	}

	n.OutputSchema = out
	return tags, nil
}

func bindAggregatorArgs(a *expr.Node, s scope, sch schema.Schema) error {
	for _, p := range a.Parameters {
		if p.NodeType == expr.WILDCARD {
			continue
		}
		if err := bindExpr(p, s, nil, sch); err != nil {
			return err
		}
	}
	return nil
}

func bareName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func matchName(name string, names []string, ids []schema.Identity) (schema.Identity, bool) {
	for i, n := range names {
		if n == name {
			return ids[i], true
		}
	}
	return "", false
}

func matchExprString(s string, exprs []string, ids []schema.Identity) (schema.Identity, bool) {
	for i, e := range exprs {
		if e == s {
			return ids[i], true
		}
	}
	return "", false
}
