package binder

import (
	"strconv"

	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/schema"
)

// bindProject binds a Project node's item list against its input's scope,
// expanding any bare WILDCARD item (SELECT *) into one ProjectItem per
// column the wildcard covers. Wildcard columns and unaliased identifiers
// keep their source identity; every other item gets a fresh identity.
// tags, when non-nil, carries the aggregate/group-by correlations an
// upstream GroupAggregate/Aggregate node recorded for this select list's
// cloned expressions (spec.md §3).
func bindProject(n *logicalplan.Node, inputSchema schema.Schema, inputScope scope, tags map[int]schema.Identity) error {
	var items []logicalplan.ProjectItem
	for _, item := range n.Items {
		if item.Expr.NodeType == expr.WILDCARD {
			items = append(items, expandWildcard(item.Expr, inputScope)...)
			continue
		}
		if err := bindExpr(item.Expr, inputScope, tags, inputSchema); err != nil {
			return err
		}
		items = append(items, item)
	}

	out := make(schema.Schema, len(items))
	for i := range items {
		it := &items[i]
		hint := it.Alias
		if hint == "" {
			hint = it.Expr.QueryColumn
		}
		var id schema.Identity
		if it.Expr.NodeType == expr.IDENTIFIER && it.Alias == "" {
			// A bare passthrough column keeps its source identity: a Project
			// that neither renames nor recomputes a column must not mint a
			// fresh one, or a downstream Sort/Filter referencing the
			// original identity would no longer resolve.
			id = it.Expr.SchemaColumn.Identity
		} else {
			id = schema.NewIdentity(hint)
		}
		it.Identity = id
		out[i] = schema.Column{Identity: id, QueryColumn: hint, Type: inferType(it.Expr), Nullable: true}
	}
	n.Items = items
	n.OutputSchema = out
	return nil
}

// expandWildcard resolves a bare `*` WILDCARD item into one ProjectItem per
// scope column, preserving each column's existing identity and query name.
// The parser accepts only the unqualified form; a qualified `t.*` is not
// recognised (documented in DESIGN.md).
//
// A name a join brought in from both sides (spec.md §8 scenario 3: `SELECT
// * FROM $planets INNER JOIN $planets USING (name, id)` also carries two
// `mass` columns) is qualified as `qualifier.column` so Exit's
// unique-query-column invariant still holds; a name appearing once is left
// bare.
func expandWildcard(w *expr.Node, s scope) []logicalplan.ProjectItem {
	counts := map[string]int{}
	for _, qc := range s {
		counts[qc.Column.QueryColumn]++
	}

	seen := map[string]int{}
	var out []logicalplan.ProjectItem
	for _, qc := range s {
		col := qc.Column
		alias := ""
		if counts[col.QueryColumn] > 1 {
			alias = col.QueryColumn
			if qc.Qualifier != "" {
				alias = qc.Qualifier + "." + col.QueryColumn
			}
			// Two occurrences of the same relation in one FROM clause (a
			// self-join with no distinguishing alias) still collide after
			// qualifying; number them rather than emit a second identical
			// query_column.
			seen[alias]++
			if n := seen[alias]; n > 1 {
				alias = alias + "_" + strconv.Itoa(n)
			}
		}
		id := expr.Identifier(col.QueryColumn)
		id.SchemaColumn = &col
		out = append(out, logicalplan.ProjectItem{Expr: id, Alias: alias, Identity: col.Identity})
	}
	return out
}
