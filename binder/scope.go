// Package binder implements the Binder (spec.md §4.5): it walks a
// logical plan bottom-up, attaching a RelationSchema to every Read,
// resolving every IDENTIFIER to a schema.Identity, and propagating each
// node's output schema upward with fresh identities for computed columns.
package binder

import (
	"strings"

	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/schema"
)

// qualifiedColumn is one column visible in a binding scope, tagged with
// the relation alias (or name) it came from so `t.col` qualified lookups
// and ambiguous bare-name detection both work.
type qualifiedColumn struct {
	Qualifier string
	Column    schema.Column
}

// scope is the set of columns visible to expression binding at one point
// in the plan: a single relation's schema for a Read, the union of both
// sides for a Join.
type scope []qualifiedColumn

func scopeOf(qualifier string, sch schema.Schema) scope {
	out := make(scope, len(sch))
	for i, c := range sch {
		out[i] = qualifiedColumn{Qualifier: qualifier, Column: c}
	}
	return out
}

func (s scope) schema() schema.Schema {
	out := make(schema.Schema, len(s))
	for i, c := range s {
		out[i] = c.Column
	}
	return out
}

// resolve looks up name (optionally "qualifier.column") against s,
// returning errkind.ColumnNotFound or errkind.AmbiguousIdentifier.
func (s scope) resolve(name string) (*schema.Column, error) {
	qualifier, column := "", name
	if i := strings.LastIndex(name, "."); i >= 0 {
		qualifier, column = name[:i], name[i+1:]
	}

	var matches []schema.Column
	for _, c := range s {
		if c.Column.QueryColumn != column {
			continue
		}
		if qualifier != "" && c.Qualifier != qualifier {
			continue
		}
		matches = append(matches, c.Column)
	}
	switch len(matches) {
	case 0:
		return nil, errkind.ColumnNotFound.New(name)
	case 1:
		return &matches[0], nil
	default:
		return nil, errkind.AmbiguousIdentifier.New(name)
	}
}
