package binder

import (
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/schema"
)

// bindExpr resolves every IDENTIFIER in n against s, in place. If tags
// carries an entry for n.Tag (set by package logicalplan when n is a
// clone of an expression a GroupAggregate/Aggregate node already
// computed), n itself is bound directly to that identity and its
// children are left unbound: per spec.md §3, any node may carry a
// schema_column once bound, and package expr's evaluator reads that
// column directly regardless of node type.
func bindExpr(n *expr.Node, s scope, tags map[int]schema.Identity, sch schema.Schema) error {
	if n == nil {
		return nil
	}
	if n.Tag != 0 {
		if id, ok := tags[n.Tag]; ok {
			if i := sch.Find(id); i >= 0 {
				col := sch[i]
				n.SchemaColumn = &col
				return nil
			}
		}
	}

	switch n.NodeType {
	case expr.IDENTIFIER:
		col, err := s.resolve(n.Value.(string))
		if err != nil {
			return err
		}
		n.SchemaColumn = col
		return nil
	case expr.LITERAL, expr.WILDCARD:
		return nil
	case expr.AGGREGATOR:
		return errkind.Internal.New("aggregator encountered outside an aggregation context")
	}

	for _, p := range n.Parameters {
		if err := bindExpr(p, s, tags, sch); err != nil {
			return err
		}
	}
	for _, c := range []*expr.Node{n.Left, n.Right, n.Centre} {
		if err := bindExpr(c, s, tags, sch); err != nil {
			return err
		}
	}
	return nil
}
