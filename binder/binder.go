package binder

import (
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/qctx"
	"github.com/morselq/morselq/schema"
)

// Bind walks p bottom-up from its Root, attaching a RelationSchema to every
// Read, CTERef and FunctionDataset leaf and resolving every IDENTIFIER
// reachable from the rest of the plan to a schema.Identity (spec.md §4.5).
// It mutates p's nodes in place and returns p for convenience.
func Bind(p *logicalplan.Plan, qc *qctx.Context) (*logicalplan.Plan, error) {
	if _, _, err := bindNode(p, p.Root, qc); err != nil {
		return nil, err
	}
	return p, nil
}

// bindNode binds node id and everything beneath it, returning the scope its
// output exposes upward (empty for Show/Explain, which terminate binding)
// and the tag->identity correlations a GroupAggregate/Aggregate below it
// recorded, carried untouched through every pass-through node (Distinct,
// Sort, Limit) between the aggregate and the Project that consumes them.
func bindNode(p *logicalplan.Plan, id logicalplan.NodeID, qc *qctx.Context) (scope, map[int]schema.Identity, error) {
	n := p.Node(id)
	if n == nil {
		return nil, nil, errkind.Internal.New("dangling node reference")
	}

	switch n.Kind {
	case logicalplan.ReadKind:
		s, err := bindRead(p, n, qc)
		return s, nil, err

	case logicalplan.CTERefKind:
		s, err := bindCTERef(p, n, qc)
		return s, nil, err

	case logicalplan.FunctionDatasetKind:
		s, err := bindFunctionDataset(p, n, qc)
		return s, nil, err

	case logicalplan.FilterKind:
		s, tags, err := bindNode(p, n.Input(), qc)
		if err != nil {
			return nil, nil, err
		}
		if err := bindExpr(n.Predicate, s, nil, s.schema()); err != nil {
			return nil, nil, err
		}
		n.OutputSchema = s.schema()
		return s, tags, nil

	case logicalplan.JoinKind:
		s, err := bindJoin(p, n, qc)
		return s, nil, err

	case logicalplan.GroupAggregateKind, logicalplan.AggregateKind:
		in, _, err := bindNode(p, n.Input(), qc)
		if err != nil {
			return nil, nil, err
		}
		tags, err := bindAggregate(n, in.schema(), in)
		if err != nil {
			return nil, nil, err
		}
		n.ResolvedTags = tags
		return scopeOf("", n.OutputSchema), tags, nil

	case logicalplan.ProjectKind:
		in, tags, err := bindNode(p, n.Input(), qc)
		if err != nil {
			return nil, nil, err
		}
		if err := bindProject(n, in.schema(), in, tags); err != nil {
			return nil, nil, err
		}
		return scopeOf(n.Alias, n.OutputSchema), nil, nil

	case logicalplan.DistinctKind:
		s, tags, err := bindNode(p, n.Input(), qc)
		if err != nil {
			return nil, nil, err
		}
		n.OutputSchema = s.schema()
		return s, tags, nil

	case logicalplan.SortKind:
		s, tags, err := bindNode(p, n.Input(), qc)
		if err != nil {
			return nil, nil, err
		}
		for _, o := range n.OrderBy {
			if err := bindExpr(o.Expr, s, tags, s.schema()); err != nil {
				return nil, nil, err
			}
		}
		n.OutputSchema = s.schema()
		return s, tags, nil

	case logicalplan.LimitKind:
		s, tags, err := bindNode(p, n.Input(), qc)
		if err != nil {
			return nil, nil, err
		}
		n.OutputSchema = s.schema()
		return s, tags, nil

	case logicalplan.ShowKind:
		sch, err := showSchema(n.ShowKind)
		if err != nil {
			return nil, nil, err
		}
		n.OutputSchema = sch
		return scopeOf("", sch), nil, nil

	case logicalplan.ExplainKind:
		if _, _, err := bindNode(p, n.Input(), qc); err != nil {
			return nil, nil, err
		}
		n.OutputSchema = explainSchema()
		return scopeOf("", n.OutputSchema), nil, nil

	default:
		return nil, nil, errkind.Internal.New("unbound node kind")
	}
}

// bindRead mints a fresh identity for every column of the relation's
// catalog schema: the Catalogue's own Entry.Schema is shared read-only
// across every concurrently-bound query and every other Read of the same
// relation in this plan, so this Read's occurrence needs its own private
// copy of identities for a self-join against the same relation not to
// collide once both sides land in the same Batch's column map.
func bindRead(p *logicalplan.Plan, n *logicalplan.Node, qc *qctx.Context) (scope, error) {
	entry, err := qc.Catalogue.Lookup(n.Relation)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errkind.DatasetNotFound.New(n.Relation)
	}
	n.OutputSchema = freshen(entry.Schema)
	qualifier := n.Alias
	if qualifier == "" {
		qualifier = n.Relation
	}
	return scopeOf(qualifier, n.OutputSchema), nil
}

// bindCTERef binds the CTE's own subtree once (memoised on the Plan's own
// node, which every CTERef shares the NodeID of) and exposes a qualified
// scope under this reference's own alias. Two references to the same CTE
// (a self-join against it) therefore still share one schema.Identity set;
// this is a known, documented simplification (see DESIGN.md).
func bindCTERef(p *logicalplan.Plan, n *logicalplan.Node, qc *qctx.Context) (scope, error) {
	root := p.Node(n.Input())
	if root.OutputSchema == nil {
		if _, _, err := bindNode(p, n.Input(), qc); err != nil {
			return nil, err
		}
	}
	n.OutputSchema = root.OutputSchema
	qualifier := n.Alias
	if qualifier == "" {
		qualifier = n.CTEName
	}
	return scopeOf(qualifier, n.OutputSchema), nil
}

// bindFunctionDataset resolves a FAKE/GENERATE_SERIES/UNNEST/VALUES call
// (or the implicit FROM-less single-row relation when Call is nil) against
// the internaldata provider's declared schema for that function.
func bindFunctionDataset(p *logicalplan.Plan, n *logicalplan.Node, qc *qctx.Context) (scope, error) {
	sch, err := functionDatasetSchema(n)
	if err != nil {
		return nil, err
	}
	n.OutputSchema = freshen(sch)
	qualifier := n.Alias
	return scopeOf(qualifier, n.OutputSchema), nil
}

func bindJoin(p *logicalplan.Plan, n *logicalplan.Node, qc *qctx.Context) (scope, error) {
	left, _, err := bindNode(p, n.Inputs[0], qc)
	if err != nil {
		return nil, err
	}
	right, _, err := bindNode(p, n.Inputs[1], qc)
	if err != nil {
		return nil, err
	}
	excluded := map[schema.Identity]bool{}
	for _, name := range n.Using {
		lc, err := left.resolve(name)
		if err != nil {
			return nil, err
		}
		rc, err := right.resolve(name)
		if err != nil {
			return nil, err
		}
		n.ResolvedUsing = append(n.ResolvedUsing, logicalplan.UsingPair{Left: lc.Identity, Right: rc.Identity})
		// A USING column is coalesced into one output column: the physical
		// Join operator reads both sides' values but the bound plan (and a
		// following SELECT *) sees only the left side's identity.
		excluded[rc.Identity] = true
	}

	combined := append(scope{}, left...)
	for _, c := range right {
		if !excluded[c.Column.Identity] {
			combined = append(combined, c)
		}
	}

	if n.On != nil {
		full := append(append(scope{}, left...), right...)
		if err := bindExpr(n.On, full, nil, full.schema()); err != nil {
			return nil, err
		}
	}

	n.OutputSchema = combined.schema()
	return combined, nil
}

// freshen returns a copy of sch with every column re-minted under a new
// identity, so a relation referenced more than once in a single plan never
// has two occurrences sharing one identity.
func freshen(sch schema.Schema) schema.Schema {
	out := make(schema.Schema, len(sch))
	for i, c := range sch {
		out[i] = schema.Column{Identity: schema.NewIdentity(c.QueryColumn), QueryColumn: c.QueryColumn, Type: c.Type, Nullable: c.Nullable}
	}
	return out
}
