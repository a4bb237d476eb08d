package binder

import (
	"strings"

	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/types"
)

// inferType computes the declared type a bound expression's result column
// should carry. It is deliberately approximate for FUNCTION nodes (the
// scalar function registry in package expr/function carries no declared
// return types of its own, mirroring original_source's dynamically-typed
// function dispatch); the Binder only needs a reasonable column type for
// Catalogue/Show* purposes, not a type-checking pass.
func inferType(n *expr.Node) types.Type {
	switch n.NodeType {
	case expr.LITERAL:
		return n.LiteralType
	case expr.IDENTIFIER:
		if n.SchemaColumn != nil {
			return n.SchemaColumn.Type
		}
		return types.Of(types.NULL)
	case expr.NESTED:
		return inferType(n.Centre)
	case expr.AND, expr.OR, expr.NOT, expr.COMPARISON_OPERATOR:
		return types.Of(types.BOOLEAN)
	case expr.UNARY_OPERATOR:
		switch n.Value {
		case "IS NULL", "IS NOT NULL", "NOT":
			return types.Of(types.BOOLEAN)
		default:
			return inferType(n.Centre)
		}
	case expr.BINARY_OPERATOR:
		l, r := inferType(n.Left), inferType(n.Right)
		if l.ID == types.INTEGER && r.ID == types.INTEGER && n.Value != "/" {
			return types.Of(types.INTEGER)
		}
		return types.Of(types.DOUBLE)
	case expr.FUNCTION:
		return inferFunctionType(n)
	case expr.AGGREGATOR:
		return inferAggregatorType(n)
	default:
		return types.Of(types.NULL)
	}
}

func inferFunctionType(n *expr.Node) types.Type {
	switch strings.ToUpper(n.Value.(string)) {
	case "UPPER", "LOWER", "TRIM", "CONCAT", "VERSION":
		return types.Of(types.VARCHAR)
	case "LENGTH":
		return types.Of(types.INTEGER)
	case "ROUND", "ABS":
		return types.Of(types.DOUBLE)
	case "NOW":
		return types.Of(types.TIMESTAMP)
	case "COALESCE":
		if len(n.Parameters) > 0 {
			return inferType(n.Parameters[0])
		}
		return types.Of(types.NULL)
	case "CAST", "TRY_CAST":
		if len(n.Parameters) > 1 && n.Parameters[1].NodeType == expr.LITERAL {
			if name, ok := n.Parameters[1].Value.(string); ok {
				return castTargetType(name)
			}
		}
		return types.Of(types.VARCHAR)
	default:
		return types.Of(types.VARCHAR)
	}
}

func castTargetType(name string) types.Type {
	switch strings.ToUpper(name) {
	case "BOOLEAN":
		return types.Of(types.BOOLEAN)
	case "INTEGER":
		return types.Of(types.INTEGER)
	case "DOUBLE", "NUMERIC":
		return types.Of(types.DOUBLE)
	case "TIMESTAMP":
		return types.Of(types.TIMESTAMP)
	default:
		return types.Of(types.VARCHAR)
	}
}

func inferAggregatorType(n *expr.Node) types.Type {
	argType := types.Of(types.NULL)
	if len(n.Parameters) > 0 {
		argType = inferType(n.Parameters[0])
	}
	switch strings.ToUpper(n.Value.(string)) {
	case "COUNT", "COUNT_DISTINCT":
		return types.Of(types.INTEGER)
	case "SUM", "MEAN", "AVG", "STDDEV", "VARIANCE", "APPROXIMATE_MEDIAN", "PRODUCT":
		return types.Of(types.DOUBLE)
	case "ALL", "ANY":
		return types.Of(types.BOOLEAN)
	case "ARRAY_AGG", "MIN_MAX":
		return types.ListOf(argType)
	default: // MIN, MAX, ANY_VALUE
		return argType
	}
}
