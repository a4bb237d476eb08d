package binder

import (
	"strconv"
	"strings"

	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/types"
)

// showSchema returns the fixed column list package rowexec's Show*
// operator yields for one SHOW target (spec.md §4.7's Show* row).
func showSchema(kind string) (schema.Schema, error) {
	col := func(name string, t types.ID) schema.Column {
		return schema.Column{Identity: schema.NewIdentity(name), QueryColumn: name, Type: types.Of(t)}
	}
	switch kind {
	case "COLUMNS":
		return schema.Schema{col("table", types.VARCHAR), col("column", types.VARCHAR), col("type", types.VARCHAR), col("nullable", types.BOOLEAN)}, nil
	case "VARIABLES":
		return schema.Schema{col("name", types.VARCHAR), col("value", types.VARCHAR)}, nil
	case "FUNCTIONS":
		return schema.Schema{col("name", types.VARCHAR), col("kind", types.VARCHAR)}, nil
	case "DATABASES":
		return schema.Schema{col("name", types.VARCHAR)}, nil
	case "CREATE":
		return schema.Schema{col("table", types.VARCHAR), col("statement", types.VARCHAR)}, nil
	default:
		return nil, errkind.UnsupportedSyntax.New("SHOW " + kind)
	}
}

// explainSchema is the single-column plan-text relation EXPLAIN yields;
// package rowexec renders the actual tree with tablewriter.
func explainSchema() schema.Schema {
	return schema.Schema{{Identity: schema.NewIdentity("plan"), QueryColumn: "plan", Type: types.Of(types.VARCHAR)}}
}

// functionDatasetSchema declares the output columns of a FunctionDataset
// leaf: the implicit FROM-less single-row relation when Call is nil, or
// one of VALUES/GENERATE_SERIES/UNNEST/FAKE otherwise. Only the shapes
// spec.md §8's scenarios exercise are implemented; see DESIGN.md for the
// multi-row VALUES and correlated-UNNEST limitations this leaves in place.
func functionDatasetSchema(n *logicalplan.Node) (schema.Schema, error) {
	if n.Call == nil {
		return schema.Schema{}, nil
	}
	name := strings.ToUpper(n.Call.Value.(string))
	alias := n.Alias
	switch name {
	case "GENERATE_SERIES":
		col := alias
		if col == "" {
			col = n.Call.QueryColumn
		}
		return schema.Schema{{Identity: schema.NewIdentity(col), QueryColumn: col, Type: types.Of(types.INTEGER)}}, nil

	case "FAKE":
		col := alias
		if col == "" {
			col = "value"
		}
		return schema.Schema{{Identity: schema.NewIdentity(col), QueryColumn: col, Type: types.Of(types.INTEGER)}}, nil

	case "UNNEST":
		col := alias
		if col == "" {
			col = "unnest"
		}
		return schema.Schema{{Identity: schema.NewIdentity(col), QueryColumn: col, Type: types.Of(types.VARCHAR)}}, nil

	case "VALUES":
		out := make(schema.Schema, 0, len(n.Call.Parameters))
		for i, p := range n.Call.Parameters {
			colName := columnN(i + 1)
			out = append(out, schema.Column{Identity: schema.NewIdentity(colName), QueryColumn: colName, Type: valueLiteralType(p)})
		}
		return out, nil

	default:
		return nil, errkind.UnsupportedSyntax.New("function dataset " + name)
	}
}

func columnN(i int) string {
	return "column" + strconv.Itoa(i)
}

func valueLiteralType(n *expr.Node) types.Type {
	if n.NodeType == expr.LITERAL {
		return n.LiteralType
	}
	return types.Of(types.VARCHAR)
}
