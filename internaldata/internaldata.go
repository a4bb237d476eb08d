// Package internaldata supplies the zero-I/O built-in relations the
// Catalogue registers at engine start: the `$planets` sample relation
// spec.md §8's end-to-end scenarios are written against, and the Show*
// introspection relations' row data (their column shape is
// package binder's concern; this package fills in the actual rows).
// Grounded on original_source/opteryx/samples/no_table_data.py's pattern
// of a read() function paired with a RelationSchema literal for a table
// that needs no connector.
package internaldata

import (
	"sort"
	"strconv"
	"strings"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/catalog"
	"github.com/morselq/morselq/config"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/expr/function"
	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/types"
)

// PlanetsRelation is the name the `$planets` sample relation is
// registered and read under.
const PlanetsRelation = "$planets"

var planetsSchema = schema.Schema{
	{Identity: schema.NewIdentity("id"), QueryColumn: "id", Type: types.Of(types.INTEGER)},
	{Identity: schema.NewIdentity("name"), QueryColumn: "name", Type: types.Of(types.VARCHAR)},
	{Identity: schema.NewIdentity("mass"), QueryColumn: "mass", Type: types.Of(types.DOUBLE)},
}

// planetsRows is the fixed 9-row sample spec.md §8 assumes:
// {id:INT, name:VARCHAR, mass:DOUBLE}.
var planetsRows = []struct {
	id   int64
	name string
	mass float64
}{
	{1, "Mercury", 0.33},
	{2, "Venus", 4.87},
	{3, "Earth", 5.97},
	{4, "Mars", 0.642},
	{5, "Jupiter", 1898},
	{6, "Saturn", 568},
	{7, "Uranus", 86.8},
	{8, "Neptune", 102},
	{9, "Pluto", 0.0146},
}

// RegisterBuiltins seeds cat with every internal relation's schema so
// package binder's bindRead can resolve `$planets` exactly like any other
// relation; the physical planner distinguishes an internal relation from
// a connector-backed one by its "$" prefix and routes it to an
// InternalDataset operator instead of a Scanner.
func RegisterBuiltins(cat *catalog.Catalogue) {
	cat.Register(PlanetsRelation, planetsSchema, &catalog.Statistics{RowCount: int64(len(planetsRows))})
}

// IsInternal reports whether name is served by this package rather than a
// Connector.
func IsInternal(name string) bool {
	return strings.HasPrefix(name, "$")
}

// Read materialises an internal relation's single batch by name. It is
// the qctx.InternalProvider every Engine installs.
func Read(name string) (*batch.Batch, error) {
	switch name {
	case PlanetsRelation:
		return readPlanets(), nil
	default:
		return nil, errkind.DatasetNotFound.New(name)
	}
}

func readPlanets() *batch.Batch {
	ids := make([]interface{}, len(planetsRows))
	names := make([]interface{}, len(planetsRows))
	masses := make([]interface{}, len(planetsRows))
	for i, r := range planetsRows {
		ids[i] = r.id
		names[i] = r.name
		masses[i] = r.mass
	}
	return batch.New(planetsSchema, []batch.Column{
		{Identity: planetsSchema[0].Identity, Values: ids},
		{Identity: planetsSchema[1].Identity, Values: names},
		{Identity: planetsSchema[2].Identity, Values: masses},
	})
}

// ShowColumns renders one row per column of every relation cat has
// resolved so far, the data half of binder's COLUMNS schema.
func ShowColumns(cat *catalog.Catalogue) *batch.Batch {
	sch := showColumnsSchema()
	var tables, columns, colTypes []interface{}
	var nullables []interface{}

	relations := cat.Entries()
	names := make([]string, 0, len(relations))
	for name := range relations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, c := range relations[name] {
			tables = append(tables, name)
			columns = append(columns, c.QueryColumn)
			colTypes = append(colTypes, c.Type.String())
			nullables = append(nullables, c.Nullable)
		}
	}
	return batch.New(sch, []batch.Column{
		{Identity: sch[0].Identity, Values: tables},
		{Identity: sch[1].Identity, Values: columns},
		{Identity: sch[2].Identity, Values: colTypes},
		{Identity: sch[3].Identity, Values: nullables},
	})
}

func showColumnsSchema() schema.Schema {
	col := func(name string, t types.ID) schema.Column {
		return schema.Column{Identity: schema.NewIdentity(name), QueryColumn: name, Type: types.Of(t)}
	}
	return schema.Schema{col("table", types.VARCHAR), col("column", types.VARCHAR), col("type", types.VARCHAR), col("nullable", types.BOOLEAN)}
}

// ShowVariables renders one row per engine tunable in cfg.
func ShowVariables(cfg *config.Config) *batch.Batch {
	sch := showVariablesSchema()
	names := []interface{}{"morsel_size", "max_greedy_memory_bytes", "heap_sort_threshold", "profile_location", "engine_version"}
	values := []interface{}{
		itoa(cfg.MorselSize),
		itoa64(cfg.MaxGreedyMemoryBytes),
		itoa64(cfg.HeapSortThreshold),
		cfg.ProfileLocation,
		config.EngineVersion,
	}
	return batch.New(sch, []batch.Column{
		{Identity: sch[0].Identity, Values: names},
		{Identity: sch[1].Identity, Values: values},
	})
}

func showVariablesSchema() schema.Schema {
	col := func(name string, t types.ID) schema.Column {
		return schema.Column{Identity: schema.NewIdentity(name), QueryColumn: name, Type: types.Of(t)}
	}
	return schema.Schema{col("name", types.VARCHAR), col("value", types.VARCHAR)}
}

// ShowFunctions renders one row per registered scalar function or
// aggregator name.
func ShowFunctions() *batch.Batch {
	sch := showFunctionsSchema()
	var names, kinds []interface{}
	for _, n := range function.RegisteredNames() {
		names = append(names, n)
		kinds = append(kinds, "SCALAR")
	}
	for _, n := range function.AggregatorNames() {
		names = append(names, n)
		kinds = append(kinds, "AGGREGATE")
	}
	return batch.New(sch, []batch.Column{
		{Identity: sch[0].Identity, Values: names},
		{Identity: sch[1].Identity, Values: kinds},
	})
}

func showFunctionsSchema() schema.Schema {
	col := func(name string, t types.ID) schema.Column {
		return schema.Column{Identity: schema.NewIdentity(name), QueryColumn: name, Type: types.Of(t)}
	}
	return schema.Schema{col("name", types.VARCHAR), col("kind", types.VARCHAR)}
}

// ShowDatabases renders the single logical database this embeddable
// engine exposes; there is no multi-database catalogue in scope.
func ShowDatabases() *batch.Batch {
	sch := schema.Schema{{Identity: schema.NewIdentity("name"), QueryColumn: "name", Type: types.Of(types.VARCHAR)}}
	return batch.New(sch, []batch.Column{{Identity: sch[0].Identity, Values: []interface{}{"default"}}})
}

// ShowCreate renders a best-effort CREATE TABLE rendering of target's
// schema from cat.
func ShowCreate(cat *catalog.Catalogue, target string) (*batch.Batch, error) {
	entry, err := cat.Lookup(target)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errkind.DatasetNotFound.New(target)
	}
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(target)
	b.WriteString(" (")
	for i, c := range entry.Schema {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.QueryColumn)
		b.WriteString(" ")
		b.WriteString(c.Type.String())
	}
	b.WriteString(")")

	sch := schema.Schema{
		{Identity: schema.NewIdentity("table"), QueryColumn: "table", Type: types.Of(types.VARCHAR)},
		{Identity: schema.NewIdentity("statement"), QueryColumn: "statement", Type: types.Of(types.VARCHAR)},
	}
	return batch.New(sch, []batch.Column{
		{Identity: sch[0].Identity, Values: []interface{}{target}},
		{Identity: sch[1].Identity, Values: []interface{}{b.String()}},
	}), nil
}

func itoa(n int) string      { return strconv.Itoa(n) }
func itoa64(n int64) string { return strconv.FormatInt(n, 10) }
