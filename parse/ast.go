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
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/rewrite"
)

// StatementKind is the closed set of top-level statement shapes the
// Logical Planner accepts.
type StatementKind int

const (
	SelectKind StatementKind = iota
	ShowKind
	ExplainKind
)

// Statement is the root of a parsed SQL statement.
type Statement struct {
	Kind    StatementKind
	Select  *SelectStatement
	Show    *ShowStatement
	Explain *Statement
}

// CTE is one WITH <name> AS (<query>) binding.
type CTE struct {
	Name  string
	Query *SelectStatement
}

// SelectItem is one entry of a SELECT list.
type SelectItem struct {
	Expr  *expr.Node
	Alias string
}

// JoinType enumerates the join kinds spec.md §4.7's Join operator
// supports.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
	LeftSemiJoin
	LeftAntiJoin
	CrossJoin
)

// TableRef is a leaf relation reference: a named table, a derived
// subquery, or a function-dataset call (FAKE/GENERATE_SERIES/UNNEST/
// VALUES).
type TableRef struct {
	Name         string
	Alias        string
	Subquery     *SelectStatement
	FunctionCall *expr.Node

	// Temporal is the FOR-clause range extracted by package rewrite and
	// re-attached to this relation reference by package astrewrite, once
	// the relation name it was lexically keyed on is known to refer to
	// this TableRef.
	Temporal *rewrite.TemporalFilter
}

// FromItem is either a TableRef leaf or a JoinClause combining two
// FromItems; exactly one of Table or Join is non-nil.
type FromItem struct {
	Table *TableRef
	Join  *JoinClause
}

// JoinClause combines two FromItems under a JoinType, with either an ON
// predicate or a USING column list (never both).
type JoinClause struct {
	Left, Right *FromItem
	Type        JoinType
	On          *expr.Node
	Using       []string
}

// OrderByItem is one ORDER BY term.
type OrderByItem struct {
	Expr *expr.Node
	Desc bool
}

// SelectStatement is the parsed shape of a single SELECT, independent of
// any WITH wrapping (CTEs are carried on the outermost statement only).
type SelectStatement struct {
	CTEs       []CTE
	Distinct   bool
	Projection []SelectItem
	From       *FromItem
	Where      *expr.Node
	GroupBy    []*expr.Node
	Having     *expr.Node
	OrderBy    []OrderByItem
	Limit      *int64
	Offset     *int64
}

// ShowStatement is the parsed shape of SHOW COLUMNS/VARIABLES/FUNCTIONS/
// DATABASES/CREATE TABLE <target>.
type ShowStatement struct {
	Kind   string
	Target string
}
