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

// Package types is the closed set of column types a Batch may carry.
package types

import (
	"fmt"
	"time"

	"github.com/morselq/morselq/errkind"
)

// ID is the closed tag of a column type. New members are never added at
// runtime; every switch over ID is expected to be exhaustive.
type ID int

const (
	NULL ID = iota
	BOOLEAN
	INTEGER
	DOUBLE
	VARCHAR
	TIMESTAMP
	LIST
	STRUCT
)

func (t ID) String() string {
	switch t {
	case NULL:
		return "NULL"
	case BOOLEAN:
		return "BOOLEAN"
	case INTEGER:
		return "INTEGER"
	case DOUBLE:
		return "DOUBLE"
	case VARCHAR:
		return "VARCHAR"
	case TIMESTAMP:
		return "TIMESTAMP"
	case LIST:
		return "LIST"
	case STRUCT:
		return "STRUCT"
	default:
		return fmt.Sprintf("ID(%d)", int(t))
	}
}

// Type describes a column's type, including the element type for LIST.
type Type struct {
	ID   ID
	Elem *Type // non-nil only when ID == LIST
}

func Of(id ID) Type { return Type{ID: id} }

func ListOf(elem Type) Type { return Type{ID: LIST, Elem: &elem} }

func (t Type) String() string {
	if t.ID == LIST && t.Elem != nil {
		return fmt.Sprintf("LIST<%s>", t.Elem.String())
	}
	return t.ID.String()
}

func (t Type) Equal(other Type) bool {
	if t.ID != other.ID {
		return false
	}
	if t.ID != LIST {
		return true
	}
	if t.Elem == nil || other.Elem == nil {
		return t.Elem == other.Elem
	}
	return t.Elem.Equal(*other.Elem)
}

// Null is the value every column cell uses to represent a NULL
// regardless of declared type.
var Null interface{} = nil

// IsNaN reports whether v is a DOUBLE NaN. Per spec.md open questions, NaN
// is treated NULL-equivalent only at the call sites that explicitly
// consult this helper (currently only COALESCE), not universally.
func IsNaN(v interface{}) bool {
	f, ok := v.(float64)
	return ok && f != f
}

// Coerce converts v (as produced by the evaluator) to the Go value this
// type's cells should hold, strict meaning a TypeMismatch is raised rather
// than falling back to NULL.
func Coerce(t Type, v interface{}, strict bool) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch t.ID {
	case BOOLEAN:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case INTEGER:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case float64:
			return int64(n), nil
		}
	case DOUBLE:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		}
	case VARCHAR:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", v), nil
	case TIMESTAMP:
		if ts, ok := v.(time.Time); ok {
			return ts, nil
		}
	case LIST:
		if l, ok := v.([]interface{}); ok {
			return l, nil
		}
	case STRUCT:
		if m, ok := v.(map[string]interface{}); ok {
			return m, nil
		}
	}
	if strict {
		return nil, errkind.TypeMismatch.New(fmt.Sprintf("cannot coerce %T to %s", v, t))
	}
	return nil, nil
}
