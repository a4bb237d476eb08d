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

// Package parse turns cleaned SQL text into the engine's own lightweight
// AST. The grammar itself belongs to a real parser per dialect —
// dolthub/vitess's sqlparser for "mysql" (the same parser the mysql-server
// engine drives from engine.go), ha1tch/tsqlparser for "tsql" — and this
// package lowers their statement trees into the Statement/SelectStatement
// shape the Logical Planner consumes, the same split mysql-server draws
// between the vitess AST and its own sql.Node tree.
package parse

import (
	"strings"
	"unicode"
)

// ParamPlaceholder is the LITERAL value standing in for a `?` positional
// parameter until package astrewrite substitutes the real value.
type ParamPlaceholder struct{}

// Parse builds a Statement from already-rewritten SQL text (comments
// stripped, FOR clauses extracted by package rewrite), using the named
// dialect's grammar. Fails with errkind.SqlError carrying the underlying
// parser's own message.
func Parse(sql string, d Dialect) (*Statement, error) {
	switch d {
	case TSQL:
		return parseTSQL(quoteInternalRefs(sql, '[', ']'))
	default:
		return parseMySQL(quoteInternalRefs(sql, '`', '`'))
	}
}

// quoteInternalRefs wraps each bare $-prefixed internal-relation name
// ($planets and friends) in the dialect's identifier quotes before the
// text reaches the dialect grammar, which otherwise reads `$` as a money
// literal or system variable. String literals are left untouched; the
// rewriter has already removed comments.
func quoteInternalRefs(sql string, open, close rune) string {
	var out strings.Builder
	runes := []rune(sql)
	var quote rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			out.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
			out.WriteRune(r)
		case r == '$' && i+1 < len(runes) && isIdentStart(runes[i+1]):
			j := i + 1
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			out.WriteRune(open)
			out.WriteString(string(runes[i:j]))
			out.WriteRune(close)
			i = j - 1
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
