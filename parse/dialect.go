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

// Dialect selects which grammar Parse runs a statement through: the
// default "mysql" dialect is dolthub/vitess's sqlparser, "tsql" is
// ha1tch/tsqlparser. The dialects differ in what they can express (USING
// joins and SHOW are mysql-only; FULL OUTER JOIN, TOP, and WITHIN GROUP
// ordering are tsql-only) but both lower into the same Statement shape.
type Dialect int

const (
	MySQL Dialect = iota
	TSQL
)

func (d Dialect) String() string {
	if d == TSQL {
		return "tsql"
	}
	return "mysql"
}
