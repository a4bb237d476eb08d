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

package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/types"
)

// CollectionConnector is the Collection-mode Connector (spec.md §6): a
// live queryable backend rather than a blob store, here a MySQL database
// reached through go-sql-driver/mysql, the same client the teacher's own
// driver package exposes the inverse direction of (this engine embedding
// a MySQL client instead of acting as a MySQL server).
type CollectionConnector struct {
	db *sql.DB
}

// NewCollectionConnector opens a MySQL connection pool against dsn.
func NewCollectionConnector(dsn string) (*CollectionConnector, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errkind.Internal.New(err.Error())
	}
	return &CollectionConnector{db: db}, nil
}

func (c *CollectionConnector) Mode() Mode { return Collection }

func (c *CollectionConnector) Capabilities() Capabilities {
	return Capabilities{Asynchronous: true}
}

func (c *CollectionConnector) GetDatasetSchema(ctx context.Context, dataset string) (schema.Schema, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", quoteIdent(dataset)))
	if err != nil {
		return nil, errkind.DatasetNotFound.New(dataset)
	}
	defer rows.Close()
	return columnTypesToSchema(rows)
}

func (c *CollectionConnector) ReadDataset(ctx context.Context, dataset string, _ TemporalRange) (BatchIterator, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", quoteIdent(dataset)))
	if err != nil {
		return nil, errkind.DatasetNotFound.New(dataset)
	}
	defer rows.Close()

	sch, err := columnTypesToSchema(rows)
	if err != nil {
		return nil, err
	}
	cols := make([][]interface{}, len(sch))
	for {
		dest := make([]interface{}, len(sch))
		scanTargets := make([]interface{}, len(sch))
		for i := range dest {
			scanTargets[i] = &dest[i]
		}
		if !rows.Next() {
			break
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, errkind.Internal.New(err.Error())
		}
		for i, v := range dest {
			cols[i] = append(cols[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errkind.Internal.New(err.Error())
	}

	bcols := make([]batch.Column, len(sch))
	for i := range sch {
		bcols[i] = batch.Column{Identity: sch[i].Identity, Values: cols[i]}
	}
	return NewSliceIterator([]*batch.Batch{batch.New(sch, bcols)}), nil
}

func columnTypesToSchema(rows *sql.Rows) (schema.Schema, error) {
	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, errkind.Internal.New(err.Error())
	}
	sch := make(schema.Schema, len(cts))
	for i, ct := range cts {
		sch[i] = schema.Column{
			Identity:    schema.NewIdentity(ct.Name()),
			QueryColumn: ct.Name(),
			Type:        mysqlTypeToEngine(ct.DatabaseTypeName()),
			Nullable:    true,
		}
	}
	return sch, nil
}

func mysqlTypeToEngine(dbType string) types.Type {
	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT":
		return types.Of(types.INTEGER)
	case "FLOAT", "DOUBLE", "DECIMAL":
		return types.Of(types.DOUBLE)
	case "DATE", "DATETIME", "TIMESTAMP":
		return types.Of(types.TIMESTAMP)
	case "TINYINT(1)", "BOOL", "BOOLEAN":
		return types.Of(types.BOOLEAN)
	default:
		return types.Of(types.VARCHAR)
	}
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
