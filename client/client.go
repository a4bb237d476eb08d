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

// Package client is the cursor-style façade over the engine (spec.md §6):
// a Connection carries a permission set and an optional shared cache, a
// Cursor executes exactly one statement and hands back the aggregated
// columnar result plus statistics and warnings.
package client

import (
	"context"

	"github.com/google/uuid"

	morselq "github.com/morselq/morselq"
	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/cache"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/logicalplan"
)

// Connection binds an Engine to a permission set. A Connection with no
// explicit permissions holds the full vocabulary.
type Connection struct {
	engine *morselq.Engine
	perms  map[logicalplan.Permission]struct{}
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithPermissions restricts the connection to the listed permissions.
func WithPermissions(perms ...logicalplan.Permission) ConnectionOption {
	return func(c *Connection) {
		c.perms = make(map[logicalplan.Permission]struct{}, len(perms))
		for _, p := range perms {
			c.perms[p] = struct{}{}
		}
	}
}

// WithCache installs a shared read-through blob cache on the underlying
// engine's connector.
func WithCache(cc cache.Cache) ConnectionOption {
	return func(c *Connection) { c.engine.AttachCache(cc) }
}

// NewConnection wraps engine. Cursors obtained from the same Connection
// share the engine's catalogue and cache but nothing per-query.
func NewConnection(engine *morselq.Engine, opts ...ConnectionOption) *Connection {
	c := &Connection{engine: engine}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasPermission implements logicalplan.PermissionChecker.
func (c *Connection) HasPermission(p logicalplan.Permission) bool {
	if c.perms == nil {
		return true
	}
	_, ok := c.perms[p]
	return ok
}

// Cursor returns a fresh single-shot cursor.
func (c *Connection) Cursor() *Cursor {
	return &Cursor{id: uuid.NewString(), conn: c}
}

// Cursor submits one statement and iterates its result. Execute may be
// called once; the result is materialised on first Arrow call and served
// from memory thereafter.
type Cursor struct {
	id       string
	conn     *Connection
	executed bool
	result   *morselq.Result
	table    *batch.Batch
}

// ID is the cursor's query identifier.
func (c *Cursor) ID() string { return c.id }

// Execute compiles and begins executing sql. Reusing a cursor fails with
// CursorInvalidState; obtain a new cursor per statement.
func (c *Cursor) Execute(ctx context.Context, sql string, params ...interface{}) error {
	if c.executed {
		return errkind.CursorInvalidState.New("cursor has already executed a statement")
	}
	c.executed = true
	res, err := c.conn.engine.ExecuteWithPermissions(ctx, sql, params, c.conn)
	if err != nil {
		return err
	}
	c.result = res
	return nil
}

// Arrow drains the stream and returns the whole result as one columnar
// batch. Safe to call repeatedly; the drain happens once.
func (c *Cursor) Arrow() (*batch.Batch, error) {
	if c.result == nil {
		return nil, errkind.CursorInvalidState.New("no statement has been executed")
	}
	if c.table != nil {
		return c.table, nil
	}
	t, err := c.result.ReadAll()
	if err != nil {
		return nil, err
	}
	c.table = t
	return t, nil
}

// Stats returns the query's counters as a map; an empty map before
// Execute completes.
func (c *Cursor) Stats() map[string]interface{} {
	if c.result == nil {
		return map[string]interface{}{}
	}
	return c.result.Stats.AsMap()
}

// Messages returns accumulated warnings in the order raised.
func (c *Cursor) Messages() []string {
	if c.result == nil {
		return nil
	}
	return c.result.Stats.Messages()
}
