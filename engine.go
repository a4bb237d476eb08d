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

// Package morselq is an embeddable SQL query engine over columnar
// batches. An Engine owns the process-wide pieces (catalogue, connector,
// cache, config); each call to Execute runs the full compilation
// pipeline — SQL rewrite, parse, AST rewrite, logical planning, binding,
// physical planning — and returns a lazily pulled batch stream.
package morselq

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/morselq/morselq/astrewrite"
	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/binder"
	"github.com/morselq/morselq/cache"
	"github.com/morselq/morselq/catalog"
	"github.com/morselq/morselq/config"
	"github.com/morselq/morselq/connector"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/internaldata"
	"github.com/morselq/morselq/logicalplan"
	"github.com/morselq/morselq/parse"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
	"github.com/morselq/morselq/rewrite"
	"github.com/morselq/morselq/rowexec"
	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/stats"
)

// Engine is the process-wide query engine. It is safe for concurrent use:
// everything mutable per query travels in a qctx.Context built by Execute,
// and the Catalogue serialises its own lazy population.
type Engine struct {
	cfg     *config.Config
	cat     *catalog.Catalogue
	conn    connector.Connector
	cache   cache.Cache
	log     logrus.FieldLogger
	dialect parse.Dialect
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithConfig overrides the environment-loaded config.
func WithConfig(cfg *config.Config) Option { return func(e *Engine) { e.cfg = cfg } }

// WithConnector installs the dataset connector Scanner operators read
// through. Without one, only internal ($-prefixed) relations resolve.
func WithConnector(c connector.Connector) Option { return func(e *Engine) { e.conn = c } }

// WithCache installs the shared read-through blob cache. It is attached
// to the connector only when the connector advertises Cacheable.
func WithCache(c cache.Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger overrides the standard logrus logger.
func WithLogger(l logrus.FieldLogger) Option { return func(e *Engine) { e.log = l } }

// WithDialect selects the grammar statements are parsed with; the
// default is MySQL.
func WithDialect(d parse.Dialect) Option { return func(e *Engine) { e.dialect = d } }

// New builds an Engine, registers the built-in relations, and wires the
// cache into the connector when its capabilities allow.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg: config.Load(),
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cat = catalog.New(e.resolveRelation)
	internaldata.RegisterBuiltins(e.cat)

	if e.cache != nil {
		e.AttachCache(e.cache)
	}
	return e
}

// AttachCache installs c as the shared read-through blob cache, wiring it
// into the connector when the connector advertises Cacheable.
func (e *Engine) AttachCache(c cache.Cache) {
	e.cache = c
	if c == nil || e.conn == nil || !e.conn.Capabilities().Cacheable {
		return
	}
	if bc, ok := e.conn.(*connector.BlobConnector); ok {
		bc.WithCache(c)
	}
}

// Catalogue exposes the engine's relation registry, shared read-only
// across queries.
func (e *Engine) Catalogue() *catalog.Catalogue { return e.cat }

// Config returns the engine's resolved tunables.
func (e *Engine) Config() *config.Config { return e.cfg }

// resolveRelation is the Catalogue's lazy Resolver: internal relations
// are pre-registered, everything else is a connector lookup.
func (e *Engine) resolveRelation(name string) (schema.Schema, *catalog.Statistics, error) {
	if internaldata.IsInternal(name) || e.conn == nil {
		return nil, nil, errkind.DatasetNotFound.New(name)
	}
	sch, err := e.conn.GetDatasetSchema(context.Background(), name)
	if err != nil {
		return nil, nil, err
	}
	return sch, nil, nil
}

// Result is one executed statement's output: a pull stream of batches
// already renamed to user-facing query columns, the schema those batches
// share, and the query's statistics.
type Result struct {
	Stream rowexec.Stream
	Schema schema.Schema
	Stats  *stats.QueryStatistics
}

// ReadAll drains the stream into a single concatenated batch. A stream
// that yields nothing returns an empty batch carrying the result schema.
func (r *Result) ReadAll() (*batch.Batch, error) {
	var batches []*batch.Batch
	defer r.Stream.Close()
	for {
		b, err := r.Stream.Next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		batches = append(batches, b)
	}
	r.Stats.Finish()
	if len(batches) == 0 {
		return batch.Empty(r.Schema), nil
	}
	return batch.Concat(batches), nil
}

// Execute compiles and begins executing sqlText with no permission
// restrictions. Positional ? placeholders are substituted from params.
func (e *Engine) Execute(ctx context.Context, sqlText string, params []interface{}) (*Result, error) {
	return e.ExecuteWithPermissions(ctx, sqlText, params, nil)
}

// ExecuteWithPermissions runs the full pipeline. Multiple ;-separated
// statements are compiled and executed in order; the last statement's
// stream is returned, earlier ones are drained and discarded. Every
// statement is rewritten against the full params list, so a statement
// whose placeholder count differs from len(params) fails with
// ParameterError.
func (e *Engine) ExecuteWithPermissions(ctx context.Context, sqlText string, params []interface{}, perms logicalplan.PermissionChecker) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	qs := stats.New(uuid.NewString())
	ctx = stats.NewContext(ctx, qs)

	qc := &qctx.Context{
		Ctx:                  ctx,
		Catalogue:            e.cat,
		Connector:            e.conn,
		Internal:             internaldata.Read,
		Stats:                qs,
		Now:                  time.Now().UTC(),
		Log:                  e.log.WithField("query_id", qs.QueryID),
		Cfg:                  e.cfg,
		MorselSize:           e.cfg.MorselSize,
		MaxGreedyMemoryBytes: e.cfg.MaxGreedyMemoryBytes,
		HeapSortThreshold:    e.cfg.HeapSortThreshold,
	}

	parseStart := time.Now()
	clean, filters, err := rewrite.Rewrite(sqlText)
	if err != nil {
		return nil, err
	}
	pieces := splitStatements(clean)
	if len(pieces) == 0 {
		return nil, errkind.MissingSqlStatement.New("")
	}

	stmts := make([]*parse.Statement, 0, len(pieces))
	for _, piece := range pieces {
		stmt, err := parse.Parse(piece, e.dialect)
		if err != nil {
			return nil, err
		}
		stmt, err = astrewrite.Rewrite(stmt, params, filters, astrewrite.Defaults{Now: &qc.Now})
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	qs.TimeParsing = time.Since(parseStart)

	var result *Result
	for i, stmt := range stmts {
		res, err := e.executeStatement(stmt, qc, perms)
		if err != nil {
			return nil, err
		}
		if i < len(stmts)-1 {
			if _, err := res.ReadAll(); err != nil {
				return nil, err
			}
			continue
		}
		result = res
	}
	return result, nil
}

func (e *Engine) executeStatement(stmt *parse.Statement, qc *qctx.Context, perms logicalplan.PermissionChecker) (*Result, error) {
	planStart := time.Now()
	lp, err := logicalplan.Build(stmt, perms)
	if err != nil {
		return nil, err
	}

	bindStart := time.Now()
	bound, err := binder.Bind(lp, qc)
	if err != nil {
		return nil, err
	}
	qc.Stats.TimeBinding = time.Since(bindStart)

	pp, err := physicalplan.Build(bound, physicalplan.Tunables{
		MorselSize:        e.cfg.MorselSize,
		HeapSortThreshold: e.cfg.HeapSortThreshold,
	})
	if err != nil {
		return nil, err
	}
	qc.Stats.TimePlanning = time.Since(planStart)

	op, err := rowexec.Build(pp, qc)
	if err != nil {
		return nil, err
	}
	stream, err := op.Execute()
	if err != nil {
		return nil, err
	}

	qc.Log.WithField("stage", "execute").Debug("plan ready")
	return &Result{Stream: stream, Schema: resultSchema(pp), Stats: qc.Stats}, nil
}

// resultSchema is the user-facing schema of a plan's root: the root's
// output schema with Exit's query-column renames already applied.
func resultSchema(pp *physicalplan.Plan) schema.Schema {
	root := pp.Node(pp.Root)
	sch := make(schema.Schema, len(root.OutputSchema))
	copy(sch, root.OutputSchema)
	if root.Kind == physicalplan.ExitKind {
		for i := range sch {
			if i < len(root.QueryColumns) {
				sch[i].QueryColumn = root.QueryColumns[i]
			}
		}
	}
	return sch
}

// splitStatements splits already-rewritten SQL on statement-separating
// semicolons. Comments are gone by this point, so only quoted strings
// need skipping.
func splitStatements(clean string) []string {
	var out []string
	var quote rune
	start := 0
	for i, r := range clean {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			if s := trimStatement(clean[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := trimStatement(clean[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func trimStatement(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\n' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\n' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
