// Package qctx is the explicit, per-query QueryContext spec.md §9's
// Design Notes call for: the process-wide Catalogue and function registry
// are populated once at init and are immutable thereafter, but everything
// that varies per query (cancellation token, statistics, the engine clock
// a FOR DATES IN clause resolves against, per-engine tunables) travels
// through this struct rather than as global state.
package qctx

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/catalog"
	"github.com/morselq/morselq/config"
	"github.com/morselq/morselq/connector"
	"github.com/morselq/morselq/stats"
)

// InternalProvider materialises a built-in, zero-I/O relation such as
// $planets (spec.md §8) or a Show* introspection relation by name.
type InternalProvider func(name string) (*batch.Batch, error)

// Context carries everything a bind/plan/execute call needs beyond the
// plan itself. Ctx is the cancellation token spec.md §5 describes: it
// transitions to Cancelled/DeadlineExceeded between batch emissions,
// never mid-batch.
type Context struct {
	Ctx       context.Context
	Catalogue *catalog.Catalogue
	Connector connector.Connector
	Internal  InternalProvider
	Stats     *stats.QueryStatistics
	Now       time.Time
	Log       logrus.FieldLogger
	Cfg       *config.Config

	MorselSize            int
	MaxGreedyMemoryBytes  int64
	HeapSortThreshold     int64
}
