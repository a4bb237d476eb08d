package rowexec

import (
	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/config"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/internaldata"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
)

// show yields one of the introspection relations (spec.md §4.7's Show*
// row): columns, variables, functions, databases, or a CREATE rendering.
// Like Explain it is a terminal with no producers; the row data comes
// from package internaldata, the column shape was fixed at bind time.
type show struct {
	n  *physicalplan.Node
	qc *qctx.Context
}

func newShow(n *physicalplan.Node, qc *qctx.Context) *show {
	return &show{n: n, qc: qc}
}

func (s *show) Name() string { return "Show" }
func (s *show) Config() map[string]interface{} {
	cfg := map[string]interface{}{"kind": s.n.ShowKind}
	if s.n.ShowTarget != "" {
		cfg["target"] = s.n.ShowTarget
	}
	return cfg
}
func (s *show) IsGreedy() bool     { return false }
func (s *show) ProducerArity() int { return 0 }

func (s *show) Execute() (Stream, error) {
	b, err := s.materialise()
	if err != nil {
		return nil, err
	}
	return newSliceStream(b.Rekey(s.n.OutputSchema)), nil
}

func (s *show) materialise() (*batch.Batch, error) {
	switch s.n.ShowKind {
	case "COLUMNS":
		return internaldata.ShowColumns(s.qc.Catalogue), nil
	case "VARIABLES":
		cfg := s.qc.Cfg
		if cfg == nil {
			cfg = config.Default()
		}
		return internaldata.ShowVariables(cfg), nil
	case "FUNCTIONS":
		return internaldata.ShowFunctions(), nil
	case "DATABASES":
		return internaldata.ShowDatabases(), nil
	case "CREATE":
		return internaldata.ShowCreate(s.qc.Catalogue, s.n.ShowTarget)
	default:
		return nil, errkind.UnsupportedSyntax.New("SHOW " + s.n.ShowKind)
	}
}
