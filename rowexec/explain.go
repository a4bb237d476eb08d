package rowexec

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
)

// explain does not execute its target plan; it renders the operator tree
// as a single VARCHAR column (spec.md §4.7), using olekukonko/tablewriter
// for the box-drawing the way a CLI driver would render any other result
// set, rather than hand-rolling indentation.
type explain struct {
	n      *physicalplan.Node
	target *physicalplan.Plan
	qc     *qctx.Context
}

func newExplain(n *physicalplan.Node, qc *qctx.Context) (*explain, error) {
	return &explain{n: n, target: n.Explained, qc: qc}, nil
}

func (e *explain) Name() string                   { return "Explain" }
func (e *explain) Config() map[string]interface{} { return map[string]interface{}{} }
func (e *explain) IsGreedy() bool                 { return false }
func (e *explain) ProducerArity() int             { return 1 }

func (e *explain) Execute() (Stream, error) {
	var lines []string
	renderNode(e.target, e.target.Root, 0, &lines)

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"plan"})
	table.SetAutoWrapText(false)
	for _, l := range lines {
		table.Append([]string{l})
	}
	table.Render()

	sch := e.n.OutputSchema
	col := batch.Column{Identity: sch[0].Identity, Values: []interface{}{buf.String()}}
	return newSliceStream(batch.New(sch, []batch.Column{col})), nil
}

func renderNode(p *physicalplan.Plan, id physicalplan.NodeID, depth int, out *[]string) {
	n := p.Node(id)
	if n == nil {
		return
	}
	*out = append(*out, fmt.Sprintf("%s%s", strings.Repeat("  ", depth), n.Kind.String()))
	for _, child := range n.Producers {
		renderNode(p, child, depth+1, out)
	}
}
