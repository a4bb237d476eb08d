package rowexec

import (
	"container/heap"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/expr"
	"github.com/morselq/morselq/physicalplan"
	"github.com/morselq/morselq/qctx"
	"github.com/morselq/morselq/schema"
)

// heapSort is the Sort+Limit fusion physicalplan.Build lowers a small-K
// top-K query to: a bounded max-heap of size K, so memory never exceeds
// O(K) regardless of input size (spec.md §4.7: "output size ≤ K").
type heapSort struct {
	n        *physicalplan.Node
	producer Operator
	qc       *qctx.Context
}

func newHeapSort(n *physicalplan.Node, producer Operator, qc *qctx.Context) *heapSort {
	return &heapSort{n: n, producer: producer, qc: qc}
}

func (h *heapSort) Name() string { return "HeapSort" }
func (h *heapSort) Config() map[string]interface{} {
	return map[string]interface{}{"k": h.n.HeapK, "keys": len(h.n.OrderBy)}
}
func (h *heapSort) IsGreedy() bool     { return true }
func (h *heapSort) ProducerArity() int { return 1 }

type heapRow struct {
	values []interface{}
	row    map[schema.Identity]interface{}
	seq    int64
}

// rowHeap is a max-heap ordered so the worst-ranked row (the one a new,
// better row should evict) sits at the top; Less is inverted relative to
// the desired output order for exactly that reason.
type rowHeap struct {
	rows    []*heapRow
	orderBy []orderItemLite
}

type orderItemLite struct {
	idx  int
	desc bool
}

func (h *rowHeap) Len() int { return len(h.rows) }
func (h *rowHeap) Less(i, j int) bool {
	// worse (should be evicted first) sorts first in this max-heap.
	c := compareHeapRows(h.rows[i], h.rows[j], h.orderBy)
	if c != 0 {
		return c > 0
	}
	return h.rows[i].seq > h.rows[j].seq
}
func (h *rowHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }
func (h *rowHeap) Push(x interface{}) { h.rows = append(h.rows, x.(*heapRow)) }
func (h *rowHeap) Pop() interface{} {
	old := h.rows
	n := len(old)
	item := old[n-1]
	h.rows = old[:n-1]
	return item
}

func compareHeapRows(a, b *heapRow, order []orderItemLite) int {
	for _, o := range order {
		c := expr.Compare(a.values[o.idx], b.values[o.idx])
		if o.desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	if a.seq < b.seq {
		return -1
	}
	if a.seq > b.seq {
		return 1
	}
	return 0
}

func (h *heapSort) Execute() (Stream, error) {
	up, err := h.producer.Execute()
	if err != nil {
		return nil, err
	}
	defer up.Close()

	order := make([]orderItemLite, len(h.n.OrderBy))
	for i, o := range h.n.OrderBy {
		order[i] = orderItemLite{idx: i, desc: o.Desc}
	}

	k := int(h.n.HeapK)
	hp := &rowHeap{orderBy: order}
	heap.Init(hp)

	var seq int64
	for {
		if err := checkCancelled(h.qc); err != nil {
			return nil, err
		}
		b, err := up.Next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		keys := make([][]interface{}, len(h.n.OrderBy))
		for i, o := range h.n.OrderBy {
			vals, err := expr.EvalBatch(o.Expr, b)
			if err != nil {
				return nil, err
			}
			keys[i] = vals
		}
		for r := 0; r < b.NumRows(); r++ {
			values := make([]interface{}, len(h.n.OrderBy))
			for i := range keys {
				values[i] = keys[i][r]
			}
			item := &heapRow{values: values, row: b.Row(r), seq: seq}
			seq++
			if hp.Len() < k {
				heap.Push(hp, item)
				continue
			}
			if k > 0 && compareHeapRows(item, hp.rows[0], order) < 0 {
				heap.Pop(hp)
				heap.Push(hp, item)
			}
		}
	}

	rows := append([]*heapRow{}, hp.rows...)
	// Re-sort ascending by the same keys for final output order (the heap
	// itself is only ordered for O(log K) eviction, not final emission).
	sortHeapRowsAscending(rows, order)

	return newSliceStream(rowsToBatch(rows, h.n.OutputSchema)), nil
}

func sortHeapRowsAscending(rows []*heapRow, order []orderItemLite) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0; j-- {
			if compareHeapRows(rows[j-1], rows[j], order) <= 0 {
				break
			}
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
}

func rowsToBatch(rows []*heapRow, sch schema.Schema) *batch.Batch {
	cols := make([]batch.Column, len(sch))
	for i, c := range sch {
		vals := make([]interface{}, len(rows))
		for j, r := range rows {
			vals[j] = r.row[c.Identity]
		}
		cols[i] = batch.Column{Identity: c.Identity, Values: vals}
	}
	return batch.New(sch, cols)
}
