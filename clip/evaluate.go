package clip

import (
	"context"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/parallel"
)

// skipCell marks cells that produce no table output.
const skipCell = -1

// edge is a crossed edge between points a < b. The crossing lies at
// fraction t from a towards b.
type edge struct {
	a, b int
	t    float64
}

func newEdge(p, q int, diff []float64) edge {
	if p > q {
		p, q = q, p
	}
	// Computed from the lower id so that every cell sharing the edge
	// obtains the same value.
	return edge{a: p, b: q, t: diff[p] / (diff[p] - diff[q])}
}

func (t *tally) add(o tally) {
	t.cells += o.cells
	t.conn += o.conn
	t.centroids += o.centroids
	t.centroidIDs += o.centroidIDs
}

// batch is a contiguous range of input cells. The offsets are the start of
// the batch's output in the cell, connectivity, centroid and centroid
// contributor arrays.
type batch struct {
	lo, hi int
	tally
	offset tally
	edges  []edge
}

type evaluation struct {
	// caseIdx is the case of every cell, skipCell if it produces nothing.
	caseIdx     []int16
	batches     []batch
	unsupported []int
}

func caseIndex(diff []float64, ids []int) int {
	idx := 0
	for i := len(ids) - 1; i >= 0; i-- {
		idx <<= 1
		if colorOf(diff[ids[i]]) == above {
			idx |= 1
		}
	}
	return idx
}

// evaluate computes the case of every cell and the output each batch of
// cells will produce.
func evaluate(ctx context.Context, pool *parallel.Pool, ds meshclip.Dataset, cl *classification, cfg Config) (*evaluation, error) {
	nc := ds.NumCells()
	size := cfg.batchSize()
	nb := (nc + size - 1) / size
	keep := cfg.keptColor()
	ev := &evaluation{
		caseIdx: make([]int16, nc),
		batches: make([]batch, nb),
	}
	unsupported := make([][]int, nb)
	err := pool.Range(ctx, nb, 1, func(lo, hi int) {
		var buf [8]int
		for bi := lo; bi < hi; bi++ {
			b := &ev.batches[bi]
			b.lo, b.hi = bi*size, min((bi+1)*size, nc)
			for c := b.lo; c < b.hi; c++ {
				ev.caseIdx[c] = skipCell
				typ, ids := ds.Cell(c, buf[:0])
				if typ == meshclip.EmptyCell || ds.Ghost(c) {
					continue
				}
				tbl := tableFor(typ)
				if tbl == nil {
					unsupported[bi] = append(unsupported[bi], c)
					continue
				}
				idx := caseIndex(cl.diff, ids)
				entry := &tbl.cases[idx]
				if entry.count[keep].cells == 0 {
					continue
				}
				ev.caseIdx[c] = int16(idx)
				b.tally.add(entry.count[keep])
				for _, e := range entry.edges[keep] {
					b.edges = append(b.edges, newEdge(ids[e.a], ids[e.b], cl.diff))
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	for _, u := range unsupported {
		ev.unsupported = append(ev.unsupported, u...)
	}
	return ev, nil
}
