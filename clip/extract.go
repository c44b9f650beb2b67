package clip

import (
	"context"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/parallel"
)

// output is the clip result under construction. Point ids are laid out as
// kept points, then edge points, then centroids.
type output struct {
	mesh     *meshclip.Mesh
	numKept  int
	numEdges int
	// Contributors of centroid k are centroidIDs[centroidOff[k]:centroidOff[k+1]].
	centroidOff []int
	centroidIDs []int
}

func newOutput(ds meshclip.Dataset, cl *classification, loc *edgeLocator, total tally) *output {
	return &output{
		mesh: &meshclip.Mesh{
			Types:        make([]meshclip.CellType, total.cells),
			Offsets:      make([]int, total.cells+1),
			Connectivity: make([]int, total.conn),
			CellData:     ds.CellAttributes().NewLike(total.cells),
		},
		numKept:     cl.numKept,
		numEdges:    len(loc.edges),
		centroidOff: make([]int, total.centroids+1),
		centroidIDs: make([]int, total.centroidIDs),
	}
}

func (out *output) numPoints() int {
	return out.numKept + out.numEdges + len(out.centroidOff) - 1
}

// extractCells writes the cells of the productive batches at their planned
// offsets and records the contributors of every centroid.
func extractCells(ctx context.Context, pool *parallel.Pool, ds meshclip.Dataset, cl *classification, ev *evaluation, p plan, loc *edgeLocator, keep color, out *output) error {
	m := out.mesh
	cellData := ds.CellAttributes()
	centroidBase := out.numKept + out.numEdges
	err := pool.Range(ctx, len(p.batches), 1, func(lo, hi int) {
		var buf [8]int
		var slots []int
		for _, b := range p.batches[lo:hi] {
			cur := b.offset
			for c := b.lo; c < b.hi; c++ {
				idx := ev.caseIdx[c]
				if idx == skipCell {
					continue
				}
				typ, ids := ds.Cell(c, buf[:0])
				entry := &tableFor(typ).cases[idx]
				if cap(slots) < entry.slots {
					slots = make([]int, entry.slots)
				}
				slots = slots[:entry.slots]
				for si := range entry.shapes {
					s := &entry.shapes[si]
					if s.color != keep {
						continue
					}
					if s.tag == shapeCentroid {
						out.centroidOff[cur.centroids] = cur.centroidIDs
						for _, v := range s.verts {
							out.centroidIDs[cur.centroidIDs] = out.resolve(v, ids, cl, loc, slots)
							cur.centroidIDs++
						}
						slots[s.slot] = centroidBase + cur.centroids
						cur.centroids++
						continue
					}
					m.Types[cur.cells] = s.tag.cellType()
					m.Offsets[cur.cells] = cur.conn
					for _, v := range s.verts {
						m.Connectivity[cur.conn] = out.resolve(v, ids, cl, loc, slots)
						cur.conn++
					}
					meshclip.CopyTuple(&m.CellData, cur.cells, cellData, c)
					cur.cells++
				}
			}
		}
	})
	if err != nil {
		return err
	}
	m.Offsets[len(m.Types)] = len(m.Connectivity)
	out.centroidOff[len(out.centroidOff)-1] = len(out.centroidIDs)
	return nil
}

// resolve returns the output point id of a vertex of cell ids.
func (out *output) resolve(v vertexSource, ids []int, cl *classification, loc *edgeLocator, slots []int) int {
	switch v.kind {
	case fromCorner:
		return cl.pointMap[ids[v.a]]
	case fromEdge:
		return out.numKept + loc.lookup(ids[v.a], ids[v.b])
	case fromCentroid:
		return slots[v.a]
	}
	panic("bug: unknown vertex source kind")
}
