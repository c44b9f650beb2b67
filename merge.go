package meshclip

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ kdtree.Interface  = kdPoints{}
	_ kdtree.Comparable = kdPoint{}
)

// MergePoints returns a copy of m in which points closer than tol to an
// earlier point are replaced by that point. The surviving point keeps its
// attribute tuple. Clipping produces coincident points where cells of
// different kinds meet (table cells next to fallback cells); MergePoints
// welds them.
func MergePoints(m *Mesh, tol float64) *Mesh {
	np := len(m.Points)
	remap := make([]int, np)
	for i := range remap {
		remap[i] = -1
	}
	var kept []int
	if np > 0 {
		pts := make(kdPoints, np)
		for i, p := range m.Points {
			pts[i] = kdPoint{Vec: p, id: i}
		}
		tree := kdtree.New(pts, false)
		for i, p := range m.Points {
			if remap[i] >= 0 {
				continue
			}
			newID := len(kept)
			kept = append(kept, i)
			remap[i] = newID
			keeper := kdtree.NewDistKeeper(tol * tol)
			tree.NearestSet(keeper, kdPoint{Vec: p, id: -1})
			for _, c := range keeper.Heap {
				if c.Comparable == nil {
					continue
				}
				if j := c.Comparable.(kdPoint).id; remap[j] < 0 {
					remap[j] = newID
				}
			}
		}
	}

	out := &Mesh{
		Points:       make([]r3.Vec, len(kept)),
		Types:        append([]CellType(nil), m.Types...),
		Offsets:      append([]int(nil), m.Offsets...),
		Connectivity: make([]int, len(m.Connectivity)),
		PointData:    m.PointData.NewLike(len(kept)),
		CellData:     m.CellData.Clone(),
	}
	if m.Ghosts != nil {
		out.Ghosts = append([]uint8(nil), m.Ghosts...)
	}
	if len(out.Offsets) == 0 {
		out.Offsets = []int{0}
	}
	for newID, oldID := range kept {
		out.Points[newID] = m.Points[oldID]
		CopyTuple(&out.PointData, newID, &m.PointData, oldID)
	}
	for i, id := range m.Connectivity {
		out.Connectivity[i] = remap[id]
	}
	return out
}

type kdPoint struct {
	r3.Vec
	id int
}

type kdPoints []kdPoint

func (k kdPoints) Index(i int) kdtree.Comparable { return k[i] }

func (k kdPoints) Len() int { return len(k) }

func (k kdPoints) Pivot(d kdtree.Dim) int {
	p := kdPointPlane{dim: d, points: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (k kdPoints) Slice(start, end int) kdtree.Interface { return k[start:end] }

// Compare returns a_d - b_d.
func (a kdPoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return kdElem(a.Vec, d) - kdElem(b.(kdPoint).Vec, d)
}

func (a kdPoint) Dims() int { return 3 }

// Distance returns the squared euclidean distance.
func (a kdPoint) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.Vec, b.(kdPoint).Vec))
}

func kdElem(v r3.Vec, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

type kdPointPlane struct {
	dim    kdtree.Dim
	points kdPoints
}

func (p kdPointPlane) Less(i, j int) bool {
	return kdElem(p.points[i].Vec, p.dim) < kdElem(p.points[j].Vec, p.dim)
}

func (p kdPointPlane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }

func (p kdPointPlane) Len() int { return len(p.points) }

func (p kdPointPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
