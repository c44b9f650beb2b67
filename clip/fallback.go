package clip

import (
	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// genericClipper clips cells without case tables by splitting them into
// simplices and clipping every simplex directly. It handles the cell types
// the tables do not cover.
type genericClipper struct {
	ds   meshclip.Dataset
	cl   *classification
	keep color
	src  *meshclip.Attributes
	sub  *meshclip.Mesh
	// orig maps subset point ids to input point ids.
	orig []int

	mesh     *meshclip.Mesh
	points   []pointSource
	cornerID map[int]int
	edgeID   map[[2]int]int
}

// pointSource is an output point at fraction t between input points a and b.
type pointSource struct {
	a, b int
	t    float64
}

// clipGeneric clips the cells ids of ds.
func clipGeneric(ds meshclip.Dataset, ids []int, cl *classification, keep color, src *meshclip.Attributes) *meshclip.Mesh {
	sub, orig := meshclip.ExtractCells(ds, ids)
	g := &genericClipper{
		ds:       ds,
		cl:       cl,
		keep:     keep,
		src:      src,
		sub:      sub,
		orig:     orig,
		mesh:     meshclip.NewMesh(nil),
		cornerID: make(map[int]int),
		edgeID:   make(map[[2]int]int),
	}
	var cellSrc []int
	var simplex []int
	for c := range sub.Types {
		if sub.Ghost(c) {
			continue
		}
		pts := sub.CellPoints(c)
		before := g.mesh.NumCells()
		forEachSimplex(sub.Types[c], pts, &simplex, g.clipSimplex)
		for range g.mesh.NumCells() - before {
			cellSrc = append(cellSrc, c)
		}
	}
	return g.finish(cellSrc)
}

// forEachSimplex splits a cell into vertices, lines or triangles keeping
// the orientation of the cell.
func forEachSimplex(t meshclip.CellType, pts []int, scratch *[]int, fn func([]int)) {
	emit := func(ids ...int) {
		*scratch = append((*scratch)[:0], ids...)
		fn(*scratch)
	}
	switch t {
	case meshclip.Vertex, meshclip.PolyVertex:
		for _, p := range pts {
			emit(p)
		}
	case meshclip.Line, meshclip.PolyLine:
		for i := 0; i+1 < len(pts); i++ {
			emit(pts[i], pts[i+1])
		}
	case meshclip.TriangleStrip:
		for i := 0; i+2 < len(pts); i++ {
			if i%2 == 0 {
				emit(pts[i], pts[i+1], pts[i+2])
			} else {
				emit(pts[i+1], pts[i], pts[i+2])
			}
		}
	case meshclip.Triangle, meshclip.Polygon:
		for i := 1; i+1 < len(pts); i++ {
			emit(pts[0], pts[i], pts[i+1])
		}
	case meshclip.Quad:
		emit(pts[0], pts[1], pts[2])
		emit(pts[0], pts[2], pts[3])
	case meshclip.Pixel:
		emit(pts[0], pts[1], pts[3])
		emit(pts[0], pts[3], pts[2])
	default:
		meshclip.Logger().Warn("clip: cell type not clipped", "type", t)
	}
}

func (g *genericClipper) kept(p int) bool {
	return colorOf(g.cl.diff[g.orig[p]]) == g.keep
}

// clipSimplex appends the kept part of a simplex given by subset point ids.
func (g *genericClipper) clipSimplex(s []int) {
	n := len(s)
	var poly [4]int
	out := poly[:0]
	switch n {
	case 1:
		if g.kept(s[0]) {
			g.mesh.AddCell(meshclip.Vertex, g.corner(s[0]))
		}
		return
	case 2:
		k0, k1 := g.kept(s[0]), g.kept(s[1])
		switch {
		case k0 && k1:
			g.mesh.AddCell(meshclip.Line, g.corner(s[0]), g.corner(s[1]))
		case k0:
			g.mesh.AddCell(meshclip.Line, g.corner(s[0]), g.edge(s[0], s[1]))
		case k1:
			g.mesh.AddCell(meshclip.Line, g.edge(s[0], s[1]), g.corner(s[1]))
		}
		return
	}
	for i, p := range s {
		q := s[(i+1)%n]
		if g.kept(p) {
			out = append(out, g.corner(p))
		}
		if g.kept(p) != g.kept(q) {
			out = append(out, g.edge(p, q))
		}
	}
	switch len(out) {
	case 3:
		g.mesh.AddCell(meshclip.Triangle, out...)
	case 4:
		g.mesh.AddCell(meshclip.Quad, out...)
	}
}

func (g *genericClipper) corner(p int) int {
	in := g.orig[p]
	id, ok := g.cornerID[in]
	if !ok {
		id = len(g.points)
		g.cornerID[in] = id
		g.points = append(g.points, pointSource{a: in, b: in})
	}
	return id
}

func (g *genericClipper) edge(p, q int) int {
	e := newEdge(g.orig[p], g.orig[q], g.cl.diff)
	key := [2]int{e.a, e.b}
	id, ok := g.edgeID[key]
	if !ok {
		id = len(g.points)
		g.edgeID[key] = id
		g.points = append(g.points, pointSource{a: e.a, b: e.b, t: e.t})
	}
	return id
}

func (g *genericClipper) finish(cellSrc []int) *meshclip.Mesh {
	m := g.mesh
	m.Points = make([]r3.Vec, len(g.points))
	m.PointData = g.src.NewLike(len(g.points))
	for id, ps := range g.points {
		pa := g.ds.Point(ps.a)
		if ps.a == ps.b {
			m.Points[id] = pa
			meshclip.CopyTuple(&m.PointData, id, g.src, ps.a)
			continue
		}
		pb := g.ds.Point(ps.b)
		m.Points[id] = d3.Lerp(pa, pb, ps.t)
		meshclip.LerpTuple(&m.PointData, id, g.src, ps.a, ps.b, ps.t)
	}
	m.CellData = g.sub.CellData.NewLike(len(cellSrc))
	for i, c := range cellSrc {
		meshclip.CopyTuple(&m.CellData, i, &g.sub.CellData, c)
	}
	return m
}
