package clip

import (
	"slices"
	"strconv"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// color is the side of the threshold a corner or output shape lies on.
type color uint8

const (
	below color = iota // scalar < threshold
	above              // scalar >= threshold
)

type vertexKind uint8

const (
	fromCorner vertexKind = iota
	fromEdge
	fromCentroid
)

// vertexSource names where an output vertex comes from: a cell corner a,
// the crossing on the edge between corners a and b (a < b) or the centroid
// registered under slot a earlier in the same case.
type vertexSource struct {
	kind vertexKind
	a, b uint8
}

func cornerSrc(i int) vertexSource { return vertexSource{kind: fromCorner, a: uint8(i)} }

func edgeSrc(i, j int) vertexSource {
	if i > j {
		i, j = j, i
	}
	return vertexSource{kind: fromEdge, a: uint8(i), b: uint8(j)}
}

func centroidSrc(slot int) vertexSource { return vertexSource{kind: fromCentroid, a: uint8(slot)} }

type shapeTag uint8

const (
	shapeVertex shapeTag = iota + 1
	shapeLine
	shapeTriangle
	shapeQuad
	shapePixel
	shapeTetra
	shapePyramid
	shapeWedge
	shapeHexahedron
	shapeVoxel
	// shapeCentroid does not produce a cell. It registers a new point at
	// the mean of its vertices for use by the shapes that follow it.
	shapeCentroid
)

func (s shapeTag) cellType() meshclip.CellType {
	switch s {
	case shapeVertex:
		return meshclip.Vertex
	case shapeLine:
		return meshclip.Line
	case shapeTriangle:
		return meshclip.Triangle
	case shapeQuad:
		return meshclip.Quad
	case shapePixel:
		return meshclip.Pixel
	case shapeTetra:
		return meshclip.Tetra
	case shapePyramid:
		return meshclip.Pyramid
	case shapeWedge:
		return meshclip.Wedge
	case shapeHexahedron:
		return meshclip.Hexahedron
	case shapeVoxel:
		return meshclip.Voxel
	}
	panic("bug: case table shape tag " + strconv.Itoa(int(s)) + " has no cell type")
}

func wholeShape(c meshclip.CellType) shapeTag {
	switch c {
	case meshclip.Vertex:
		return shapeVertex
	case meshclip.Line:
		return shapeLine
	case meshclip.Triangle:
		return shapeTriangle
	case meshclip.Quad:
		return shapeQuad
	case meshclip.Pixel:
		return shapePixel
	case meshclip.Tetra:
		return shapeTetra
	case meshclip.Pyramid:
		return shapePyramid
	case meshclip.Wedge:
		return shapeWedge
	case meshclip.Hexahedron:
		return shapeHexahedron
	case meshclip.Voxel:
		return shapeVoxel
	}
	panic("bug: no case table for " + c.String())
}

type shape struct {
	tag   shapeTag
	color color
	slot  int // centroid slot, only for shapeCentroid.
	verts []vertexSource
}

// tally is the output a case produces for one side.
type tally struct {
	cells       int
	conn        int
	centroids   int
	centroidIDs int
}

// caseEntry is the decomposition of a cell for one corner pattern. Shapes of
// both colors are listed; a centroid shape always precedes the shapes that
// reference its slot.
type caseEntry struct {
	shapes []shape
	count  [2]tally
	// edges lists the distinct crossed edges referenced by each color.
	edges [2][]vertexSource
	slots int
}

type caseTable struct {
	topo  *topology
	cases []caseEntry
}

var tables = func() (m [meshclip.Pyramid + 1]*caseTable) {
	for _, t := range []*topology{topoVertex, topoLine, topoTri, topoQuad, topoPixel,
		topoTetra, topoPyramid, topoWedge, topoHex, topoVoxel} {
		m[t.cell] = buildTable(t)
	}
	return m
}()

// tableFor returns the case table for c or nil if c is not table supported.
func tableFor(c meshclip.CellType) *caseTable {
	if int(c) >= len(tables) {
		return nil
	}
	return tables[c]
}

func buildTable(t *topology) *caseTable {
	n := len(t.ref)
	ct := &caseTable{topo: t, cases: make([]caseEntry, 1<<n)}
	full := uint(1)<<n - 1
	for idx := range ct.cases {
		b := caseBuilder{topo: t}
		b.generate(below, full&^uint(idx))
		b.generate(above, uint(idx))
		ct.cases[idx] = b.entry()
	}
	return ct
}

type caseBuilder struct {
	topo    *topology
	color   color
	side    uint // corners on the side being generated.
	shapes  []shape
	slotPos []r3.Vec
}

func (b *caseBuilder) kept(corner int) bool { return b.side>>corner&1 != 0 }

func (b *caseBuilder) generate(c color, side uint) {
	b.color, b.side = c, side
	t := b.topo
	n := len(t.ref)
	switch {
	case side == 0:
		return
	case side == uint(1)<<n-1:
		verts := make([]vertexSource, n)
		for i := range verts {
			verts[i] = cornerSrc(i)
		}
		b.add(wholeShape(t.cell), verts)
		return
	}
	switch t.dim {
	case 1:
		if b.kept(0) {
			b.add(shapeLine, []vertexSource{cornerSrc(0), edgeSrc(0, 1)})
		} else {
			b.add(shapeLine, []vertexSource{edgeSrc(0, 1), cornerSrc(1)})
		}
	case 2:
		for _, poly := range b.pieces(t.loop) {
			for _, p := range fan(poly) {
				if len(p) == 3 {
					b.add(shapeTriangle, p)
				} else {
					b.add(shapeQuad, p)
				}
			}
		}
	case 3:
		b.solid()
	default:
		panic("bug: partial case for " + t.cell.String())
	}
}

// pieces clips a corner cycle to the current side. Walking the cycle keeps
// its orientation. On a saddle quad the above side stays connected while the
// below side splits into two corner triangles, so that neighbouring cells
// sharing the face agree.
func (b *caseBuilder) pieces(loop []int) [][]vertexSource {
	n := len(loop)
	if n == 4 && b.color == below &&
		b.kept(loop[0]) == b.kept(loop[2]) && b.kept(loop[1]) == b.kept(loop[3]) &&
		b.kept(loop[0]) != b.kept(loop[1]) {
		var out [][]vertexSource
		for i, c := range loop {
			if b.kept(c) {
				prev, next := loop[(i+n-1)%n], loop[(i+1)%n]
				out = append(out, []vertexSource{edgeSrc(prev, c), cornerSrc(c), edgeSrc(c, next)})
			}
		}
		return out
	}
	var poly []vertexSource
	for i, c := range loop {
		next := loop[(i+1)%n]
		if b.kept(c) {
			poly = append(poly, cornerSrc(c))
		}
		if b.kept(c) != b.kept(next) {
			poly = append(poly, edgeSrc(c, next))
		}
	}
	if len(poly) == 0 {
		return nil
	}
	return [][]vertexSource{poly}
}

// fan splits a convex polygon into quads and at most one triangle sharing
// its first vertex. Every part keeps the winding of poly.
func fan(poly []vertexSource) [][]vertexSource {
	var out [][]vertexSource
	n := len(poly)
	i := 1
	for ; n-i >= 3; i += 2 {
		out = append(out, []vertexSource{poly[0], poly[i], poly[i+1], poly[i+2]})
	}
	if n-i == 2 {
		out = append(out, []vertexSource{poly[0], poly[i], poly[i+1]})
	}
	return out
}

// facePiece is the part of a cell face, or of the cut surface when face is
// -1, bounding a kept component. Its winding points out of the component.
type facePiece struct {
	face  int
	verts []vertexSource
}

func (b *caseBuilder) solid() {
	t := b.topo
	n := len(t.ref)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			i = parent[i]
		}
		return i
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri < rj {
			parent[rj] = ri
		} else {
			parent[ri] = rj
		}
	}

	// Clip every face. Corners in the same face piece belong to the same
	// connected part of the kept region. Consecutive edge points of a piece
	// bound the cut surface, which runs the opposite way.
	var pieces []facePiece
	next := make(map[vertexSource]vertexSource)
	for fi, f := range t.faces {
		for _, p := range b.pieces(f) {
			pieces = append(pieces, facePiece{face: fi, verts: p})
			first := -1
			for i, v := range p {
				w := p[(i+1)%len(p)]
				if v.kind == fromCorner {
					if first < 0 {
						first = int(v.a)
					} else {
						union(first, int(v.a))
					}
				}
				if v.kind == fromEdge && w.kind == fromEdge {
					next[w] = v
				}
			}
		}
	}

	var loops [][]vertexSource
	var starts []vertexSource
	for v := range next {
		starts = append(starts, v)
	}
	slices.SortFunc(starts, func(x, y vertexSource) int {
		return int(x.a)*16 + int(x.b) - (int(y.a)*16 + int(y.b))
	})
	seen := make(map[vertexSource]bool)
	for _, s := range starts {
		if seen[s] {
			continue
		}
		var loop []vertexSource
		for v := s; !seen[v]; v = next[v] {
			seen[v] = true
			loop = append(loop, v)
		}
		loops = append(loops, loop)
	}

	for root := 0; root < n; root++ {
		if !b.kept(root) || find(root) != root {
			continue
		}
		var comp []int
		for c := root; c < n; c++ {
			if b.kept(c) && find(c) == root {
				comp = append(comp, c)
			}
		}
		var compLoops [][]vertexSource
		var compPieces []facePiece
		for _, l := range loops {
			if find(b.keptEnd(l[0])) == root {
				compLoops = append(compLoops, l)
			}
		}
		for _, p := range pieces {
			if find(b.firstCorner(p.verts)) == root {
				compPieces = append(compPieces, p)
			}
		}
		b.component(comp, compLoops, compPieces)
	}
}

func (b *caseBuilder) keptEnd(e vertexSource) int {
	if b.kept(int(e.a)) {
		return int(e.a)
	}
	return int(e.b)
}

func (b *caseBuilder) firstCorner(p []vertexSource) int {
	for _, v := range p {
		if v.kind == fromCorner {
			return int(v.a)
		}
	}
	panic("bug: face piece without corners")
}

// crossed returns the corners adjacent to c on the other side.
func (b *caseBuilder) crossed(c int) []int {
	var out []int
	for _, nb := range b.topo.nbrs[c] {
		if !b.kept(nb) {
			out = append(out, nb)
		}
	}
	return out
}

// component emits the shapes filling one connected kept part of a 3D cell.
// A lone corner is cut off as a tetrahedron or pyramid and a face whose
// corners each cross a single edge is extruded to a wedge or hexahedron.
// Anything else is split into cones joining every bounding polygon to a
// common apex.
func (b *caseBuilder) component(comp []int, loops [][]vertexSource, pieces []facePiece) {
	t := b.topo
	if len(comp) == 1 && len(loops) == 1 {
		c, l := comp[0], loops[0]
		switch len(l) {
		case 3:
			b.add(shapeTetra, []vertexSource{cornerSrc(c), l[0], l[1], l[2]})
			return
		case 4:
			b.add(shapePyramid, []vertexSource{l[0], l[1], l[2], l[3], cornerSrc(c)})
			return
		}
	}
	if fi := t.faceWith(comp); fi >= 0 {
		f := t.faces[fi]
		extrude := true
		verts := make([]vertexSource, 0, 2*len(f))
		for _, c := range f {
			verts = append(verts, cornerSrc(c))
		}
		for _, c := range f {
			out := b.crossed(c)
			if len(out) != 1 {
				extrude = false
				break
			}
			verts = append(verts, edgeSrc(c, out[0]))
		}
		if extrude {
			tag := shapeWedge
			if len(f) == 4 {
				tag = shapeHexahedron
			}
			b.add(tag, verts)
			return
		}
	}

	var bound []facePiece
	for _, p := range pieces {
		for _, part := range fan(p.verts) {
			bound = append(bound, facePiece{face: p.face, verts: part})
		}
	}
	// Cut loops longer than a quad are closed around their own centroid so
	// both sides of the cut share the same surface.
	for _, l := range loops {
		if len(l) <= 4 {
			bound = append(bound, facePiece{face: -1, verts: l})
			continue
		}
		lc := centroidSrc(b.addCentroid(l))
		for i := range l {
			bound = append(bound, facePiece{face: -1, verts: []vertexSource{l[i], l[(i+1)%len(l)], lc}})
		}
	}

	apex, skip := b.apex(comp, loops, bound)
	for _, p := range bound {
		if b.touches(p, skip) {
			continue
		}
		// Bounding polygons face outward so they are reversed to see the
		// apex on their positive side.
		verts := slices.Clone(p.verts)
		slices.Reverse(verts)
		tag := shapeTetra
		if len(verts) == 4 {
			tag = shapePyramid
		}
		b.shapes = append(b.shapes, shape{tag: tag, color: b.color, verts: append(verts, apex)})
	}
}

// apex returns the vertex every bounding polygon of a component is coned to.
// The centroid of the component's corners and cut points is preferred. When
// some cone would be inverted at reference geometry a kept corner that sees
// every polygon not lying on one of its faces is used instead and returned
// as skip; otherwise skip is -1.
func (b *caseBuilder) apex(comp []int, loops [][]vertexSource, bound []facePiece) (apex vertexSource, skip int) {
	var verts []vertexSource
	for _, c := range comp {
		verts = append(verts, cornerSrc(c))
	}
	for _, l := range loops {
		verts = append(verts, l...)
	}
	if b.sees(b.mean(verts), -1, bound) {
		return centroidSrc(b.addCentroid(verts)), -1
	}
	for _, c := range comp {
		if b.sees(b.topo.ref[c], c, bound) {
			return cornerSrc(c), c
		}
	}
	return centroidSrc(b.addCentroid(verts)), -1
}

// sees reports whether every cone from a polygon of bound to apex has
// positive volume, ignoring polygons touching corner skip.
func (b *caseBuilder) sees(apex r3.Vec, skip int, bound []facePiece) bool {
	const minVolume = 1e-9
	pts := make([]r3.Vec, 0, 5)
	for _, p := range bound {
		if b.touches(p, skip) {
			continue
		}
		pts = pts[:0]
		for i := len(p.verts) - 1; i >= 0; i-- {
			pts = append(pts, b.refPos(p.verts[i]))
		}
		pts = append(pts, apex)
		var v float64
		if len(p.verts) == 3 {
			v = d3.TetVolume(pts[0], pts[1], pts[2], pts[3])
		} else {
			v = topoPyramid.volume(pts)
		}
		if v <= minVolume {
			return false
		}
	}
	return true
}

// touches reports whether p lies on a cell face through corner c.
func (b *caseBuilder) touches(p facePiece, c int) bool {
	return c >= 0 && p.face >= 0 && slices.Contains(b.topo.faces[p.face], c)
}

func (b *caseBuilder) mean(verts []vertexSource) r3.Vec {
	pts := make([]r3.Vec, len(verts))
	for i, v := range verts {
		pts[i] = b.refPos(v)
	}
	return d3.Mean(pts...)
}

// addCentroid registers a centroid of verts and returns its slot.
func (b *caseBuilder) addCentroid(verts []vertexSource) int {
	slot := len(b.slotPos)
	b.slotPos = append(b.slotPos, b.mean(verts))
	b.shapes = append(b.shapes, shape{tag: shapeCentroid, color: b.color, slot: slot, verts: verts})
	return slot
}

func (b *caseBuilder) refPos(v vertexSource) r3.Vec {
	ref := b.topo.ref
	switch v.kind {
	case fromCorner:
		return ref[v.a]
	case fromEdge:
		return d3.Lerp(ref[v.a], ref[v.b], 0.5)
	case fromCentroid:
		return b.slotPos[v.a]
	}
	panic("bug: unknown vertex source")
}

// flips maps a 3D shape to the corner permutation that mirrors it.
var flips = map[shapeTag][]int{
	shapeTetra:      {0, 2, 1, 3},
	shapePyramid:    {0, 3, 2, 1, 4},
	shapeWedge:      {0, 2, 1, 3, 5, 4},
	shapeHexahedron: {0, 3, 2, 1, 4, 7, 6, 5},
}

var shapeTopology = map[shapeTag]*topology{
	shapeTetra:      topoTetra,
	shapePyramid:    topoPyramid,
	shapeWedge:      topoWedge,
	shapeHexahedron: topoHex,
}

// add appends a shape, reordering 3D shapes to positive volume in the
// reference cell. Only convex shapes go through here; cones are oriented by
// their construction.
func (b *caseBuilder) add(tag shapeTag, verts []vertexSource) {
	if st := shapeTopology[tag]; st != nil && b.topo.dim == 3 {
		pts := make([]r3.Vec, len(verts))
		for i, v := range verts {
			pts[i] = b.refPos(v)
		}
		if st.volume(pts) < 0 {
			flipped := make([]vertexSource, len(verts))
			for i, j := range flips[tag] {
				flipped[i] = verts[j]
			}
			verts = flipped
		}
	}
	b.shapes = append(b.shapes, shape{tag: tag, color: b.color, verts: verts})
}

func (b *caseBuilder) entry() caseEntry {
	e := caseEntry{shapes: b.shapes, slots: len(b.slotPos)}
	for _, s := range b.shapes {
		cnt := &e.count[s.color]
		if s.tag == shapeCentroid {
			cnt.centroids++
			cnt.centroidIDs += len(s.verts)
		} else {
			cnt.cells++
			cnt.conn += len(s.verts)
		}
		for _, v := range s.verts {
			if v.kind == fromEdge && !slices.Contains(e.edges[s.color], v) {
				e.edges[s.color] = append(e.edges[s.color], v)
			}
		}
	}
	return e
}
