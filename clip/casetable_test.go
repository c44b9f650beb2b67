package clip

import (
	"math/bits"
	"testing"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var supported = []meshclip.CellType{
	meshclip.Vertex, meshclip.Line, meshclip.Triangle, meshclip.Quad, meshclip.Pixel,
	meshclip.Tetra, meshclip.Pyramid, meshclip.Wedge, meshclip.Hexahedron, meshclip.Voxel,
}

func TestCaseTableComplete(t *testing.T) {
	for _, ct := range supported {
		tbl := tableFor(ct)
		if tbl == nil {
			t.Fatalf("no table for %s", ct)
		}
		n := len(tbl.topo.ref)
		if len(tbl.cases) != 1<<n {
			t.Fatalf("%s: got %d cases want %d", ct, len(tbl.cases), 1<<n)
		}
		for idx, entry := range tbl.cases {
			checkEntry(t, tbl.topo, idx, &entry)
		}
	}
	if tableFor(meshclip.Polygon) != nil || tableFor(meshclip.CellType(99)) != nil {
		t.Error("unsupported types must not have tables")
	}
}

func checkEntry(t *testing.T, topo *topology, idx int, entry *caseEntry) {
	t.Helper()
	n := len(topo.ref)
	isEdge := func(a, b int) bool {
		for _, e := range topo.edges {
			if (e[0] == a && e[1] == b) || (e[0] == b && e[1] == a) {
				return true
			}
		}
		return false
	}
	for _, c := range [2]color{below, above} {
		side := uint(idx)
		if c == below {
			side = (1<<n - 1) &^ side
		}
		onSide := func(corner uint8) bool { return side>>corner&1 != 0 }
		var got tally
		defined := make(map[int]bool)
		for _, s := range entry.shapes {
			if s.color != c {
				continue
			}
			if s.tag == shapeCentroid {
				got.centroids++
				got.centroidIDs += len(s.verts)
			} else {
				got.cells++
				got.conn += len(s.verts)
				if want := s.tag.cellType().NumCorners(); want != len(s.verts) {
					t.Errorf("%s case %d: %s with %d vertices", topo.cell, idx, s.tag.cellType(), len(s.verts))
				}
			}
			for _, v := range s.verts {
				switch v.kind {
				case fromCorner:
					if int(v.a) >= n || !onSide(v.a) {
						t.Errorf("%s case %d color %d: corner %d not on side", topo.cell, idx, c, v.a)
					}
				case fromEdge:
					if !isEdge(int(v.a), int(v.b)) || onSide(v.a) == onSide(v.b) {
						t.Errorf("%s case %d: %d-%d is not a crossed edge", topo.cell, idx, v.a, v.b)
					}
				case fromCentroid:
					if !defined[int(v.a)] || s.tag == shapeCentroid {
						t.Errorf("%s case %d: centroid slot %d used before definition", topo.cell, idx, v.a)
					}
				}
			}
			if s.tag == shapeCentroid {
				defined[s.slot] = true
			}
		}
		if got != entry.count[c] {
			t.Errorf("%s case %d: tally %+v, shapes add to %+v", topo.cell, idx, entry.count[c], got)
		}
		switch {
		case side == 0 && got.cells != 0:
			t.Errorf("%s case %d: output for empty side", topo.cell, idx)
		case side != 0 && got.cells == 0:
			t.Errorf("%s case %d: no output for %d kept corners", topo.cell, idx, bits.OnesCount(side))
		case side == 1<<n-1 && (got.cells != 1 || got.centroids != 0):
			t.Errorf("%s case %d: full side must be the cell itself", topo.cell, idx)
		}
	}
}

func TestCaseTableShapes(t *testing.T) {
	for _, test := range []struct {
		cell  meshclip.CellType
		idx   int
		color color
		want  []shapeTag
	}{
		{meshclip.Hexahedron, 0xf0, above, []shapeTag{shapeHexahedron}},
		{meshclip.Hexahedron, 0x01, above, []shapeTag{shapeTetra}},
		{meshclip.Tetra, 0x01, above, []shapeTag{shapeTetra}},
		{meshclip.Tetra, 0x01, below, []shapeTag{shapeWedge}},
		{meshclip.Pyramid, 0x10, above, []shapeTag{shapePyramid}},
		{meshclip.Pyramid, 0x10, below, []shapeTag{shapeHexahedron}},
		{meshclip.Wedge, 0x07, above, []shapeTag{shapeWedge}},
		{meshclip.Voxel, 0xff, above, []shapeTag{shapeVoxel}},
		{meshclip.Pixel, 0x0f, above, []shapeTag{shapePixel}},
		{meshclip.Triangle, 0x06, above, []shapeTag{shapeQuad}},
		{meshclip.Triangle, 0x06, below, []shapeTag{shapeTriangle}},
		// Saddle quad: connected above, split below.
		{meshclip.Quad, 0x05, above, []shapeTag{shapeQuad, shapeQuad}},
		{meshclip.Quad, 0x05, below, []shapeTag{shapeTriangle, shapeTriangle}},
		{meshclip.Line, 0x01, above, []shapeTag{shapeLine}},
		{meshclip.Vertex, 0x00, below, []shapeTag{shapeVertex}},
	} {
		var got []shapeTag
		for _, s := range tableFor(test.cell).cases[test.idx].shapes {
			if s.color == test.color {
				got = append(got, s.tag)
			}
		}
		if len(got) != len(test.want) {
			t.Errorf("%s case %#x color %d: got shapes %v want %v", test.cell, test.idx, test.color, got, test.want)
			continue
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Errorf("%s case %#x color %d: got shapes %v want %v", test.cell, test.idx, test.color, got, test.want)
				break
			}
		}
	}
}

// TestCaseTableOrientation places every 3D shape at the midpoint geometry of
// its cell and checks that none is inverted and that both colors fill the cell.
func TestCaseTableOrientation(t *testing.T) {
	for _, topo := range []*topology{topoTetra, topoPyramid, topoWedge, topoHex, topoVoxel} {
		total := topo.volume(topo.ref)
		for idx, entry := range tableFor(topo.cell).cases {
			b := caseBuilder{topo: topo}
			var sum float64
			for _, s := range entry.shapes {
				pts := make([]r3.Vec, len(s.verts))
				for i, v := range s.verts {
					pts[i] = b.refPos(v)
				}
				if s.tag == shapeCentroid {
					b.slotPos = append(b.slotPos, d3.Mean(pts...))
					continue
				}
				st := shapeTopology[s.tag]
				if st == nil {
					st = topo
				}
				v := st.volume(pts)
				if v <= 0 {
					t.Errorf("%s case %d color %d: %s volume %g", topo.cell, idx, s.color, s.tag.cellType(), v)
				}
				sum += v
			}
			if !closeTo(sum, total, 1e-12) {
				t.Errorf("%s case %d: shapes fill %g of %g", topo.cell, idx, sum, total)
			}
		}
	}
}

func TestReferenceVolumes(t *testing.T) {
	for _, test := range []struct {
		topo *topology
		want float64
	}{
		{topoTetra, 1. / 6}, {topoPyramid, 1. / 3}, {topoWedge, 0.5}, {topoHex, 1}, {topoVoxel, 1},
	} {
		if got := test.topo.volume(test.topo.ref); !closeTo(got, test.want, 1e-12) {
			t.Errorf("%s: reference volume %g want %g", test.topo.cell, got, test.want)
		}
	}
}

func TestShapeTagFault(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("unknown shape tag must panic")
		}
	}()
	shapeTag(200).cellType()
}

func closeTo(a, b, tol float64) bool {
	d := a - b
	return d <= tol && d >= -tol
}
