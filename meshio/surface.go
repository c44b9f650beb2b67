package meshio

import (
	"slices"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// cellFaces lists the faces of each 3D cell type as point cycles. Winding is
// not relied upon; faces are oriented against the cell centroid.
var cellFaces = [...][][]int{
	meshclip.Tetra:      {{0, 1, 3}, {1, 2, 3}, {2, 0, 3}, {0, 2, 1}},
	meshclip.Voxel:      {{0, 2, 3, 1}, {4, 5, 7, 6}, {0, 1, 5, 4}, {1, 3, 7, 5}, {3, 2, 6, 7}, {2, 0, 4, 6}},
	meshclip.Hexahedron: {{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4}, {1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7}},
	meshclip.Wedge:      {{0, 1, 2}, {3, 5, 4}, {0, 3, 4, 1}, {1, 4, 5, 2}, {2, 5, 3, 0}},
	meshclip.Pyramid:    {{0, 3, 2, 1}, {0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}},
}

type faceKey [4]int

func keyOf(ids []int) faceKey {
	k := faceKey{-1, -1, -1, -1}
	copy(k[:], ids)
	slices.Sort(k[:len(ids)])
	return k
}

// Surface returns the triangles of the boundary surface of m in cell order.
// See WriteSTL for which cells contribute.
func Surface(m *meshclip.Mesh) [][3]r3.Vec {
	shared := make(map[faceKey]int)
	face := make([]int, 0, 4)
	for c, typ := range m.Types {
		if typ.Dimension() != 3 {
			continue
		}
		ids := m.CellPoints(c)
		for _, f := range cellFaces[typ] {
			face = face[:0]
			for _, v := range f {
				face = append(face, ids[v])
			}
			shared[keyOf(face)]++
		}
	}

	var tris [][3]r3.Vec
	emit := func(a, b, c int) {
		t := [3]r3.Vec{m.Points[a], m.Points[b], m.Points[c]}
		if r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))) == 0 {
			return
		}
		tris = append(tris, t)
	}
	fan := func(ids []int) {
		for i := 2; i < len(ids); i++ {
			emit(ids[0], ids[i-1], ids[i])
		}
	}
	pts := make([]r3.Vec, 0, 8)
	for c, typ := range m.Types {
		ids := m.CellPoints(c)
		switch typ {
		case meshclip.Triangle, meshclip.Quad, meshclip.Polygon:
			fan(ids)
		case meshclip.Pixel:
			emit(ids[0], ids[1], ids[3])
			emit(ids[0], ids[3], ids[2])
		case meshclip.TriangleStrip:
			for i := 2; i < len(ids); i++ {
				if i%2 == 0 {
					emit(ids[i-2], ids[i-1], ids[i])
				} else {
					emit(ids[i-1], ids[i-2], ids[i])
				}
			}
		case meshclip.Tetra, meshclip.Voxel, meshclip.Hexahedron, meshclip.Wedge, meshclip.Pyramid:
			pts = pts[:0]
			for _, id := range ids {
				pts = append(pts, m.Points[id])
			}
			center := d3.Mean(pts...)
			for _, f := range cellFaces[typ] {
				face = face[:0]
				for _, v := range f {
					face = append(face, ids[v])
				}
				if shared[keyOf(face)] != 1 {
					continue
				}
				pts = pts[:0]
				for _, id := range face {
					pts = append(pts, m.Points[id])
				}
				if r3.Dot(d3.Newell(pts...), r3.Sub(d3.Mean(pts...), center)) < 0 {
					slices.Reverse(face)
				}
				fan(face)
			}
		}
	}
	return tris
}
