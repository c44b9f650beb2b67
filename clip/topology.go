package clip

import (
	"slices"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// topology describes a supported cell shape: its corners in reference
// coordinates, its edges and (for 3D cells) its faces.
type topology struct {
	cell  meshclip.CellType
	dim   int
	ref   []r3.Vec
	edges [][2]int
	// loop is the corner cycle of a 2D cell.
	loop []int
	// faces lists the corner cycles of a 3D cell, oriented so that the
	// right hand normal points out of the cell.
	faces [][]int
	// nbrs[i] lists corners sharing an edge with corner i.
	nbrs [][]int
}

var (
	topoVertex = newTopology(meshclip.Vertex, 0, []r3.Vec{{}}, nil, nil, nil)
	topoLine   = newTopology(meshclip.Line, 1, []r3.Vec{{}, {X: 1}}, [][2]int{{0, 1}}, nil, nil)
	topoTri    = newTopology(meshclip.Triangle, 2,
		[]r3.Vec{{}, {X: 1}, {Y: 1}},
		[][2]int{{0, 1}, {1, 2}, {2, 0}},
		[]int{0, 1, 2}, nil)
	topoQuad = newTopology(meshclip.Quad, 2,
		[]r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}},
		[][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
		[]int{0, 1, 2, 3}, nil)
	topoPixel = newTopology(meshclip.Pixel, 2,
		[]r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}},
		[][2]int{{0, 1}, {1, 3}, {2, 3}, {0, 2}},
		[]int{0, 1, 3, 2}, nil)
	topoTetra = newTopology(meshclip.Tetra, 3,
		[]r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}},
		[][2]int{{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 3}, {2, 3}},
		nil, [][]int{{0, 1, 3}, {1, 2, 3}, {2, 0, 3}, {0, 2, 1}})
	topoPyramid = newTopology(meshclip.Pyramid, 3,
		[]r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}, {X: 0.5, Y: 0.5, Z: 1}},
		[][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {0, 4}, {1, 4}, {2, 4}, {3, 4}},
		nil, [][]int{{0, 3, 2, 1}, {0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}})
	topoWedge = newTopology(meshclip.Wedge, 3,
		[]r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}, {X: 1, Z: 1}, {Y: 1, Z: 1}},
		[][2]int{{0, 1}, {1, 2}, {2, 0}, {3, 4}, {4, 5}, {5, 3}, {0, 3}, {1, 4}, {2, 5}},
		nil, [][]int{{0, 1, 2}, {3, 5, 4}, {0, 3, 4, 1}, {1, 4, 5, 2}, {2, 5, 3, 0}})
	topoHex = newTopology(meshclip.Hexahedron, 3,
		[]r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}, {Z: 1}, {X: 1, Z: 1}, {X: 1, Y: 1, Z: 1}, {Y: 1, Z: 1}},
		[][2]int{{0, 1}, {1, 2}, {3, 2}, {0, 3}, {4, 5}, {5, 6}, {7, 6}, {4, 7}, {0, 4}, {1, 5}, {3, 7}, {2, 6}},
		nil, [][]int{{0, 4, 7, 3}, {1, 2, 6, 5}, {0, 1, 5, 4}, {3, 7, 6, 2}, {0, 3, 2, 1}, {4, 5, 6, 7}})
	topoVoxel = newTopology(meshclip.Voxel, 3,
		[]r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}, {Z: 1}, {X: 1, Z: 1}, {Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}},
		[][2]int{{0, 1}, {1, 3}, {2, 3}, {0, 2}, {4, 5}, {5, 7}, {6, 7}, {4, 6}, {0, 4}, {1, 5}, {2, 6}, {3, 7}},
		nil, [][]int{{0, 4, 6, 2}, {1, 3, 7, 5}, {0, 1, 5, 4}, {2, 6, 7, 3}, {0, 2, 3, 1}, {4, 5, 7, 6}})
)

func newTopology(cell meshclip.CellType, dim int, ref []r3.Vec, edges [][2]int, loop []int, faces [][]int) *topology {
	t := &topology{cell: cell, dim: dim, ref: ref, edges: edges, loop: loop, nbrs: make([][]int, len(ref))}
	for _, e := range edges {
		t.nbrs[e[0]] = append(t.nbrs[e[0]], e[1])
		t.nbrs[e[1]] = append(t.nbrs[e[1]], e[0])
	}
	center := d3.Mean(ref...)
	for _, f := range faces {
		f = slices.Clone(f)
		pts := make([]r3.Vec, len(f))
		for i, c := range f {
			pts[i] = ref[c]
		}
		if r3.Dot(d3.Newell(pts...), r3.Sub(d3.Mean(pts...), center)) < 0 {
			slices.Reverse(f)
		}
		t.faces = append(t.faces, f)
	}
	return t
}

// volume returns the signed volume enclosed by the faces of t placed at
// pts. It is positive when pts has the orientation of the reference cell.
// Quad faces are measured as the mean of their two diagonal splits so a
// warped face counts the same from either cell sharing it.
func (t *topology) volume(pts []r3.Vec) float64 {
	center := d3.Mean(pts...)
	var v float64
	for _, f := range t.faces {
		if len(f) == 4 {
			a, b, c, d := pts[f[0]], pts[f[1]], pts[f[2]], pts[f[3]]
			v += (d3.TetVolume(center, a, b, c) + d3.TetVolume(center, a, c, d) +
				d3.TetVolume(center, b, c, d) + d3.TetVolume(center, b, d, a)) / 2
			continue
		}
		for i := 1; i+1 < len(f); i++ {
			v += d3.TetVolume(center, pts[f[0]], pts[f[i]], pts[f[i+1]])
		}
	}
	return v
}

// faceWith returns the index of the face whose corner set is exactly
// corners, or -1.
func (t *topology) faceWith(corners []int) int {
	for i, f := range t.faces {
		if len(f) != len(corners) {
			continue
		}
		match := true
		for _, c := range f {
			if !slices.Contains(corners, c) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// topologyFor returns the description of a table supported cell type or nil.
func topologyFor(c meshclip.CellType) *topology {
	switch c {
	case meshclip.Vertex:
		return topoVertex
	case meshclip.Line:
		return topoLine
	case meshclip.Triangle:
		return topoTri
	case meshclip.Quad:
		return topoQuad
	case meshclip.Pixel:
		return topoPixel
	case meshclip.Tetra:
		return topoTetra
	case meshclip.Pyramid:
		return topoPyramid
	case meshclip.Wedge:
		return topoWedge
	case meshclip.Hexahedron:
		return topoHex
	case meshclip.Voxel:
		return topoVoxel
	}
	return nil
}
