package meshclip

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// PolyData is a surface mesh made of vertices, lines, polygons and
// triangle strips. Cell attribute tuples are ordered verts, lines, polys
// then strips.
type PolyData struct {
	Points    []r3.Vec
	Verts     [][]int
	Lines     [][]int
	Polys     [][]int
	Strips    [][]int
	PointData Attributes
	CellData  Attributes
}

func (pd *PolyData) NumCells() int {
	return len(pd.Verts) + len(pd.Lines) + len(pd.Polys) + len(pd.Strips)
}

func vertType(n int) CellType {
	if n == 1 {
		return Vertex
	}
	return PolyVertex
}

func lineType(n int) CellType {
	if n == 2 {
		return Line
	}
	return PolyLine
}

func polyType(n int) CellType {
	switch n {
	case 3:
		return Triangle
	case 4:
		return Quad
	}
	return Polygon
}

func stripType(int) CellType { return TriangleStrip }

// ToMesh normalizes the surface into an unstructured mesh with equivalent
// cells. Single point verts become Vertex, two point lines Line, three and
// four point polygons Triangle and Quad. Attributes are copied.
func (pd *PolyData) ToMesh() (*Mesh, error) {
	groups := [4]struct {
		cells [][]int
		typ   func(int) CellType
	}{
		{pd.Verts, vertType},
		{pd.Lines, lineType},
		{pd.Polys, polyType},
		{pd.Strips, stripType},
	}
	nc := pd.NumCells()
	m := &Mesh{
		Points:    append([]r3.Vec(nil), pd.Points...),
		Types:     make([]CellType, 0, nc),
		Offsets:   make([]int, 1, nc+1),
		PointData: pd.PointData.Clone(),
		CellData:  pd.CellData.Clone(),
	}
	populated := 0
	for _, g := range groups {
		if len(g.cells) > 0 {
			populated++
		}
	}
	for _, g := range groups {
		if len(g.cells) == 0 {
			continue
		}
		if populated == 1 {
			// Only one kind of cell: size the connectivity exactly up front.
			total := 0
			for _, c := range g.cells {
				total += len(c)
			}
			m.Connectivity = make([]int, 0, total)
		}
		for _, c := range g.cells {
			m.AddCell(g.typ(len(c)), c...)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("polydata: %w", err)
	}
	return m, nil
}
