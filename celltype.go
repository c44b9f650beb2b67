package meshclip

import "strconv"

// CellType identifies the topology of a cell. Values match the VTK cell type
// codes so meshes can be exchanged with VTK based tooling without remapping.
type CellType uint8

const (
	EmptyCell     CellType = 0
	Vertex        CellType = 1
	PolyVertex    CellType = 2
	Line          CellType = 3
	PolyLine      CellType = 4
	Triangle      CellType = 5
	TriangleStrip CellType = 6
	Polygon       CellType = 7
	Pixel         CellType = 8
	Quad          CellType = 9
	Tetra         CellType = 10
	Voxel         CellType = 11
	Hexahedron    CellType = 12
	Wedge         CellType = 13
	Pyramid       CellType = 14
)

var cellNames = [...]string{
	EmptyCell:     "empty",
	Vertex:        "vertex",
	PolyVertex:    "polyvertex",
	Line:          "line",
	PolyLine:      "polyline",
	Triangle:      "triangle",
	TriangleStrip: "trianglestrip",
	Polygon:       "polygon",
	Pixel:         "pixel",
	Quad:          "quad",
	Tetra:         "tetra",
	Voxel:         "voxel",
	Hexahedron:    "hexahedron",
	Wedge:         "wedge",
	Pyramid:       "pyramid",
}

func (c CellType) String() string {
	if int(c) < len(cellNames) {
		return cellNames[c]
	}
	return "CellType(" + strconv.Itoa(int(c)) + ")"
}

// NumCorners returns the number of points of a fixed size cell type and 0 for
// variable size cells (poly-vertex, poly-line, strips, polygons) and unknown types.
func (c CellType) NumCorners() int {
	switch c {
	case Vertex:
		return 1
	case Line:
		return 2
	case Triangle:
		return 3
	case Pixel, Quad, Tetra:
		return 4
	case Pyramid:
		return 5
	case Wedge:
		return 6
	case Voxel, Hexahedron:
		return 8
	}
	return 0
}

// Dimension returns the topological dimension of the cell type or -1 if unknown.
func (c CellType) Dimension() int {
	switch c {
	case Vertex, PolyVertex:
		return 0
	case Line, PolyLine:
		return 1
	case Triangle, TriangleStrip, Polygon, Pixel, Quad:
		return 2
	case Tetra, Voxel, Hexahedron, Wedge, Pyramid:
		return 3
	}
	return -1
}

// minCorners returns the least number of points a valid cell of type c has.
func (c CellType) minCorners() int {
	switch c {
	case EmptyCell:
		return 0
	case PolyVertex:
		return 1
	case PolyLine:
		return 2
	case TriangleStrip, Polygon:
		return 3
	}
	return c.NumCorners()
}
