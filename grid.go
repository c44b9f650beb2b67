package meshclip

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type gridKind uint8

const (
	imageGrid gridKind = iota
	rectilinearGrid
	structuredGrid
)

// V3i is a 3D integer vector used for i,j,k grid indices.
type V3i [3]int

// Add adds two vectors. Return v = a + b.
func (a V3i) Add(b V3i) V3i {
	return V3i{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Grid is a dataset with implicit topology. Points are laid out with i
// varying fastest, then j, then k. Cells are the hexahedra (quads or lines
// when one or two dimensions are flat) between neighbouring points and
// their point ids are derived from strides instead of being stored.
type Grid struct {
	Dims V3i
	// Image grids.
	Origin, Spacing r3.Vec
	// Rectilinear grids: per axis coordinates of length Dims[axis].
	Coords [3][]float64
	// Structured (curvilinear) grids: explicit coordinates, one per point.
	Points []r3.Vec
	// Ghosts optionally flags cells; a non-zero value excludes the cell from clipping.
	Ghosts    []uint8
	PointData Attributes
	CellData  Attributes

	kind gridKind
}

var errBadDims = errors.New("grid dimensions must be positive")

// NewImageGrid returns a uniform grid with points at origin + spacing*(i,j,k).
func NewImageGrid(dims V3i, origin, spacing r3.Vec) (*Grid, error) {
	g := &Grid{Dims: dims, Origin: origin, Spacing: spacing, kind: imageGrid}
	return g, g.init()
}

// NewRectilinearGrid returns an axis aligned grid with non-uniform spacing.
func NewRectilinearGrid(x, y, z []float64) (*Grid, error) {
	g := &Grid{
		Dims:   V3i{len(x), len(y), len(z)},
		Coords: [3][]float64{x, y, z},
		kind:   rectilinearGrid,
	}
	return g, g.init()
}

// NewStructuredGrid returns a curvilinear grid with explicit point coordinates.
func NewStructuredGrid(dims V3i, points []r3.Vec) (*Grid, error) {
	g := &Grid{Dims: dims, Points: points, kind: structuredGrid}
	if err := g.init(); err != nil {
		return nil, err
	}
	if len(points) != g.NumPoints() {
		return nil, fmt.Errorf("structured grid got %d points for dimensions %v", len(points), dims)
	}
	return g, nil
}

func (g *Grid) init() error {
	for _, d := range g.Dims {
		if d <= 0 {
			return errBadDims
		}
	}
	return nil
}

// activeAxes returns the axes with more than one point.
func (g *Grid) activeAxes() (axes [3]int, n int) {
	for a, d := range g.Dims {
		if d > 1 {
			axes[n] = a
			n++
		}
	}
	return axes, n
}

// Dimension returns the number of axes along which the grid has extent.
func (g *Grid) Dimension() int {
	_, n := g.activeAxes()
	return n
}

// CellType returns the type shared by all cells of the grid.
func (g *Grid) CellType() CellType {
	switch g.Dimension() {
	case 1:
		return Line
	case 2:
		return Quad
	case 3:
		return Hexahedron
	}
	return EmptyCell
}

func (g *Grid) NumPoints() int { return g.Dims[0] * g.Dims[1] * g.Dims[2] }

// CellDims returns the number of cells along each axis. Flat axes count as 1.
func (g *Grid) CellDims() V3i {
	var cd V3i
	for a, d := range g.Dims {
		cd[a] = max(d-1, 1)
	}
	return cd
}

func (g *Grid) NumCells() int {
	if g.Dimension() == 0 {
		return 0
	}
	cd := g.CellDims()
	return cd[0] * cd[1] * cd[2]
}

// PointIndex returns the flat index of point (i,j,k).
func (g *Grid) PointIndex(ijk V3i) int {
	return ijk[0] + g.Dims[0]*(ijk[1]+g.Dims[1]*ijk[2])
}

// PointIJK is the inverse of PointIndex.
func (g *Grid) PointIJK(i int) V3i {
	return V3i{i % g.Dims[0], (i / g.Dims[0]) % g.Dims[1], i / (g.Dims[0] * g.Dims[1])}
}

func (g *Grid) Point(i int) r3.Vec {
	if g.kind == structuredGrid {
		return g.Points[i]
	}
	ijk := g.PointIJK(i)
	if g.kind == rectilinearGrid {
		return r3.Vec{X: g.Coords[0][ijk[0]], Y: g.Coords[1][ijk[1]], Z: g.Coords[2][ijk[2]]}
	}
	return r3.Vec{
		X: g.Origin.X + g.Spacing.X*float64(ijk[0]),
		Y: g.Origin.Y + g.Spacing.Y*float64(ijk[1]),
		Z: g.Origin.Z + g.Spacing.Z*float64(ijk[2]),
	}
}

// Cell computes the point ids of cell i into buf. Corner order follows the
// Hexahedron, Quad and Line conventions.
func (g *Grid) Cell(i int, buf []int) (CellType, []int) {
	cd := g.CellDims()
	base := V3i{i % cd[0], (i / cd[0]) % cd[1], i / (cd[0] * cd[1])}
	var u, v, w V3i
	buf = buf[:0]
	axes, n := g.activeAxes()
	switch n {
	case 1:
		u[axes[0]] = 1
		buf = append(buf, g.PointIndex(base), g.PointIndex(base.Add(u)))
		return Line, buf
	case 2:
		u[axes[0]] = 1
		v[axes[1]] = 1
		buf = append(buf, g.PointIndex(base), g.PointIndex(base.Add(u)),
			g.PointIndex(base.Add(u).Add(v)), g.PointIndex(base.Add(v)))
		return Quad, buf
	case 3:
		u[0], v[1], w[2] = 1, 1, 1
		top := base.Add(w)
		buf = append(buf,
			g.PointIndex(base), g.PointIndex(base.Add(u)), g.PointIndex(base.Add(u).Add(v)), g.PointIndex(base.Add(v)),
			g.PointIndex(top), g.PointIndex(top.Add(u)), g.PointIndex(top.Add(u).Add(v)), g.PointIndex(top.Add(v)),
		)
		return Hexahedron, buf
	}
	return EmptyCell, buf
}

func (g *Grid) Ghost(i int) bool {
	return g.Ghosts != nil && g.Ghosts[i] != 0
}

func (g *Grid) PointAttributes() *Attributes { return &g.PointData }

func (g *Grid) CellAttributes() *Attributes { return &g.CellData }

// Validate checks coordinate and attribute lengths.
func (g *Grid) Validate() error {
	if err := g.init(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMesh, err)
	}
	switch g.kind {
	case rectilinearGrid:
		for a := range g.Coords {
			if len(g.Coords[a]) != g.Dims[a] {
				return fmt.Errorf("%w: axis %d has %d coordinates for dimension %d", ErrInvalidMesh, a, len(g.Coords[a]), g.Dims[a])
			}
		}
	case structuredGrid:
		if len(g.Points) != g.NumPoints() {
			return fmt.Errorf("%w: got %d points for dimensions %v", ErrInvalidMesh, len(g.Points), g.Dims)
		}
	}
	if g.Ghosts != nil && len(g.Ghosts) != g.NumCells() {
		return fmt.Errorf("%w: got %d ghost flags for %d cells", ErrInvalidMesh, len(g.Ghosts), g.NumCells())
	}
	if err := g.PointData.validate(g.NumPoints(), "point"); err != nil {
		return err
	}
	return g.CellData.validate(g.NumCells(), "cell")
}
