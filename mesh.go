package meshclip

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidMesh is wrapped by all mesh consistency errors.
var ErrInvalidMesh = errors.New("invalid mesh")

// Dataset is a set of points and cells with attribute data. Cells are
// enumerated by index; Cell may either return a view into stored
// connectivity or compute the point ids into buf.
type Dataset interface {
	NumPoints() int
	NumCells() int
	Point(i int) r3.Vec
	// Cell returns the type and point ids of cell i. The returned slice
	// must not be modified and is only valid until the next call with the same buf.
	Cell(i int, buf []int) (CellType, []int)
	// Ghost reports whether cell i is flagged as ghost or hidden. Such cells
	// do not take part in clipping.
	Ghost(i int) bool
	PointAttributes() *Attributes
	CellAttributes() *Attributes
}

var (
	_ Dataset = (*Mesh)(nil)
	_ Dataset = (*Grid)(nil)
)

// Mesh is an unstructured mesh with explicit cell connectivity stored in
// compressed row form: cell i uses Connectivity[Offsets[i]:Offsets[i+1]].
type Mesh struct {
	Points       []r3.Vec
	Types        []CellType
	Offsets      []int
	Connectivity []int
	// Ghosts optionally flags cells; a non-zero value excludes the cell from clipping.
	Ghosts    []uint8
	PointData Attributes
	CellData  Attributes
}

// NewMesh returns a mesh with the given points and no cells.
func NewMesh(points []r3.Vec) *Mesh {
	return &Mesh{Points: points, Offsets: []int{0}}
}

// AddCell appends a cell and returns its index.
func (m *Mesh) AddCell(t CellType, ids ...int) int {
	if len(m.Offsets) == 0 {
		m.Offsets = append(m.Offsets, 0)
	}
	m.Types = append(m.Types, t)
	m.Connectivity = append(m.Connectivity, ids...)
	m.Offsets = append(m.Offsets, len(m.Connectivity))
	return len(m.Types) - 1
}

func (m *Mesh) NumPoints() int { return len(m.Points) }

func (m *Mesh) NumCells() int { return len(m.Types) }

func (m *Mesh) Point(i int) r3.Vec { return m.Points[i] }

// CellPoints returns the point ids of cell i as a view into Connectivity.
func (m *Mesh) CellPoints(i int) []int {
	return m.Connectivity[m.Offsets[i]:m.Offsets[i+1]]
}

func (m *Mesh) Cell(i int, _ []int) (CellType, []int) {
	return m.Types[i], m.CellPoints(i)
}

func (m *Mesh) Ghost(i int) bool {
	return m.Ghosts != nil && m.Ghosts[i] != 0
}

func (m *Mesh) PointAttributes() *Attributes { return &m.PointData }

func (m *Mesh) CellAttributes() *Attributes { return &m.CellData }

// Validate checks the structural consistency of the mesh: offsets,
// point ids in range, cell sizes matching their type and attribute lengths.
func (m *Mesh) Validate() error {
	nc := len(m.Types)
	if nc == 0 {
		if len(m.Connectivity) != 0 {
			return fmt.Errorf("%w: connectivity without cells", ErrInvalidMesh)
		}
	} else if len(m.Offsets) != nc+1 {
		return fmt.Errorf("%w: got %d offsets for %d cells", ErrInvalidMesh, len(m.Offsets), nc)
	}
	if m.Ghosts != nil && len(m.Ghosts) != nc {
		return fmt.Errorf("%w: got %d ghost flags for %d cells", ErrInvalidMesh, len(m.Ghosts), nc)
	}
	np := len(m.Points)
	for i := 0; i < nc; i++ {
		lo, hi := m.Offsets[i], m.Offsets[i+1]
		if lo > hi || hi > len(m.Connectivity) {
			return fmt.Errorf("%w: cell %d offsets [%d,%d) out of range", ErrInvalidMesh, i, lo, hi)
		}
		t := m.Types[i]
		n := hi - lo
		if fixed := t.NumCorners(); fixed > 0 && n != fixed {
			return fmt.Errorf("%w: %s cell %d has %d points, want %d", ErrInvalidMesh, t, i, n, fixed)
		} else if n < t.minCorners() {
			return fmt.Errorf("%w: %s cell %d has %d points", ErrInvalidMesh, t, i, n)
		}
		for _, id := range m.Connectivity[lo:hi] {
			if id < 0 || id >= np {
				return fmt.Errorf("%w: cell %d references point %d of %d", ErrInvalidMesh, i, id, np)
			}
		}
	}
	if err := m.PointData.validate(np, "point"); err != nil {
		return err
	}
	return m.CellData.validate(nc, "cell")
}

// ToMesh copies any dataset into an explicit mesh.
func ToMesh(ds Dataset) *Mesh {
	if m, ok := ds.(*Mesh); ok {
		return m
	}
	np, nc := ds.NumPoints(), ds.NumCells()
	out := &Mesh{
		Points:    make([]r3.Vec, np),
		Types:     make([]CellType, 0, nc),
		Offsets:   make([]int, 1, nc+1),
		PointData: ds.PointAttributes().Clone(),
		CellData:  ds.CellAttributes().Clone(),
	}
	for i := range out.Points {
		out.Points[i] = ds.Point(i)
	}
	var buf [8]int
	var ghosts []uint8
	for i := 0; i < nc; i++ {
		t, ids := ds.Cell(i, buf[:0])
		out.AddCell(t, ids...)
		if ds.Ghost(i) {
			if ghosts == nil {
				ghosts = make([]uint8, nc)
			}
			ghosts[i] = 1
		}
	}
	out.Ghosts = ghosts
	return out
}
