// Package meshgen builds volumetric meshes of boxes for use as clipping input.
package meshgen

import (
	"errors"
	"math"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// lattice is a regular grid of div cells spanning a box. Corners are numbered
// x fastest.
type lattice struct {
	min     r3.Vec
	spacing r3.Vec
	div     meshclip.V3i
}

func newLattice(box r3.Box, div meshclip.V3i) (lattice, error) {
	if div[0] <= 0 || div[1] <= 0 || div[2] <= 0 {
		return lattice{}, errors.New("meshgen: divisions must be positive")
	}
	sz := d3.Box(box).Size()
	if d3.LTEZero(sz) {
		return lattice{}, errors.New("meshgen: box must have positive size")
	}
	return lattice{
		min: box.Min,
		spacing: r3.Vec{
			X: sz.X / float64(div[0]),
			Y: sz.Y / float64(div[1]),
			Z: sz.Z / float64(div[2]),
		},
		div: div,
	}, nil
}

func (l lattice) numCorners() int {
	return (l.div[0] + 1) * (l.div[1] + 1) * (l.div[2] + 1)
}

func (l lattice) corner(ijk meshclip.V3i) int {
	return ijk[0] + (l.div[0]+1)*(ijk[1]+(l.div[1]+1)*ijk[2])
}

func (l lattice) corners() []r3.Vec {
	pts := make([]r3.Vec, 0, l.numCorners())
	for k := 0; k <= l.div[2]; k++ {
		for j := 0; j <= l.div[1]; j++ {
			for i := 0; i <= l.div[0]; i++ {
				pts = append(pts, l.at(float64(i), float64(j), float64(k)))
			}
		}
	}
	return pts
}

func (l lattice) at(i, j, k float64) r3.Vec {
	return r3.Vec{
		X: l.min.X + i*l.spacing.X,
		Y: l.min.Y + j*l.spacing.Y,
		Z: l.min.Z + k*l.spacing.Z,
	}
}

// Hexahedra meshes box with div[0]*div[1]*div[2] hexahedra.
func Hexahedra(box r3.Box, div meshclip.V3i) (*meshclip.Mesh, error) {
	l, err := newLattice(box, div)
	if err != nil {
		return nil, err
	}
	m := meshclip.NewMesh(l.corners())
	for k := 0; k < div[2]; k++ {
		for j := 0; j < div[1]; j++ {
			for i := 0; i < div[0]; i++ {
				c := meshclip.V3i{i, j, k}
				m.AddCell(meshclip.Hexahedron,
					l.corner(c),
					l.corner(c.Add(meshclip.V3i{1, 0, 0})),
					l.corner(c.Add(meshclip.V3i{1, 1, 0})),
					l.corner(c.Add(meshclip.V3i{0, 1, 0})),
					l.corner(c.Add(meshclip.V3i{0, 0, 1})),
					l.corner(c.Add(meshclip.V3i{1, 0, 1})),
					l.corner(c.Add(meshclip.V3i{1, 1, 1})),
					l.corner(c.Add(meshclip.V3i{0, 1, 1})),
				)
			}
		}
	}
	return m, nil
}

// Tetrahedra meshes box with tetrahedra on a body centered cubic lattice
// whose cube edge is close to resolution. Every pair of neighboring cube
// centers is joined through their shared face by four tetrahedra; faces on
// the box boundary are closed with two tetrahedra coned to the cube center.
//
// Inspired by Tetrahedral Mesh Generation for Deformable Bodies
// Molino, Bridson, Fedkiw.
func Tetrahedra(box r3.Box, resolution float64) (*meshclip.Mesh, error) {
	if !(resolution > 0) {
		return nil, errors.New("meshgen: resolution must be positive")
	}
	sz := d3.Box(box).Size()
	div := meshclip.V3i{
		max(1, int(math.Ceil(sz.X/resolution))),
		max(1, int(math.Ceil(sz.Y/resolution))),
		max(1, int(math.Ceil(sz.Z/resolution))),
	}
	l, err := newLattice(box, div)
	if err != nil {
		return nil, err
	}
	pts := l.corners()
	nc := len(pts)
	center := func(c meshclip.V3i) int {
		return nc + c[0] + div[0]*(c[1]+div[1]*c[2])
	}
	for k := 0; k < div[2]; k++ {
		for j := 0; j < div[1]; j++ {
			for i := 0; i < div[0]; i++ {
				pts = append(pts, l.at(float64(i)+0.5, float64(j)+0.5, float64(k)+0.5))
			}
		}
	}
	m := meshclip.NewMesh(pts)
	tetra := func(a, b, c, d int) {
		if d3.TetVolume(pts[a], pts[b], pts[c], pts[d]) < 0 {
			b, c = c, b
		}
		m.AddCell(meshclip.Tetra, a, b, c, d)
	}
	// face returns the corners of the cell face normal to axis at the lower
	// (upper=false) or upper side of cell c, in cyclic order.
	face := func(c meshclip.V3i, axis int, upper bool) [4]int {
		u, v := (axis+1)%3, (axis+2)%3
		base := c
		if upper {
			base[axis]++
		}
		var du, dv meshclip.V3i
		du[u], dv[v] = 1, 1
		return [4]int{
			l.corner(base),
			l.corner(base.Add(du)),
			l.corner(base.Add(du).Add(dv)),
			l.corner(base.Add(dv)),
		}
	}
	for k := 0; k < div[2]; k++ {
		for j := 0; j < div[1]; j++ {
			for i := 0; i < div[0]; i++ {
				c := meshclip.V3i{i, j, k}
				ctr := center(c)
				for axis := 0; axis < 3; axis++ {
					f := face(c, axis, false)
					if c[axis] > 0 {
						nb := c
						nb[axis]--
						nctr := center(nb)
						for e := 0; e < 4; e++ {
							tetra(ctr, f[e], f[(e+1)%4], nctr)
						}
					} else {
						tetra(ctr, f[0], f[1], f[2])
						tetra(ctr, f[0], f[2], f[3])
					}
					if c[axis] == div[axis]-1 {
						f = face(c, axis, true)
						tetra(ctr, f[0], f[1], f[2])
						tetra(ctr, f[0], f[2], f[3])
					}
				}
			}
		}
	}
	return m, nil
}
