package meshclip

import "gonum.org/v1/gonum/spatial/r3"

// Append concatenates meshes into a new mesh. Point ids of each input are
// offset by the number of points preceding it. Only attribute arrays present
// in every non-empty input with equal components are kept. Active scalars
// are kept when all non-empty inputs agree on them.
func Append(meshes ...*Mesh) *Mesh {
	var inputs []*Mesh
	np, nc, nconn := 0, 0, 0
	for _, m := range meshes {
		if m == nil || (len(m.Points) == 0 && len(m.Types) == 0) {
			continue
		}
		inputs = append(inputs, m)
		np += len(m.Points)
		nc += len(m.Types)
		nconn += len(m.Connectivity)
	}
	out := &Mesh{
		Points:       make([]r3.Vec, 0, np),
		Types:        make([]CellType, 0, nc),
		Offsets:      make([]int, 1, nc+1),
		Connectivity: make([]int, 0, nconn),
	}
	if len(inputs) == 0 {
		return out
	}
	out.PointData = commonAttributes(inputs, np, func(m *Mesh) *Attributes { return &m.PointData })
	out.CellData = commonAttributes(inputs, nc, func(m *Mesh) *Attributes { return &m.CellData })
	anyGhost := false
	for _, m := range inputs {
		anyGhost = anyGhost || m.Ghosts != nil
	}
	if anyGhost {
		out.Ghosts = make([]uint8, 0, nc)
	}

	for _, m := range inputs {
		pointOffset := len(out.Points)
		cellOffset := len(out.Types)
		out.Points = append(out.Points, m.Points...)
		for i := range m.Types {
			start := len(out.Connectivity)
			for _, id := range m.CellPoints(i) {
				out.Connectivity = append(out.Connectivity, id+pointOffset)
			}
			out.Types = append(out.Types, m.Types[i])
			out.Offsets = append(out.Offsets, start+len(m.CellPoints(i)))
		}
		if anyGhost {
			if m.Ghosts != nil {
				out.Ghosts = append(out.Ghosts, m.Ghosts...)
			} else {
				out.Ghosts = append(out.Ghosts, make([]uint8, len(m.Types))...)
			}
		}
		appendTuples(&out.PointData, pointOffset, &m.PointData)
		appendTuples(&out.CellData, cellOffset, &m.CellData)
	}
	return out
}

// commonAttributes returns zeroed arrays sized n for every array found in
// all inputs.
func commonAttributes(inputs []*Mesh, n int, get func(*Mesh) *Attributes) Attributes {
	first := get(inputs[0])
	var out Attributes
	for _, a := range first.Arrays {
		common := true
		for _, m := range inputs[1:] {
			b := get(m).Get(a.Name)
			if b == nil || b.Components != a.Components {
				common = false
				break
			}
		}
		if common {
			out.Arrays = append(out.Arrays, NewArray(a.Name, a.Components, n))
		}
	}
	active := first.ActiveScalars
	for _, m := range inputs[1:] {
		if get(m).ActiveScalars != active {
			active = ""
		}
	}
	if out.Get(active) != nil {
		out.ActiveScalars = active
	}
	return out
}

func appendTuples(dst *Attributes, offset int, src *Attributes) {
	for _, a := range dst.Arrays {
		s := src.Get(a.Name)
		copy(a.Data[offset*a.Components:], s.Data)
	}
}
