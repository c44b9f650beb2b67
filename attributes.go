package meshclip

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Array is a named array of fixed size tuples associated with either the
// points or the cells of a mesh. Tuple i occupies Data[i*Components:(i+1)*Components].
type Array struct {
	Name       string
	Components int
	Data       []float64
}

// NewArray allocates a zeroed array of n tuples.
func NewArray(name string, components, n int) *Array {
	if components <= 0 {
		panic("array components must be positive")
	}
	return &Array{Name: name, Components: components, Data: make([]float64, components*n)}
}

// Len returns the number of tuples in the array.
func (a *Array) Len() int { return len(a.Data) / a.Components }

// Tuple returns the i'th tuple. The returned slice aliases the array data.
func (a *Array) Tuple(i int) []float64 {
	return a.Data[i*a.Components : (i+1)*a.Components : (i+1)*a.Components]
}

// Attributes is an ordered set of arrays sharing the same tuple count.
type Attributes struct {
	Arrays []*Array
	// ActiveScalars names the array used as clip scalars when none is configured.
	ActiveScalars string
}

// Add appends an array, replacing an existing array of the same name.
func (at *Attributes) Add(a *Array) {
	for i := range at.Arrays {
		if at.Arrays[i].Name == a.Name {
			at.Arrays[i] = a
			return
		}
	}
	at.Arrays = append(at.Arrays, a)
}

// SetScalars adds a and marks it as the active scalars.
func (at *Attributes) SetScalars(a *Array) {
	at.Add(a)
	at.ActiveScalars = a.Name
}

// Get returns the array with the given name or nil.
func (at *Attributes) Get(name string) *Array {
	for _, a := range at.Arrays {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Scalars returns the active scalars array or nil.
func (at *Attributes) Scalars() *Array {
	if at.ActiveScalars == "" {
		return nil
	}
	return at.Get(at.ActiveScalars)
}

// NewLike returns empty-valued attributes with the same arrays
// (names, components, active scalars) sized for n tuples.
func (at *Attributes) NewLike(n int) Attributes {
	out := Attributes{ActiveScalars: at.ActiveScalars, Arrays: make([]*Array, len(at.Arrays))}
	for i, a := range at.Arrays {
		out.Arrays[i] = NewArray(a.Name, a.Components, n)
	}
	return out
}

// Clone returns a deep copy of the attributes.
func (at *Attributes) Clone() Attributes {
	out := Attributes{ActiveScalars: at.ActiveScalars, Arrays: make([]*Array, len(at.Arrays))}
	for i, a := range at.Arrays {
		out.Arrays[i] = &Array{Name: a.Name, Components: a.Components, Data: append([]float64(nil), a.Data...)}
	}
	return out
}

func (at *Attributes) validate(n int, what string) error {
	for _, a := range at.Arrays {
		if a.Components <= 0 || len(a.Data)%a.Components != 0 {
			return fmt.Errorf("%w: %s array %q has ragged data", ErrInvalidMesh, what, a.Name)
		}
		if a.Len() != n {
			return fmt.Errorf("%w: %s array %q has %d tuples, want %d", ErrInvalidMesh, what, a.Name, a.Len(), n)
		}
	}
	return nil
}

// The tuple helpers below expect dst to have been created by src.NewLike so
// that arrays line up by index.

// CopyTuple copies tuple si of every src array into tuple di of dst.
func CopyTuple(dst *Attributes, di int, src *Attributes, si int) {
	for k, a := range src.Arrays {
		copy(dst.Arrays[k].Tuple(di), a.Tuple(si))
	}
}

// LerpTuple writes (1-t)*src[a] + t*src[b] into tuple di of dst.
func LerpTuple(dst *Attributes, di int, src *Attributes, a, b int, t float64) {
	for k, arr := range src.Arrays {
		d := dst.Arrays[k].Tuple(di)
		copy(d, arr.Tuple(a))
		floats.Scale(1-t, d)
		floats.AddScaled(d, t, arr.Tuple(b))
	}
}

// MeanTuple writes the equally weighted mean of tuples ids of src into
// tuple di of dst. di must not be one of ids when dst == src.
func MeanTuple(dst *Attributes, di int, src *Attributes, ids []int) {
	if len(ids) == 0 {
		return
	}
	w := 1 / float64(len(ids))
	for k, arr := range src.Arrays {
		d := dst.Arrays[k].Tuple(di)
		for i := range d {
			d[i] = 0
		}
		for _, id := range ids {
			floats.Add(d, arr.Tuple(id))
		}
		floats.Scale(w, d)
	}
}
