// Package meshio reads and writes mesh surfaces as binary STL.
package meshio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/meshclip"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEmptySurface is returned by WriteSTL when the mesh has no surface to write.
var ErrEmptySurface = errors.New("mesh has no boundary surface")

const stlTriangleSize = 50

// WriteSTL writes the boundary surface of m to w in binary STL format.
// Two dimensional cells are triangulated as they are. Faces of three
// dimensional cells are written only when no other cell shares them, oriented
// away from the owning cell. Vertices, lines and zero area triangles are skipped.
func WriteSTL(w io.Writer, m *meshclip.Mesh) error {
	tris := Surface(m)
	if len(tris) == 0 {
		return ErrEmptySurface
	}
	header := stlHeader{
		Count: uint32(len(tris)),
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &header); err != nil {
		return err
	}
	var (
		b [stlTriangleSize]byte
		d stlTriangle
	)
	for _, t := range tris {
		d.Vertex1 = to3F32(t[0])
		d.Vertex2 = to3F32(t[1])
		d.Vertex3 = to3F32(t[2])
		d.Normal = d.normalFromVertices()
		d.put(b[:])
		if _, err := bw.Write(b[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadSTL reads a binary STL stream. Vertices with identical coordinates are
// shared between triangles. The stored facet normals are returned as the
// "Normals" cell array.
func ReadSTL(r io.Reader) (*meshclip.PolyData, error) {
	var header stlHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errors.New("encountered EOF while reading STL header")
		}
		return nil, errors.New("STL header read failed: " + err.Error())
	}
	if header.Count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	n := int(header.Count)
	pd := &meshclip.PolyData{Polys: make([][]int, 0, n)}
	normals := meshclip.NewArray("Normals", 3, 0)
	index := make(map[[3]float32]int)
	vertex := func(f [3]float32) int {
		if id, ok := index[f]; ok {
			return id
		}
		id := len(pd.Points)
		index[f] = id
		pd.Points = append(pd.Points, r3From3F32(f))
		return id
	}
	var (
		buf [stlTriangleSize]byte
		d   stlTriangle
	)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%d/%d STL triangles read: %w", i, n, err)
		}
		d.get(buf[:])
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("STL triangle %d: %w", i, err)
		}
		pd.Polys = append(pd.Polys, []int{vertex(d.Vertex1), vertex(d.Vertex2), vertex(d.Vertex3)})
		normals.Data = append(normals.Data, float64(d.Normal[0]), float64(d.Normal[1]), float64(d.Normal[2]))
	}
	pd.CellData.Add(normals)
	return pd, nil
}

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8 // Header
	Count uint32    // Number of triangles
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
	_       uint16 // Attribute byte count
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (t *stlTriangle) get(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to unmarshal stlTriangle")
	}
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertex1)
	get3F32(b[24:], &t.Vertex2)
	get3F32(b[36:], &t.Vertex3)
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

func (t stlTriangle) validate() error {
	if bad3F32(t.Normal) {
		return errors.New("inf/NaN STL triangle normal")
	}
	if bad3F32(t.Vertex1) || bad3F32(t.Vertex2) || bad3F32(t.Vertex3) {
		return errors.New("inf/NaN STL triangle vertex")
	}
	return nil
}

// normalFromVertices returns the unit normal of the triangle or the zero
// vector if the triangle is degenerate in single precision.
func (t stlTriangle) normalFromVertices() [3]float32 {
	e1 := sub3F32(t.Vertex2, t.Vertex1)
	e2 := sub3F32(t.Vertex3, t.Vertex1)
	n := [3]float32{
		e1[1]*e2[2] - e1[2]*e2[1],
		e1[2]*e2[0] - e1[0]*e2[2],
		e1[0]*e2[1] - e1[1]*e2[0],
	}
	l := math32.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return [3]float32{}
	}
	return [3]float32{n[0] / l, n[1] / l, n[2] / l}
}

func sub3F32(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func to3F32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func r3From3F32(f [3]float32) r3.Vec {
	return r3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}
}
