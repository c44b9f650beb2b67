package implicit

import (
	"errors"
	"sync"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

type sdfxFunc struct {
	s sdf.SDF3
}

// FromSDFX wraps a github.com/deadsy/sdfx solid.
func FromSDFX(s sdf.SDF3) Function {
	return sdfxFunc{s: s}
}

func (f sdfxFunc) Evaluate(p r3.Vec) float64 {
	return f.s.Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

// Batched is a vectorized single precision evaluator such as those used to
// run distance fields on the GPU. Distances for pos are stored in dist.
type Batched interface {
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
}

var errBatchLength = errors.New("position and distance buffers differ in length")

type batchFunc struct {
	b    Batched
	pool sync.Pool
}

type batchBuf struct {
	pos  []ms3.Vec
	dist []float32
}

// FromBatch adapts a vectorized float32 evaluator. The returned Function also
// implements Batcher and may be evaluated from multiple goroutines provided b
// can.
func FromBatch(b Batched) Function {
	f := &batchFunc{b: b}
	f.pool.New = func() any { return new(batchBuf) }
	return f
}

// Evaluate panics if the underlying evaluator fails.
func (f *batchFunc) Evaluate(p r3.Vec) float64 {
	var dist [1]float32
	pos := [1]ms3.Vec{toMS3(p)}
	if err := f.b.Evaluate(pos[:], dist[:], nil); err != nil {
		panic(err)
	}
	return float64(dist[0])
}

func (f *batchFunc) EvaluateBatch(pos []r3.Vec, dist []float64) error {
	if len(pos) != len(dist) {
		return errBatchLength
	}
	buf := f.pool.Get().(*batchBuf)
	defer f.pool.Put(buf)
	buf.pos = buf.pos[:0]
	for _, p := range pos {
		buf.pos = append(buf.pos, toMS3(p))
	}
	if cap(buf.dist) < len(pos) {
		buf.dist = make([]float32, len(pos))
	}
	buf.dist = buf.dist[:len(pos)]
	if err := f.b.Evaluate(buf.pos, buf.dist, nil); err != nil {
		return err
	}
	for i, d := range buf.dist {
		dist[i] = float64(d)
	}
	return nil
}

func toMS3(p r3.Vec) ms3.Vec {
	return ms3.Vec{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
}
