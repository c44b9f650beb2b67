// Package implicit provides scalar fields over 3D space used to derive clip
// scalars. Fields follow the signed distance convention: negative inside a
// shape, positive outside and zero on its surface.
package implicit

import (
	"errors"
	"math"

	"github.com/soypat/meshclip/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Function is a scalar field evaluated at a point in space.
type Function interface {
	Evaluate(p r3.Vec) float64
}

// Batcher is implemented by functions that evaluate many points per call more
// efficiently than one at a time. dist and pos must be of the same length.
type Batcher interface {
	EvaluateBatch(pos []r3.Vec, dist []float64) error
}

// Func adapts an ordinary function to the Function interface.
type Func func(p r3.Vec) float64

func (f Func) Evaluate(p r3.Vec) float64 { return f(p) }

var (
	errZeroNormal = errors.New("plane normal is zero")
	errRadius     = errors.New("radius must be positive")
	errRound      = errors.New("invalid rounding")
	errSize       = errors.New("size must be positive")
	errNoFuncs    = errors.New("need at least one function")
)

type plane struct {
	origin, normal r3.Vec
}

// Plane returns the signed distance to the plane through origin with the
// given normal. Points on the side the normal points to are positive.
func Plane(origin, normal r3.Vec) (Function, error) {
	n := r3.Norm(normal)
	if n == 0 {
		return nil, errZeroNormal
	}
	return &plane{origin: origin, normal: r3.Scale(1/n, normal)}, nil
}

func (s *plane) Evaluate(p r3.Vec) float64 {
	return r3.Dot(s.normal, r3.Sub(p, s.origin))
}

type sphere struct {
	radius float64
}

// Sphere returns the exact distance field of a sphere centered at the origin.
func Sphere(radius float64) (Function, error) {
	if radius <= 0 {
		return nil, errRadius
	}
	return &sphere{radius: radius}, nil
}

func (s *sphere) Evaluate(p r3.Vec) float64 {
	return r3.Norm(p) - s.radius
}

type box struct {
	half  r3.Vec
	round float64
}

// Box returns the distance field of a box of the given size centered at the
// origin with edges rounded by round.
func Box(size r3.Vec, round float64) (Function, error) {
	if d3.LTEZero(size) {
		return nil, errSize
	}
	half := r3.Scale(0.5, size)
	if round < 0 || round > d3.Min(half) {
		return nil, errRound
	}
	return &box{half: r3.Sub(half, d3.Elem(round)), round: round}, nil
}

func (s *box) Evaluate(p r3.Vec) float64 {
	return boxDist(p, s.half) - s.round
}

func boxDist(p, half r3.Vec) float64 {
	d := r3.Sub(d3.AbsElem(p), half)
	outside := r3.Norm(d3.MaxElem(d, r3.Vec{}))
	inside := math.Min(d3.Max(d), 0)
	return outside + inside
}

type cylinder struct {
	halfHeight, radius, round float64
}

// Cylinder returns the distance field of a cylinder along the Z axis
// centered at the origin, with edges rounded by round.
func Cylinder(height, radius, round float64) (Function, error) {
	switch {
	case radius <= 0:
		return nil, errRadius
	case height <= 0:
		return nil, errSize
	case round < 0 || round > radius || height < 2*round:
		return nil, errRound
	}
	return &cylinder{halfHeight: height/2 - round, radius: radius - round, round: round}, nil
}

func (s *cylinder) Evaluate(p r3.Vec) float64 {
	dx := math.Hypot(p.X, p.Y) - s.radius
	dz := math.Abs(p.Z) - s.halfHeight
	outside := math.Hypot(math.Max(dx, 0), math.Max(dz, 0))
	return outside + math.Min(math.Max(dx, dz), 0) - s.round
}

type union struct{ fs []Function }

// Union returns the minimum of the given fields.
func Union(fs ...Function) (Function, error) {
	if len(fs) == 0 {
		return nil, errNoFuncs
	}
	return &union{fs: fs}, nil
}

func (s *union) Evaluate(p r3.Vec) float64 {
	d := math.Inf(1)
	for _, f := range s.fs {
		d = math.Min(d, f.Evaluate(p))
	}
	return d
}

type intersection struct{ fs []Function }

// Intersection returns the maximum of the given fields.
func Intersection(fs ...Function) (Function, error) {
	if len(fs) == 0 {
		return nil, errNoFuncs
	}
	return &intersection{fs: fs}, nil
}

func (s *intersection) Evaluate(p r3.Vec) float64 {
	d := math.Inf(-1)
	for _, f := range s.fs {
		d = math.Max(d, f.Evaluate(p))
	}
	return d
}

type difference struct{ a, b Function }

// Difference returns the field of a with b carved out.
func Difference(a, b Function) Function {
	return &difference{a: a, b: b}
}

func (s *difference) Evaluate(p r3.Vec) float64 {
	return math.Max(s.a.Evaluate(p), -s.b.Evaluate(p))
}

type negate struct{ f Function }

// Negate flips the sign of f, exchanging inside and outside.
func Negate(f Function) Function { return &negate{f: f} }

func (s *negate) Evaluate(p r3.Vec) float64 { return -s.f.Evaluate(p) }

type translate struct {
	f   Function
	off r3.Vec
}

// Translate moves f by off.
func Translate(f Function, off r3.Vec) Function {
	return &translate{f: f, off: off}
}

func (s *translate) Evaluate(p r3.Vec) float64 {
	return s.f.Evaluate(r3.Sub(p, s.off))
}
