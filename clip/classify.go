package clip

import (
	"context"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/implicit"
	"github.com/soypat/meshclip/internal/parallel"
	"gonum.org/v1/gonum/spatial/r3"
)

// pointGrain is the number of points per parallel work unit.
const pointGrain = 4096

// classification is the per point state of one clip.
type classification struct {
	// diff is scalar minus threshold.
	diff []float64
	// sampled holds the function values when clipping by a function.
	sampled []float64
	// pointMap is the output index of a kept point and -1 for discarded points.
	pointMap []int
	numKept  int
}

func classify(ctx context.Context, pool *parallel.Pool, ds meshclip.Dataset, cfg Config, arr *meshclip.Array) (*classification, error) {
	np := ds.NumPoints()
	cl := &classification{
		diff:     make([]float64, np),
		pointMap: make([]int, np),
	}
	if arr == nil {
		cl.sampled = make([]float64, np)
	}
	thresh := cfg.threshold()
	keep := cfg.keptColor()
	batcher, _ := cfg.Function.(implicit.Batcher)
	nchunks := (np + pointGrain - 1) / pointGrain
	counts := make([]int, nchunks)
	errs := make([]error, nchunks)

	err := pool.Range(ctx, np, pointGrain, func(lo, hi int) {
		chunk := lo / pointGrain
		var vals []float64
		switch {
		case arr != nil:
			vals = arr.Data[lo:hi]
		case batcher != nil:
			pos := make([]r3.Vec, hi-lo)
			for i := range pos {
				pos[i] = ds.Point(lo + i)
			}
			vals = cl.sampled[lo:hi]
			if err := batcher.EvaluateBatch(pos, vals); err != nil {
				errs[chunk] = err
				return
			}
		default:
			vals = cl.sampled[lo:hi]
			for i := range vals {
				vals[i] = cfg.Function.Evaluate(ds.Point(lo + i))
			}
		}
		kept := 0
		for i, v := range vals {
			d := v - thresh
			cl.diff[lo+i] = d
			if colorOf(d) == keep {
				cl.pointMap[lo+i] = 1
				kept++
			} else {
				cl.pointMap[lo+i] = -1
			}
		}
		counts[chunk] = kept
	})
	if err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	cl.numKept = parallel.ExclusiveScan(counts)
	if cl.numKept == 0 {
		return cl, nil
	}
	err = pool.Range(ctx, np, pointGrain, func(lo, hi int) {
		next := counts[lo/pointGrain]
		for i := lo; i < hi; i++ {
			if cl.pointMap[i] > 0 {
				cl.pointMap[i] = next
				next++
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// sourceAttributes returns the point attributes interpolated into the
// output: the input arrays plus the sampled clip scalars when requested.
func sourceAttributes(ds meshclip.Dataset, cfg Config, cl *classification) *meshclip.Attributes {
	pd := ds.PointAttributes()
	if !cfg.GenerateClipScalars {
		return pd
	}
	src := &meshclip.Attributes{
		Arrays:        make([]*meshclip.Array, 0, len(pd.Arrays)+1),
		ActiveScalars: pd.ActiveScalars,
	}
	for _, a := range pd.Arrays {
		if a.Name != ClipScalarsName {
			src.Arrays = append(src.Arrays, a)
		}
	}
	src.SetScalars(&meshclip.Array{Name: ClipScalarsName, Components: 1, Data: cl.sampled})
	return src
}
