package clip

import (
	"context"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/d3"
	"github.com/soypat/meshclip/internal/parallel"
	"gonum.org/v1/gonum/spatial/r3"
)

// extractPoints fills in output coordinates and point attributes. Kept
// points are copied and edge points interpolated; centroids are averaged
// from those once both are in place.
func extractPoints(ctx context.Context, pool *parallel.Pool, ds meshclip.Dataset, cl *classification, loc *edgeLocator, src *meshclip.Attributes, out *output) error {
	m := out.mesh
	m.Points = make([]r3.Vec, out.numPoints())
	m.PointData = src.NewLike(len(m.Points))
	err := pool.Range(ctx, len(cl.pointMap), pointGrain, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if id := cl.pointMap[i]; id >= 0 {
				m.Points[id] = ds.Point(i)
				meshclip.CopyTuple(&m.PointData, id, src, i)
			}
		}
	})
	if err != nil {
		return err
	}
	err = pool.Range(ctx, len(loc.edges), pointGrain, func(lo, hi int) {
		for k := lo; k < hi; k++ {
			e := loc.edges[k]
			id := out.numKept + k
			m.Points[id] = d3.Lerp(ds.Point(e.a), ds.Point(e.b), e.t)
			meshclip.LerpTuple(&m.PointData, id, src, e.a, e.b, e.t)
		}
	})
	if err != nil {
		return err
	}
	base := out.numKept + out.numEdges
	return pool.Range(ctx, len(out.centroidOff)-1, pointGrain, func(lo, hi int) {
		pts := make([]r3.Vec, 0, 16)
		for k := lo; k < hi; k++ {
			ids := out.centroidIDs[out.centroidOff[k]:out.centroidOff[k+1]]
			pts = pts[:0]
			for _, id := range ids {
				pts = append(pts, m.Points[id])
			}
			m.Points[base+k] = d3.Mean(pts...)
			meshclip.MeanTuple(&m.PointData, base+k, &m.PointData, ids)
		}
	})
}
