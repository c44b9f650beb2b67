package clip

import (
	"context"
	"log/slog"

	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/internal/parallel"
)

// Clip returns the part of ds on the kept side of the threshold. Cells
// crossing the threshold are split; new points are placed where cell edges
// cross it and, for some cases, at centroids. Point attributes are
// interpolated and cell attributes are copied from the originating cell.
//
// An empty dataset yields an empty mesh. If ctx is cancelled Clip returns
// ctx.Err() and no mesh.
func Clip(ctx context.Context, ds meshclip.Dataset, cfg Config) (*meshclip.Mesh, error) {
	arr, empty, err := prepare(ds, cfg)
	if err != nil || empty != nil {
		return empty, err
	}
	pool := parallel.NewPool(cfg.Workers)
	defer pool.Close()
	return clip(ctx, pool, ds, cfg, arr)
}

// Split returns both parts of ds: the part Clip would return and the part
// it clips away, obtained by clipping again with InsideOut inverted.
func Split(ctx context.Context, ds meshclip.Dataset, cfg Config) (kept, clipped *meshclip.Mesh, err error) {
	arr, empty, err := prepare(ds, cfg)
	if err != nil {
		return nil, nil, err
	} else if empty != nil {
		return empty, emptyMesh(ds, cfg, nil), nil
	}
	pool := parallel.NewPool(cfg.Workers)
	defer pool.Close()
	kept, err = clip(ctx, pool, ds, cfg, arr)
	if err != nil {
		return nil, nil, err
	}
	cfg.InsideOut = !cfg.InsideOut
	clipped, err = clip(ctx, pool, ds, cfg, arr)
	if err != nil {
		return nil, nil, err
	}
	return kept, clipped, nil
}

// ClipPolyData converts a surface to a mesh and clips it.
func ClipPolyData(ctx context.Context, pd *meshclip.PolyData, cfg Config) (*meshclip.Mesh, error) {
	m, err := pd.ToMesh()
	if err != nil {
		return nil, err
	}
	return Clip(ctx, m, cfg)
}

// prepare validates the input. It returns the scalar array to clip by, or a
// non-nil empty result when there is nothing to clip.
func prepare(ds meshclip.Dataset, cfg Config) (*meshclip.Array, *meshclip.Mesh, error) {
	if v, ok := ds.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, nil, err
		}
	}
	if ds.NumPoints() == 0 || ds.NumCells() == 0 {
		return nil, emptyMesh(ds, cfg, nil), nil
	}
	arr, err := cfg.scalarArray(ds)
	if err != nil {
		return nil, nil, err
	}
	return arr, nil, nil
}

func emptyMesh(ds meshclip.Dataset, cfg Config, src *meshclip.Attributes) *meshclip.Mesh {
	if src == nil {
		src = ds.PointAttributes()
		if cfg.GenerateClipScalars && cfg.Function != nil {
			src = sourceAttributes(ds, cfg, &classification{})
		}
	}
	m := meshclip.NewMesh(nil)
	m.PointData = src.NewLike(0)
	m.CellData = ds.CellAttributes().NewLike(0)
	return m
}

func clip(ctx context.Context, pool *parallel.Pool, ds meshclip.Dataset, cfg Config, arr *meshclip.Array) (*meshclip.Mesh, error) {
	log := meshclip.Logger()
	keep := cfg.keptColor()
	cl, err := classify(ctx, pool, ds, cfg, arr)
	if err != nil {
		return nil, err
	}
	src := sourceAttributes(ds, cfg, cl)
	if cl.numKept == 0 {
		log.Debug("clip: no points kept", slog.Int("points", ds.NumPoints()))
		return emptyMesh(ds, cfg, src), nil
	}

	ev, err := evaluate(ctx, pool, ds, cl, cfg)
	if err != nil {
		return nil, err
	}
	p := planBatches(ev.batches)
	loc := locateEdges(p.batches)
	out := newOutput(ds, cl, loc, p.total)
	if err := extractCells(ctx, pool, ds, cl, ev, p, loc, keep, out); err != nil {
		return nil, err
	}
	if err := extractPoints(ctx, pool, ds, cl, loc, src, out); err != nil {
		return nil, err
	}
	log.Debug("clip: table cells extracted",
		slog.Int("keptPoints", cl.numKept),
		slog.Int("edgePoints", len(loc.edges)),
		slog.Int("centroids", p.total.centroids),
		slog.Int("cells", p.total.cells),
		slog.Int("batches", len(p.batches)),
	)
	m := out.mesh
	if len(ev.unsupported) > 0 {
		log.Warn("clip: clipping cells without case tables", slog.Int("cells", len(ev.unsupported)))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m = meshclip.Append(m, clipGeneric(ds, ev.unsupported, cl, keep, src))
	}
	return m, nil
}
