package clip

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/bits"
	"math/rand"
	"reflect"
	"slices"
	"testing"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/meshclip"
	"github.com/soypat/meshclip/implicit"
	"github.com/soypat/meshclip/internal/parallel"
	"gonum.org/v1/gonum/spatial/r3"
)

// cellMesh returns a mesh holding a single reference cell of type ct with
// point scalars s.
func cellMesh(ct meshclip.CellType, s []float64) *meshclip.Mesh {
	topo := topologyFor(ct)
	m := meshclip.NewMesh(slices.Clone(topo.ref))
	ids := make([]int, len(topo.ref))
	for i := range ids {
		ids[i] = i
	}
	m.AddCell(ct, ids...)
	arr := meshclip.NewArray("s", 1, len(s))
	copy(arr.Data, s)
	m.PointData.SetScalars(arr)
	return m
}

// addCoordArray adds a point array holding the x coordinate.
func addCoordArray(ds meshclip.Dataset) {
	x := meshclip.NewArray("x", 1, ds.NumPoints())
	for i := range x.Data {
		x.Data[i] = ds.Point(i).X
	}
	ds.PointAttributes().Add(x)
}

// meshVolume sums the volume of all cells, which must be 3D and not inverted.
func meshVolume(t *testing.T, m *meshclip.Mesh) float64 {
	t.Helper()
	return signedVolume(t, m, true)
}

func signedVolume(t *testing.T, m *meshclip.Mesh, strict bool) float64 {
	t.Helper()
	var total float64
	var pts []r3.Vec
	for c := range m.Types {
		topo := topologyFor(m.Types[c])
		if topo == nil || topo.dim != 3 {
			t.Fatalf("cell %d is a %s", c, m.Types[c])
		}
		pts = pts[:0]
		for _, id := range m.CellPoints(c) {
			pts = append(pts, m.Points[id])
		}
		v := topo.volume(pts)
		if strict && v < -1e-12 {
			t.Errorf("cell %d (%s) is inverted: volume %g", c, m.Types[c], v)
		}
		total += v
	}
	return total
}

func mustClip(t *testing.T, ds meshclip.Dataset, cfg Config) *meshclip.Mesh {
	t.Helper()
	m, err := Clip(context.Background(), ds, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestClipCube(t *testing.T) {
	m := cellMesh(meshclip.Hexahedron, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	out := mustClip(t, m, Config{Value: 0.5})
	if out.NumCells() != 1 || out.Types[0] != meshclip.Hexahedron {
		t.Fatalf("want a single hexahedron, got %v", out.Types)
	}
	if out.NumPoints() != 8 || len(out.Connectivity) != 8 {
		t.Fatalf("got %d points and %d connectivity, want 8 and 8", out.NumPoints(), len(out.Connectivity))
	}
	for i := 4; i < 8; i++ {
		if z := out.Points[i].Z; z != 0.5 {
			t.Errorf("edge point %d at z=%g", i, z)
		}
	}
	if v := meshVolume(t, out); !closeTo(v, 0.5, 1e-12) {
		t.Errorf("volume %g want 0.5", v)
	}
}

func TestClipTriangle(t *testing.T) {
	m := cellMesh(meshclip.Triangle, []float64{-1, 1, 1})
	out := mustClip(t, m, Config{})
	// Two corners are kept: the kept part is a quad.
	if out.NumCells() != 1 || out.Types[0] != meshclip.Quad || out.NumPoints() != 4 {
		t.Fatalf("above: got %v with %d points", out.Types, out.NumPoints())
	}
	out = mustClip(t, m, Config{InsideOut: true})
	if out.NumCells() != 1 || out.Types[0] != meshclip.Triangle || out.NumPoints() != 3 {
		t.Fatalf("below: got %v with %d points", out.Types, out.NumPoints())
	}
	want := []r3.Vec{{}, {X: 0.5}, {Y: 0.5}}
	for _, w := range want {
		if !slices.Contains(out.Points, w) {
			t.Errorf("missing point %v in %v", w, out.Points)
		}
	}
}

// TestClipAllCases clips a single cell for every corner pattern and checks
// the output against the case table.
func TestClipAllCases(t *testing.T) {
	for _, ct := range supported {
		tbl := tableFor(ct)
		n := len(tbl.topo.ref)
		for idx := range tbl.cases {
			s := make([]float64, n)
			for i := range s {
				s[i] = -1
				if idx>>i&1 != 0 {
					s[i] = 1
				}
			}
			for _, insideOut := range []bool{false, true} {
				cfg := Config{InsideOut: insideOut}
				out := mustClip(t, cellMesh(ct, s), cfg)
				keep := cfg.keptColor()
				cnt := tbl.cases[idx].count[keep]
				kept := bits.OnesCount(uint(idx))
				if insideOut {
					kept = n - kept
				}
				if kept == 0 {
					if out.NumPoints() != 0 || out.NumCells() != 0 {
						t.Errorf("%s case %d: output from nothing", ct, idx)
					}
					continue
				}
				wantPoints := kept + len(tbl.cases[idx].edges[keep]) + cnt.centroids
				if out.NumCells() != cnt.cells || len(out.Connectivity) != cnt.conn || out.NumPoints() != wantPoints {
					t.Errorf("%s case %d insideOut=%v: got %d cells %d conn %d points, want %d %d %d",
						ct, idx, insideOut, out.NumCells(), len(out.Connectivity), out.NumPoints(), cnt.cells, cnt.conn, wantPoints)
				}
				if tbl.topo.dim == 3 {
					meshVolume(t, out)
				}
			}
			if tbl.topo.dim == 3 {
				checkTiling(t, cellMesh(ct, s), true)
			}
		}
	}
}

// checkTiling splits a single cell mesh and checks that both sides add up to
// the volume of the cell. With strict set no output cell may be inverted.
func checkTiling(t *testing.T, m *meshclip.Mesh, strict bool) {
	t.Helper()
	kept, clipped, err := Split(context.Background(), m, Config{})
	if err != nil {
		t.Fatal(err)
	}
	topo := topologyFor(m.Types[0])
	total := topo.volume(m.Points)
	va, vb := signedVolume(t, kept, strict), signedVolume(t, clipped, strict)
	if !closeTo(va+vb, total, 1e-9) {
		t.Errorf("%s scalars %v: %g + %g != %g", topo.cell, m.PointData.Scalars().Data, va, vb, total)
	}
}

// TestClipRandomScalars cuts every 3D cell type with random corner scalars,
// whose cut surface is not planar, and checks that both sides still meet.
func TestClipRandomScalars(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, ct := range []meshclip.CellType{meshclip.Tetra, meshclip.Pyramid, meshclip.Wedge, meshclip.Hexahedron, meshclip.Voxel} {
		n := len(topologyFor(ct).ref)
		for trial := 0; trial < 200; trial++ {
			s := make([]float64, n)
			for i := range s {
				s[i] = 2*rng.Float64() - 1
			}
			checkTiling(t, cellMesh(ct, s), false)
		}
	}
}

// TestClipPlaneVolumes cuts every 3D cell type by random planes and checks
// that both sides tile the cell.
func TestClipPlaneVolumes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, ct := range []meshclip.CellType{meshclip.Tetra, meshclip.Pyramid, meshclip.Wedge, meshclip.Hexahedron, meshclip.Voxel} {
		topo := topologyFor(ct)
		total := topo.volume(topo.ref)
		for trial := 0; trial < 50; trial++ {
			n := r3.Unit(r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()})
			q := r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
			s := make([]float64, len(topo.ref))
			for i, p := range topo.ref {
				s[i] = r3.Dot(n, r3.Sub(p, q))
			}
			m := cellMesh(ct, s)
			addCoordArray(m)
			kept, clipped, err := Split(context.Background(), m, Config{})
			if err != nil {
				t.Fatal(err)
			}
			va, vb := meshVolume(t, kept), meshVolume(t, clipped)
			if !closeTo(va+vb, total, 1e-9) {
				t.Errorf("%s trial %d: %g + %g != %g", ct, trial, va, vb, total)
			}
			checkCoordArray(t, kept)
			checkCoordArray(t, clipped)
		}
	}
}

// checkCoordArray verifies interpolated attributes of a linear field.
func checkCoordArray(t *testing.T, m *meshclip.Mesh) {
	t.Helper()
	x := m.PointData.Get("x")
	if x == nil {
		t.Fatal("x array lost")
	}
	for i, p := range m.Points {
		if !closeTo(x.Data[i], p.X, 1e-12) {
			t.Fatalf("point %d: attribute %g, coordinate %g", i, x.Data[i], p.X)
		}
	}
}

func TestEdgeIdentity(t *testing.T) {
	g, err := meshclip.NewImageGrid(meshclip.V3i{3, 2, 2}, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	s := meshclip.NewArray("z", 1, g.NumPoints())
	for i := range s.Data {
		s.Data[i] = g.Point(i).Z
	}
	g.PointData.SetScalars(s)
	out := mustClip(t, g, Config{Value: 0.5})
	if out.NumCells() != 2 {
		t.Fatalf("got %d cells", out.NumCells())
	}
	// 6 kept points on top and one edge point per vertical edge.
	if out.NumPoints() != 12 {
		t.Fatalf("got %d points want 12", out.NumPoints())
	}
	used := make(map[int]bool)
	for _, id := range out.Connectivity {
		used[id] = true
	}
	if len(used) != 12 {
		t.Errorf("cells reference %d distinct points want 12", len(used))
	}
	a, b := out.CellPoints(0), out.CellPoints(1)
	shared := 0
	for _, id := range a {
		if slices.Contains(b, id) {
			shared++
		}
	}
	if shared != 4 {
		t.Errorf("neighbours share %d points want 4", shared)
	}
}

func sphereGrid(t testing.TB) *meshclip.Grid {
	g, err := meshclip.NewImageGrid(meshclip.V3i{7, 6, 5}, r3.Vec{X: -1.5, Y: -1.25, Z: -1}, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	addCoordArray(g)
	cd := meshclip.NewArray("cell", 1, g.NumCells())
	for i := range cd.Data {
		cd.Data[i] = float64(i)
	}
	g.CellData.Add(cd)
	return g
}

func sphereFunc(t testing.TB) implicit.Function {
	f, err := implicit.Sphere(1.1)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestBatchSizeInvariance(t *testing.T) {
	g := sphereGrid(t)
	base := mustClip(t, g, Config{Function: sphereFunc(t), InsideOut: true, BatchSize: 1000, Workers: 1})
	if base.NumCells() == 0 {
		t.Fatal("nothing clipped")
	}
	for _, cfg := range []Config{
		{BatchSize: 1, Workers: 4},
		{BatchSize: 7, Workers: 3},
		{BatchSize: 64},
	} {
		cfg.Function = sphereFunc(t)
		cfg.InsideOut = true
		got := mustClip(t, g, cfg)
		if !reflect.DeepEqual(got.Points, base.Points) || !reflect.DeepEqual(got.Types, base.Types) ||
			!reflect.DeepEqual(got.Offsets, base.Offsets) || !reflect.DeepEqual(got.Connectivity, base.Connectivity) ||
			!reflect.DeepEqual(got.PointData, base.PointData) || !reflect.DeepEqual(got.CellData, base.CellData) {
			t.Errorf("batch size %d workers %d changed the output", cfg.BatchSize, cfg.Workers)
		}
	}
}

func TestGridMatchesMesh(t *testing.T) {
	g := sphereGrid(t)
	cfg := Config{Function: sphereFunc(t)}
	fromGrid := mustClip(t, g, cfg)
	fromMesh := mustClip(t, meshclip.ToMesh(g), cfg)
	if !reflect.DeepEqual(fromGrid.Connectivity, fromMesh.Connectivity) || !reflect.DeepEqual(fromGrid.Points, fromMesh.Points) {
		t.Error("grid and explicit mesh clip differently")
	}
	checkCoordArray(t, fromGrid)
	// Every output cell inherits the id of its input cell.
	ids := fromGrid.CellData.Get("cell")
	for c := 1; c < fromGrid.NumCells(); c++ {
		if ids.Data[c] < ids.Data[c-1] {
			t.Fatalf("cell data out of order at %d", c)
		}
	}
}

func TestInsideOutPartition(t *testing.T) {
	g := sphereGrid(t)
	kept, clipped, err := Split(context.Background(), g, Config{Function: sphereFunc(t), Value: 0.05})
	if err != nil {
		t.Fatal(err)
	}
	// The sphere never passes exactly through a grid point.
	total := g.NumPoints()
	cfg := Config{Function: sphereFunc(t), Value: 0.05}
	pool := newTestPool(t)
	a, _ := classify(context.Background(), pool, g, cfg, nil)
	cfg.InsideOut = true
	b, _ := classify(context.Background(), pool, g, cfg, nil)
	if a.numKept+b.numKept != total {
		t.Fatalf("kept %d + %d points of %d", a.numKept, b.numKept, total)
	}
	for i := range a.pointMap {
		if (a.pointMap[i] >= 0) == (b.pointMap[i] >= 0) {
			t.Fatalf("point %d kept by both or neither side", i)
		}
	}
	vk, vc := signedVolume(t, kept, false), signedVolume(t, clipped, false)
	box := 3.0 * 2.5 * 2
	if !closeTo(vk+vc, box, 0.05*box) {
		t.Errorf("sides cover %g of %g", vk+vc, box)
	}
}

func TestAllKeptAllDiscarded(t *testing.T) {
	g := sphereGrid(t)
	m := meshclip.ToMesh(g)
	s := meshclip.NewArray("s", 1, m.NumPoints())
	for i := range s.Data {
		s.Data[i] = 2 + float64(i%3)
	}
	m.PointData.SetScalars(s)
	out := mustClip(t, m, Config{Value: 1})
	if !reflect.DeepEqual(out.Types, m.Types) || !reflect.DeepEqual(out.Connectivity, m.Connectivity) {
		t.Error("keeping every point must reproduce the input cells")
	}
	out = mustClip(t, m, Config{Value: 10})
	if out.NumPoints() != 0 || out.NumCells() != 0 {
		t.Errorf("got %d points %d cells from nothing kept", out.NumPoints(), out.NumCells())
	}
	if out.PointData.Get("x") == nil || out.CellData.Get("cell") == nil {
		t.Error("empty output must keep the attribute layout")
	}
}

func TestGhostCellsSkipped(t *testing.T) {
	g := sphereGrid(t)
	g.Ghosts = make([]uint8, g.NumCells())
	for i := range g.Ghosts {
		g.Ghosts[i] = 1
	}
	out := mustClip(t, g, Config{Function: sphereFunc(t)})
	if out.NumCells() != 0 {
		t.Errorf("ghost cells produced %d cells", out.NumCells())
	}
}

func TestClipScalars(t *testing.T) {
	m := cellMesh(meshclip.Hexahedron, make([]float64, 8))
	m.PointData = meshclip.Attributes{}
	plane, err := implicit.Plane(r3.Vec{}, r3.Vec{Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	out := mustClip(t, m, Config{Function: plane, Value: 0.25, GenerateClipScalars: true})
	s := out.PointData.Scalars()
	if s == nil || s.Name != ClipScalarsName {
		t.Fatalf("clip scalars not attached: %+v", out.PointData)
	}
	for i, p := range out.Points {
		if !closeTo(s.Data[i], p.Z, 1e-12) {
			t.Errorf("point %d: scalar %g at z=%g", i, s.Data[i], p.Z)
		}
	}
	if v := meshVolume(t, out); !closeTo(v, 0.75, 1e-12) {
		t.Errorf("volume %g want 0.75", v)
	}

	shifted := implicit.Func(func(p r3.Vec) float64 { return p.Z - 0.25 })
	out = mustClip(t, m, Config{Function: shifted, Value: 0.5, IgnoreValueOffset: true})
	if v := meshVolume(t, out); !closeTo(v, 0.75, 1e-12) {
		t.Errorf("ignoring value offset: volume %g want 0.75", v)
	}
}

// zPlane is a vectorized field equal to z.
type zPlane struct{}

func (zPlane) Evaluate(pos []ms3.Vec, dist []float32, _ any) error {
	for i, p := range pos {
		dist[i] = p.Z
	}
	return nil
}

func TestBatchedFunction(t *testing.T) {
	g := sphereGrid(t)
	want := mustClip(t, g, Config{Function: implicit.Func(func(p r3.Vec) float64 { return p.Z }), Value: 0.25})
	got := mustClip(t, g, Config{Function: implicit.FromBatch(zPlane{}), Value: 0.25})
	if got.NumCells() != want.NumCells() || got.NumPoints() != want.NumPoints() {
		t.Errorf("batched evaluation differs: %d/%d cells", got.NumCells(), want.NumCells())
	}
}

func TestClipErrors(t *testing.T) {
	ctx := context.Background()
	m := cellMesh(meshclip.Tetra, []float64{0, 1, 2, 3})
	m.PointData = meshclip.Attributes{}
	if _, err := Clip(ctx, m, Config{}); !errors.Is(err, ErrNoScalars) {
		t.Errorf("want ErrNoScalars, got %v", err)
	}
	if _, err := Clip(ctx, m, Config{GenerateClipScalars: true}); !errors.Is(err, ErrClipScalarsNeedFunction) {
		t.Errorf("want ErrClipScalarsNeedFunction, got %v", err)
	}
	m.PointData.SetScalars(meshclip.NewArray("v", 3, 4))
	if _, err := Clip(ctx, m, Config{}); !errors.Is(err, ErrBadScalars) {
		t.Errorf("want ErrBadScalars, got %v", err)
	}
	m.PointData.Add(meshclip.NewArray("w", 1, 4))
	if _, err := Clip(ctx, m, Config{Scalars: "missing"}); !errors.Is(err, ErrNoScalars) {
		t.Errorf("want ErrNoScalars for unknown array, got %v", err)
	}
	if _, err := Clip(ctx, m, Config{Scalars: "w"}); err != nil {
		t.Errorf("named array: %v", err)
	}
	m.Connectivity[0] = 42
	if _, err := Clip(ctx, m, Config{Scalars: "w"}); !errors.Is(err, meshclip.ErrInvalidMesh) {
		t.Errorf("want ErrInvalidMesh, got %v", err)
	}

	empty, err := Clip(ctx, meshclip.NewMesh(nil), Config{})
	if err != nil || empty.NumPoints() != 0 || empty.NumCells() != 0 {
		t.Errorf("empty mesh: %v %v", empty, err)
	}
}

func TestClipCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := Clip(ctx, sphereGrid(t), Config{Function: sphereFunc(t)})
	if !errors.Is(err, context.Canceled) || out != nil {
		t.Errorf("want context.Canceled and no mesh, got %v %v", out, err)
	}
}

func TestClipFallback(t *testing.T) {
	defer meshclip.SetLogger(nil)
	var logs bytes.Buffer
	meshclip.SetLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn})))

	m := meshclip.NewMesh([]r3.Vec{
		{}, {X: 2}, {X: 2, Y: 2}, {Y: 2},
		{X: 3}, {X: 4}, {X: 3, Y: 1},
	})
	m.AddCell(meshclip.Polygon, 0, 1, 2, 3)
	m.AddCell(meshclip.PolyLine, 0, 1, 2)
	m.AddCell(meshclip.Triangle, 4, 5, 6)
	addCoordArray(m)
	m.PointData.ActiveScalars = "x"
	out := mustClip(t, m, Config{Value: 0.5})
	checkCoordArray(t, out)

	var area, length float64
	for c, typ := range out.Types {
		var pts []r3.Vec
		for _, id := range out.CellPoints(c) {
			pts = append(pts, out.Points[id])
		}
		switch typ {
		case meshclip.Triangle, meshclip.Quad:
			area += r3.Norm(newell(pts)) / 2
		case meshclip.Line:
			length += r3.Norm(r3.Sub(pts[1], pts[0]))
		default:
			t.Errorf("unexpected %s", typ)
		}
	}
	if !closeTo(area, 3.5, 1e-12) {
		t.Errorf("area %g want 3.5", area)
	}
	if !closeTo(length, 3.5, 1e-12) {
		t.Errorf("length %g want 3.5", length)
	}
	if !bytes.Contains(logs.Bytes(), []byte("without case tables")) {
		t.Error("fallback not logged")
	}
}

func TestClipPolyData(t *testing.T) {
	pd := &meshclip.PolyData{
		Points: []r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}},
		Polys:  [][]int{{0, 1, 2}, {0, 2, 3}},
	}
	y := meshclip.NewArray("y", 1, 4)
	copy(y.Data, []float64{0, 0, 1, 1})
	pd.PointData.SetScalars(y)
	out, err := ClipPolyData(context.Background(), pd, Config{Value: 0.25})
	if err != nil {
		t.Fatal(err)
	}
	var area float64
	for c := range out.Types {
		var pts []r3.Vec
		for _, id := range out.CellPoints(c) {
			pts = append(pts, out.Points[id])
		}
		area += r3.Norm(newell(pts)) / 2
	}
	if !closeTo(area, 0.75, 1e-12) {
		t.Errorf("area %g want 0.75", area)
	}
}

func newell(pts []r3.Vec) r3.Vec {
	var n r3.Vec
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		n = r3.Add(n, r3.Cross(p, q))
	}
	return n
}

func newTestPool(t *testing.T) *parallel.Pool {
	p := parallel.NewPool(2)
	t.Cleanup(p.Close)
	return p
}

func BenchmarkClipGrid(b *testing.B) {
	g, err := meshclip.NewImageGrid(meshclip.V3i{40, 40, 40}, r3.Vec{X: -1, Y: -1, Z: -1}, r3.Vec{X: 0.05, Y: 0.05, Z: 0.05})
	if err != nil {
		b.Fatal(err)
	}
	f := sphereFunc(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Clip(context.Background(), g, Config{Function: f}); err != nil {
			b.Fatal(err)
		}
	}
}
