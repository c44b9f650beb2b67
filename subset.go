package meshclip

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// ExtractCells returns a mesh restricted to the cells with the given ids.
// ids may be unsorted and contain duplicates; output cells are ordered by
// ascending input id. Only points used by the extracted cells are kept, in
// ascending input order, and pointIDs[i] is the input index of output point i.
// Point and cell attributes and ghost flags are carried through.
func ExtractCells(ds Dataset, ids []int) (m *Mesh, pointIDs []int) {
	cells := slices.Clone(ids)
	slices.Sort(cells)
	cells = slices.Compact(cells)

	np := ds.NumPoints()
	pointMap := make([]int, np)
	for i := range pointMap {
		pointMap[i] = -1
	}
	var buf [8]int
	for _, c := range cells {
		_, pts := ds.Cell(c, buf[:0])
		for _, p := range pts {
			pointMap[p] = 0
		}
	}
	for p := range pointMap {
		if pointMap[p] == 0 {
			pointMap[p] = len(pointIDs)
			pointIDs = append(pointIDs, p)
		}
	}

	pd, cd := ds.PointAttributes(), ds.CellAttributes()
	m = &Mesh{
		Points:    make([]r3.Vec, len(pointIDs)),
		Types:     make([]CellType, 0, len(cells)),
		Offsets:   make([]int, 1, len(cells)+1),
		PointData: pd.NewLike(len(pointIDs)),
		CellData:  cd.NewLike(len(cells)),
	}
	for newID, oldID := range pointIDs {
		m.Points[newID] = ds.Point(oldID)
		CopyTuple(&m.PointData, newID, pd, oldID)
	}
	remapped := make([]int, 0, 8)
	for newID, c := range cells {
		t, pts := ds.Cell(c, buf[:0])
		remapped = remapped[:0]
		for _, p := range pts {
			remapped = append(remapped, pointMap[p])
		}
		m.AddCell(t, remapped...)
		CopyTuple(&m.CellData, newID, cd, c)
		if ds.Ghost(c) {
			if m.Ghosts == nil {
				m.Ghosts = make([]uint8, len(cells))
			}
			m.Ghosts[newID] = 1
		}
	}
	return m, pointIDs
}
