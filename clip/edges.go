package clip

import "strconv"

// edgeLocator maps a crossed edge to its edge point index. It is built once
// and read concurrently afterwards.
type edgeLocator struct {
	index map[[2]int]int
	// edges holds one entry per edge point in index order.
	edges []edge
}

// locateEdges numbers the distinct edges of the batches in order of first
// appearance.
func locateEdges(batches []*batch) *edgeLocator {
	n := 0
	for _, b := range batches {
		n += len(b.edges)
	}
	loc := &edgeLocator{index: make(map[[2]int]int, n/2)}
	for _, b := range batches {
		for _, e := range b.edges {
			key := [2]int{e.a, e.b}
			if _, ok := loc.index[key]; !ok {
				loc.index[key] = len(loc.edges)
				loc.edges = append(loc.edges, e)
			}
		}
		b.edges = nil
	}
	return loc
}

func (loc *edgeLocator) lookup(p, q int) int {
	if p > q {
		p, q = q, p
	}
	id, ok := loc.index[[2]int{p, q}]
	if !ok {
		panic("bug: edge " + strconv.Itoa(p) + "-" + strconv.Itoa(q) + " was not evaluated")
	}
	return id
}
