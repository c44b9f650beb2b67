package clip

// plan lists the batches that produce output, with offsets assigned.
type plan struct {
	batches []*batch
	total   tally
}

// planBatches assigns every productive batch its output offsets by an
// exclusive prefix sum in batch order. Batches without output are dropped.
func planBatches(batches []batch) plan {
	var p plan
	for i := range batches {
		b := &batches[i]
		if b.cells == 0 {
			continue
		}
		b.offset = p.total
		p.total.add(b.tally)
		p.batches = append(p.batches, b)
	}
	return p
}
