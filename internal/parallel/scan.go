package parallel

import "golang.org/x/exp/constraints"

// ExclusiveScan replaces every element of xs with the sum of the elements
// preceding it and returns the total.
func ExclusiveScan[T constraints.Integer](xs []T) (total T) {
	for i, x := range xs {
		xs[i] = total
		total += x
	}
	return total
}
