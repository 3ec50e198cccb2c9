package similarity

import "github.com/ChrisMcGann/IsoDecon/pkg/core"

// WithinTolerance reports whether mz1 and mz2 differ by less than ppm
// relative to the larger value.
func WithinTolerance(mz1, mz2, ppm float64) bool {
	return core.WithinPpm(mz1, mz2, ppm)
}

// ContainsWithinTolerance reports whether any element of sorted lies within
// ppm of value. sorted must be ascending; this is not checked.
func ContainsWithinTolerance(sorted []float64, value, ppm float64) bool {
	_, ok := FindWithinTolerance(sorted, value, ppm)
	return ok
}

// FindWithinTolerance returns an element of sorted within ppm of value by
// halving the search window around the midpoint. sorted must be ascending;
// this is not checked.
func FindWithinTolerance(sorted []float64, value, ppm float64) (float64, bool) {
	if len(sorted) == 0 {
		return 0, false
	}
	mid := len(sorted) / 2
	if WithinTolerance(sorted[mid], value, ppm) {
		return sorted[mid], true
	}
	if len(sorted) == 1 {
		return 0, false
	}
	if value > sorted[mid] {
		return FindWithinTolerance(sorted[mid+1:], value, ppm)
	}
	return FindWithinTolerance(sorted[:mid], value, ppm)
}
