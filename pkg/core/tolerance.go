package core

import (
	"fmt"
	"math"
)

// Tolerance describes a mass matching window around a target value.
type Tolerance interface {
	// Window returns the inclusive bounds of values accepted around target.
	Window(target float64) (lo, hi float64)
	// Within reports whether experimental matches theoretical.
	Within(experimental, theoretical float64) bool
}

// PpmTolerance is a relative tolerance in parts per million of the target.
type PpmTolerance float64

func (t PpmTolerance) Window(target float64) (float64, float64) {
	d := target * float64(t) / 1e6
	return target - d, target + d
}

func (t PpmTolerance) Within(experimental, theoretical float64) bool {
	return math.Abs((experimental-theoretical)/theoretical*1e6) <= float64(t)
}

func (t PpmTolerance) String() string {
	return fmt.Sprintf("±%.4f PPM", float64(t))
}

// WithinPpm reports whether mz1 and mz2 differ by less than ppm, relative to
// the larger of the two values.
func WithinPpm(mz1, mz2, ppm float64) bool {
	return math.Abs(mz1-mz2)/math.Max(mz1, mz2)*1e6 < ppm
}

// MzRange is a closed m/z interval.
type MzRange struct {
	Min float64
	Max float64
}

// Contains reports whether mz lies in [Min, Max].
func (r MzRange) Contains(mz float64) bool {
	return mz >= r.Min && mz <= r.Max
}

func (r MzRange) Width() float64 {
	return r.Max - r.Min
}

// Validate rejects NaN bounds and inverted ranges.
func (r MzRange) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return NewInvalidInput("MzRange", "bounds must be numbers")
	}
	if r.Min > r.Max {
		return NewInvalidInput("MzRange", "minimum %g exceeds maximum %g", r.Min, r.Max)
	}
	return nil
}

func (r MzRange) String() string {
	return fmt.Sprintf("[%.4f - %.4f]", r.Min, r.Max)
}

// FullRange accepts every m/z.
var FullRange = MzRange{Min: math.Inf(-1), Max: math.Inf(1)}
