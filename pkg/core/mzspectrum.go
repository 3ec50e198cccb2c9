package core

import (
	"math"
	"sort"
)

// MzSpectrum is an immutable pair of parallel m/z and intensity arrays, m/z ascending.
type MzSpectrum struct {
	xs []float64
	ys []float64
}

// NewMzSpectrum builds a spectrum from parallel arrays. When copyArrays is false
// the caller hands ownership of the slices to the spectrum.
func NewMzSpectrum(mz, intensity []float64, copyArrays bool) (*MzSpectrum, error) {
	if len(mz) != len(intensity) {
		return nil, NewInvalidInput("MzSpectrum", "m/z array has %d values, intensity array has %d", len(mz), len(intensity))
	}
	for i := 1; i < len(mz); i++ {
		if mz[i] < mz[i-1] {
			return nil, NewInvalidInput("MzSpectrum", "m/z values must be ascending (index %d)", i)
		}
	}
	if copyArrays {
		mz = append([]float64(nil), mz...)
		intensity = append([]float64(nil), intensity...)
	}
	return &MzSpectrum{xs: mz, ys: intensity}, nil
}

// XArray returns the m/z values. The slice must not be modified.
func (s *MzSpectrum) XArray() []float64 { return s.xs }

// YArray returns the intensities. The slice must not be modified.
func (s *MzSpectrum) YArray() []float64 { return s.ys }

func (s *MzSpectrum) Size() int { return len(s.xs) }

func (s *MzSpectrum) IsEmpty() bool { return len(s.xs) == 0 }

// Range returns the m/z span of the spectrum; the zero range when empty.
func (s *MzSpectrum) Range() MzRange {
	if len(s.xs) == 0 {
		return MzRange{}
	}
	return MzRange{Min: s.xs[0], Max: s.xs[len(s.xs)-1]}
}

func (s *MzSpectrum) SumOfIntensities() float64 {
	sum := 0.0
	for _, y := range s.ys {
		sum += y
	}
	return sum
}

func (s *MzSpectrum) MaxIntensity() float64 {
	max := math.Inf(-1)
	for _, y := range s.ys {
		if y > max {
			max = y
		}
	}
	return max
}

// ClosestPeakIndex returns the index of the peak nearest to targetMz. Ties go
// to the lower index. Returns -1 for an empty spectrum.
func (s *MzSpectrum) ClosestPeakIndex(targetMz float64) int {
	n := len(s.xs)
	if n == 0 {
		return -1
	}
	i := sort.SearchFloat64s(s.xs, targetMz)
	if i == 0 {
		return 0
	}
	if i == n {
		return n - 1
	}
	if targetMz-s.xs[i-1] <= s.xs[i]-targetMz {
		return i - 1
	}
	return i
}

// PeakIndicesWithinTolerance returns the indices of every peak inside the
// tolerance window around targetMz, in ascending m/z order.
func (s *MzSpectrum) PeakIndicesWithinTolerance(targetMz float64, tol Tolerance) []int {
	lo, hi := tol.Window(targetMz)
	var indices []int
	for i := sort.SearchFloat64s(s.xs, lo); i < len(s.xs) && s.xs[i] <= hi; i++ {
		indices = append(indices, i)
	}
	return indices
}

// Extract locates the peaks inside rng by nearest-index lookup on both bounds,
// trimmed so that only peaks within [rng.Min, rng.Max] remain. last is
// exclusive; ok is false when no peak lies in the range.
func (s *MzSpectrum) Extract(rng MzRange) (first, last int, ok bool) {
	if len(s.xs) == 0 {
		return 0, 0, false
	}
	first = s.ClosestPeakIndex(rng.Min)
	last = s.ClosestPeakIndex(rng.Max)
	for first < len(s.xs) && s.xs[first] < rng.Min {
		first++
	}
	for last >= 0 && s.xs[last] > rng.Max {
		last--
	}
	if first > last {
		return 0, 0, false
	}
	return first, last + 1, true
}

// IndexedPeaks converts the spectrum into indexed peaks for one scan.
func (s *MzSpectrum) IndexedPeaks(scanIndex int, retentionTime float64) ([]IndexedPeak, error) {
	peaks := make([]IndexedPeak, 0, len(s.xs))
	for i := range s.xs {
		p, err := NewIndexedPeak(s.xs[i], s.ys[i], scanIndex, retentionTime)
		if err != nil {
			return nil, err
		}
		peaks = append(peaks, p)
	}
	return peaks, nil
}
