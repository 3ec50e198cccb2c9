package core

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// IndexedPeak is a peak tied to the scan it was observed in. It is immutable;
// identity is the scan index plus m/z, intensity does not take part.
type IndexedPeak struct {
	mz            float64
	intensity     float64
	scanIndex     int
	retentionTime float64
}

// NewIndexedPeak creates an IndexedPeak. The scan index must be zero or positive.
func NewIndexedPeak(mz, intensity float64, scanIndex int, retentionTime float64) (IndexedPeak, error) {
	if scanIndex < 0 {
		return IndexedPeak{}, NewInvalidInput("scanIndex", "must be >= 0, got %d", scanIndex)
	}
	return IndexedPeak{
		mz:            mz,
		intensity:     intensity,
		scanIndex:     scanIndex,
		retentionTime: retentionTime,
	}, nil
}

func (p IndexedPeak) Mz() float64            { return p.mz }
func (p IndexedPeak) M() float64             { return p.mz }
func (p IndexedPeak) Intensity() float64     { return p.intensity }
func (p IndexedPeak) ScanIndex() int         { return p.scanIndex }
func (p IndexedPeak) RetentionTime() float64 { return p.retentionTime }

// Equal reports whether both peaks come from the same scan at the same m/z (within 1e-9).
func (p IndexedPeak) Equal(o IndexedPeak) bool {
	return p.scanIndex == o.scanIndex && math.Abs(p.mz-o.mz) < 1e-9
}

// Hash combines the exact m/z bits and scan index. It is not consistent with
// Equal: peaks whose m/z differ by less than 1e-9 are Equal but may hash differently.
func (p IndexedPeak) Hash() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(p.mz))
	binary.LittleEndian.PutUint64(buf[8:], uint64(p.scanIndex))
	h := fnv.New64a()
	h.Write(buf[:])
	return h.Sum64()
}

func (p IndexedPeak) String() string {
	return fmt.Sprintf("%.3f; %d", p.mz, p.scanIndex)
}
