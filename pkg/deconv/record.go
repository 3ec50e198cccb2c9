package deconv

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// Routine output record layout, little-endian, version 1.
const (
	RecordVersion = 1

	MaxIsotopes               = 64
	MaxMonoisotopicCandidates = 16

	offCharge            = 0
	offRealIsotopeLength = 4
	offIsotopeMz         = 8
	offMonoisotopics     = offIsotopeMz + 4*MaxIsotopes                  // 264
	offMonoisotopic      = offMonoisotopics + 4*MaxMonoisotopicCandidates // 328
	offPeakIntensity     = offMonoisotopic + 4                            // 332
	offScore             = offPeakIntensity + 4                           // 336

	RecordSize = offScore + 4 // 340

	SettingsSize = 24
)

// Record is one cluster produced by a clustering routine. The charge is
// unsigned; polarity is applied by the caller.
type Record struct {
	Charge int32
	// Isotope positions, at most MaxIsotopes.
	IsotopeMz []float32
	// Alternative monoisotopic masses. Unused slots are zero.
	MonoisotopicCandidates [MaxMonoisotopicCandidates]float32
	MonoisotopicMass       float32
	PeakIntensity          float32
	Score                  float32
}

// MarshalTo encodes r into the first RecordSize bytes of b.
func (r *Record) MarshalTo(b []byte) error {
	if len(b) < RecordSize {
		return fmt.Errorf("record buffer too small: %d < %d", len(b), RecordSize)
	}
	if len(r.IsotopeMz) > MaxIsotopes {
		return fmt.Errorf("record has %d isotopes, max %d", len(r.IsotopeMz), MaxIsotopes)
	}
	le := binary.LittleEndian
	clear(b[:RecordSize])
	le.PutUint32(b[offCharge:], uint32(r.Charge))
	le.PutUint32(b[offRealIsotopeLength:], uint32(len(r.IsotopeMz)))
	for i, mz := range r.IsotopeMz {
		le.PutUint32(b[offIsotopeMz+4*i:], math.Float32bits(mz))
	}
	for i, m := range r.MonoisotopicCandidates {
		le.PutUint32(b[offMonoisotopics+4*i:], math.Float32bits(m))
	}
	le.PutUint32(b[offMonoisotopic:], math.Float32bits(r.MonoisotopicMass))
	le.PutUint32(b[offPeakIntensity:], math.Float32bits(r.PeakIntensity))
	le.PutUint32(b[offScore:], math.Float32bits(r.Score))
	return nil
}

// DecodeRecord reads one record from the first RecordSize bytes of b.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) < RecordSize {
		return Record{}, fmt.Errorf("short record: %d bytes", len(b))
	}
	le := binary.LittleEndian
	n := int32(le.Uint32(b[offRealIsotopeLength:]))
	if n < 0 || n > MaxIsotopes {
		return Record{}, fmt.Errorf("record isotope length %d out of range", n)
	}
	r := Record{
		Charge:           int32(le.Uint32(b[offCharge:])),
		IsotopeMz:        make([]float32, n),
		MonoisotopicMass: math.Float32frombits(le.Uint32(b[offMonoisotopic:])),
		PeakIntensity:    math.Float32frombits(le.Uint32(b[offPeakIntensity:])),
		Score:            math.Float32frombits(le.Uint32(b[offScore:])),
	}
	for i := range r.IsotopeMz {
		r.IsotopeMz[i] = math.Float32frombits(le.Uint32(b[offIsotopeMz+4*i:]))
	}
	for i := range r.MonoisotopicCandidates {
		r.MonoisotopicCandidates[i] = math.Float32frombits(le.Uint32(b[offMonoisotopics+4*i:]))
	}
	return r, nil
}

// Settings is the fixed settings block passed to a routine.
type Settings struct {
	MinCharge       int32
	MaxCharge       int32
	Polarity        int32
	TolerancePpm    float32
	PhaseResolution int32
}

func (s Settings) MarshalBinary() ([]byte, error) {
	b := make([]byte, SettingsSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:], RecordVersion)
	le.PutUint32(b[4:], uint32(s.MinCharge))
	le.PutUint32(b[8:], uint32(s.MaxCharge))
	le.PutUint32(b[12:], uint32(s.Polarity))
	le.PutUint32(b[16:], math.Float32bits(s.TolerancePpm))
	le.PutUint32(b[20:], uint32(s.PhaseResolution))
	return b, nil
}

func (s *Settings) UnmarshalBinary(b []byte) error {
	if len(b) < SettingsSize {
		return fmt.Errorf("short settings block: %d bytes", len(b))
	}
	le := binary.LittleEndian
	if v := le.Uint32(b[0:]); v != RecordVersion {
		return fmt.Errorf("unsupported settings version %d", v)
	}
	s.MinCharge = int32(le.Uint32(b[4:]))
	s.MaxCharge = int32(le.Uint32(b[8:]))
	s.Polarity = int32(le.Uint32(b[12:]))
	s.TolerancePpm = math.Float32frombits(le.Uint32(b[16:]))
	s.PhaseResolution = int32(le.Uint32(b[20:]))
	return nil
}

var recordPool = sync.Pool{
	New: func() any { return new([]byte) },
}

// acquireRecords returns a zeroed buffer for n records and a release func
// that must be called once the buffer is no longer referenced.
func acquireRecords(n int) ([]byte, func()) {
	bp := recordPool.Get().(*[]byte)
	size := n * RecordSize
	if cap(*bp) < size {
		*bp = make([]byte, size)
	}
	buf := (*bp)[:size]
	clear(buf)
	return buf, func() {
		*bp = buf[:0]
		recordPool.Put(bp)
	}
}
