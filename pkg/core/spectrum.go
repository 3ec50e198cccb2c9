// Package core provides the peak, spectrum and chemistry models shared by the
// deconvolution, averagine and similarity engines.
package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Spectrum represents a single library or acquired spectrum with its metadata.
type Spectrum struct {
	// Required fields
	Sequence    string  // Peptide sequence (unmodified residues)
	Charge      int     // Precursor charge state
	PrecursorMZ float64 // Precursor m/z
	Peaks       []Peak  // Fragment peaks

	// Optional metadata
	RetentionTime   *float64 // RT or iRT
	CollisionEnergy *float64 // Normalized collision energy
	ScanIndex       int      // Zero-based scan index, when known

	// Internal tracking
	SourceFile   string
	SourceFormat string // msp, sptxt, peaklist
}

// Peak represents a single m/z, intensity pair with optional metadata.
type Peak struct {
	MZ         float64
	Intensity  float64
	Annotation string // Ion annotation (e.g., "y3", "b2^2")
}

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Is lets callers match validation failures against ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Validate checks that a spectrum meets all requirements for scoring.
func (s *Spectrum) Validate() error {
	var errs []string

	if s.Sequence == "" {
		errs = append(errs, "sequence is required")
	}
	if s.Charge <= 0 {
		errs = append(errs, "charge must be positive")
	}
	if len(s.Peaks) == 0 {
		errs = append(errs, "at least one peak is required")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.SliceStable(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// Name returns the spectrum name in format "Sequence/Charge"
func (s *Spectrum) Name() string {
	return fmt.Sprintf("%s/%d", s.Sequence, s.Charge)
}

// MzSpectrum converts the peak list into the array representation used by the
// engines. Peaks are sorted first if needed.
func (s *Spectrum) MzSpectrum() (*MzSpectrum, error) {
	if !s.ArePeaksSorted() {
		s.SortPeaks()
	}
	mz := make([]float64, len(s.Peaks))
	intensity := make([]float64, len(s.Peaks))
	for i, p := range s.Peaks {
		mz[i] = p.MZ
		intensity[i] = p.Intensity
	}
	return NewMzSpectrum(mz, intensity, false)
}
