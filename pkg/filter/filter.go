// Package filter provides peak filtering applied to library spectra before
// they are compared or deconvoluted.
package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
)

// Config holds filtering configuration
type Config struct {
	TopN              int      // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff   float64  // Keep only peaks above this % of base peak (0 = no cutoff)
	IonTypes          []string // Keep only specified ion types (nil = all)
	MaxFragmentCharge int      // Drop annotated fragments above this charge (0 = no limit)
	MinMZ             float64  // Drop peaks below this m/z (0 = no floor)
	MaxMZ             float64  // Drop peaks above this m/z (0 = no ceiling)
}

// Apply applies all configured filters to a spectrum
func (c *Config) Apply(spec *core.Spectrum) error {
	if c.TopN < 0 || c.IntensityCutoff < 0 || c.IntensityCutoff > 100 {
		return &core.ValidationError{Field: "filter", Message: fmt.Sprintf("invalid top-n %d or cutoff %g%%", c.TopN, c.IntensityCutoff)}
	}

	// Filter by ion type first
	if len(c.IonTypes) > 0 || c.MaxFragmentCharge > 0 {
		c.filterByIon(spec)
	}

	if c.MinMZ > 0 || c.MaxMZ > 0 {
		c.filterByRange(spec)
	}

	// Apply intensity filters
	if c.IntensityCutoff > 0 {
		c.filterByIntensity(spec)
	}

	// Apply top-N filter
	if c.TopN > 0 {
		c.filterTopN(spec)
	}

	// Ensure peaks are sorted after all filtering
	spec.SortPeaks()

	return nil
}

// filterByIon keeps only annotated peaks of the allowed types and charges
func (c *Config) filterByIon(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		info, err := parseIonAnnotation(peak.Annotation)
		if err != nil {
			continue
		}
		if len(c.IonTypes) > 0 && !containsType(c.IonTypes, info.ionType) {
			continue
		}
		if c.MaxFragmentCharge > 0 && info.charge > c.MaxFragmentCharge {
			continue
		}
		filtered = append(filtered, peak)
	}
	spec.Peaks = filtered
}

func containsType(ionTypes []string, ionType string) bool {
	for _, t := range ionTypes {
		if t == ionType {
			return true
		}
	}
	return false
}

func (c *Config) filterByRange(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if c.MinMZ > 0 && peak.MZ < c.MinMZ {
			continue
		}
		if c.MaxMZ > 0 && peak.MZ > c.MaxMZ {
			continue
		}
		filtered = append(filtered, peak)
	}
	spec.Peaks = filtered
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func (c *Config) filterByIntensity(spec *core.Spectrum) {
	if len(spec.Peaks) == 0 {
		return
	}

	// Find maximum intensity
	maxIntensity := 0.0
	for _, peak := range spec.Peaks {
		if peak.Intensity > maxIntensity {
			maxIntensity = peak.Intensity
		}
	}

	threshold := (c.IntensityCutoff / 100.0) * maxIntensity

	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}

	spec.Peaks = filtered
}

// filterTopN keeps only the N most intense peaks
func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}

	// Create a copy and sort by intensity descending
	peaks := make([]core.Peak, len(spec.Peaks))
	copy(peaks, spec.Peaks)

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Intensity > peaks[j].Intensity
	})

	spec.Peaks = peaks[:c.TopN]
}

// ionAnnotationInfo stores parsed ion annotation
type ionAnnotationInfo struct {
	ionType  string
	position int
	charge   int
}

// Pattern: (ion type)(number)[^(charge)], optionally followed by a loss or
// a "/error" suffix as written by SpectraST.
var ionAnnotation = regexp.MustCompile(`^([a-z])(\d+)(?:\^(\d+))?`)

// parseIonAnnotation parses annotations like "y3", "b2^2", "y10^3/0.01"
func parseIonAnnotation(annotation string) (*ionAnnotationInfo, error) {
	matches := ionAnnotation.FindStringSubmatch(annotation)
	if matches == nil {
		return nil, fmt.Errorf("invalid ion annotation format: %q", annotation)
	}

	info := &ionAnnotationInfo{
		ionType: matches[1],
		charge:  1, // default charge
	}

	var err error
	if info.position, err = strconv.Atoi(matches[2]); err != nil {
		return nil, fmt.Errorf("invalid position in annotation %s: %w", annotation, err)
	}
	if matches[3] != "" {
		if info.charge, err = strconv.Atoi(matches[3]); err != nil {
			return nil, fmt.Errorf("invalid charge in annotation %s: %w", annotation, err)
		}
	}

	return info, nil
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	var filtered []core.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
