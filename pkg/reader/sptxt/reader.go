// Package sptxt provides streaming readers for SPTXT (SpectraST) format spectral libraries
package sptxt

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
)

const maxLineSize = 1 << 20

// Reader provides streaming access to SPTXT format files
type Reader struct {
	scanner     *bufio.Scanner
	lineNum     int
	index       int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new SPTXT reader
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// ReadAll reads every spectrum from r.
func ReadAll(r io.Reader) ([]*core.Spectrum, error) {
	reader := NewReader(r)
	var spectra []*core.Spectrum
	for reader.Next() {
		spectra = append(spectra, reader.Spectrum())
	}
	return spectra, reader.Err()
}

// Next advances to the next spectrum. Returns false when no more spectra or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil

	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	spec.ScanIndex = r.index
	r.index++
	r.currentSpec = spec
	return true
}

// Spectrum returns the current spectrum
func (r *Reader) Spectrum() *core.Spectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readSpectrum reads a single spectrum entry from the SPTXT file
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	spec := &core.Spectrum{
		SourceFormat: "sptxt",
		Peaks:        []core.Peak{},
	}

	var numPeaks int
	inPeaks := false
	peaksRead := 0

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "###") {
			continue
		}

		if !inPeaks {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch key {
			case "Name":
				if err := parseName(spec, value); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case "PrecursorMZ":
				if mz, err := strconv.ParseFloat(value, 64); err == nil {
					spec.PrecursorMZ = mz
				}
			case "Comment":
				parseComment(spec, value)
			case "NumPeaks":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("line %d: invalid num peaks %q", r.lineNum, value)
				}
				numPeaks = n
				inPeaks = true
				if numPeaks == 0 {
					return spec, nil
				}
			}
			continue
		}

		peak, err := parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
		peaksRead++

		if peaksRead >= numPeaks {
			return spec, nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if inPeaks {
		return nil, fmt.Errorf("line %d: %s ends after %d of %d peaks", r.lineNum, spec.Name(), peaksRead, numPeaks)
	}
	if spec.Sequence != "" {
		return spec, nil
	}

	return nil, io.EOF
}

// parseName extracts sequence and charge from Name field
// Format: "n[305]AAAAQDEITGDGTTTVVC[160]LVGELLR/3"
func parseName(spec *core.Spectrum, name string) error {
	rawSeq, chargeStr, ok := strings.Cut(name, "/")
	if !ok {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}
	spec.Charge = charge

	sequence, err := stripInlineModifications(rawSeq)
	if err != nil {
		return fmt.Errorf("failed to parse modifications from sequence: %w", err)
	}
	spec.Sequence = sequence

	return nil
}

// Pattern to match modifications: optional letter followed by [mass]
var inlineModification = regexp.MustCompile(`([a-zA-Z]?)\[(\d+(?:\.\d+)?)\]`)

// stripInlineModifications reduces n[305]SEQUENCE[160] to the bare residues.
// Terminal markers (n, c) are dropped along with their masses.
func stripInlineModifications(rawSeq string) (string, error) {
	var sequence strings.Builder
	lastIdx := 0
	for _, match := range inlineModification.FindAllStringSubmatchIndex(rawSeq, -1) {
		sequence.WriteString(rawSeq[lastIdx:match[0]])

		aa := rawSeq[match[2]:match[3]]
		if _, err := strconv.ParseFloat(rawSeq[match[4]:match[5]], 64); err != nil {
			return "", fmt.Errorf("invalid modification mass '%s': %w", rawSeq[match[4]:match[5]], err)
		}
		if aa != "" && aa != "n" && aa != "c" {
			sequence.WriteString(aa)
		}
		lastIdx = match[1]
	}
	sequence.WriteString(rawSeq[lastIdx:])

	if strings.ContainsAny(sequence.String(), "[]") {
		return "", fmt.Errorf("unbalanced modification in %q", rawSeq)
	}
	return sequence.String(), nil
}

// parseComment extracts metadata from Comment field
func parseComment(spec *core.Spectrum, comment string) {
	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "Parent":
			if mz, err := strconv.ParseFloat(value, 64); err == nil {
				spec.PrecursorMZ = mz
			}
		case "CollisionEnergy":
			if ce, err := strconv.ParseFloat(value, 64); err == nil {
				spec.CollisionEnergy = &ce
			}
		case "RetentionTime":
			// May be comma-separated list, take first value
			first, _, _ := strings.Cut(value, ",")
			if rt, err := strconv.ParseFloat(first, 64); err == nil {
				spec.RetentionTime = &rt
			}
		}
	}
}

// parsePeak parses a single peak line
// Format: "mz\tintensity\tannotation\t..."
func parsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	peak := core.Peak{
		MZ:        mz,
		Intensity: intensity,
	}

	// SpectraST lists alternatives separated by commas; keep the first,
	// without its mass error ("y3/0.5ppm")
	if len(fields) >= 3 {
		annotation, _, _ := strings.Cut(fields[2], ",")
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
		peak.Annotation = annotation
	}

	return peak, nil
}
