// Package msp provides streaming readers for MSP (NIST / Prosit) format spectral libraries
package msp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
)

const maxLineSize = 1 << 20

// Reader provides streaming access to MSP format files
type Reader struct {
	scanner     *bufio.Scanner
	lineNum     int
	index       int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new MSP reader
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

// readSpectrum reads a single spectrum entry from the MSP file
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	spec := &core.Spectrum{
		SourceFormat: "msp",
		Peaks:        []core.Peak{},
	}

	var numPeaks int
	inPeaks := false
	peaksRead := 0

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip empty lines between entries
		if line == "" && spec.Sequence == "" {
			continue
		}

		if !inPeaks {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.ToLower(key) {
			case "name":
				if err := parseName(spec, value); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case "comment":
				parseComment(spec, value)
			case "precursormz":
				if mz, err := strconv.ParseFloat(value, 64); err == nil {
					spec.PrecursorMZ = mz
				}
			case "num peaks":
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
	// A header without a peak block is still returned
	if spec.Sequence != "" {
		return spec, nil
	}

	return nil, io.EOF
}

// parseName extracts sequence and charge from Name field (format: "SEQUENCE/CHARGE")
func parseName(spec *core.Spectrum, name string) error {
	seq, chargeStr, ok := strings.Cut(name, "/")
	if !ok {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}
	// Drop trailing modification or collision annotations ("2_1(0,C,CAM)_35eV")
	chargeStr, _, _ = strings.Cut(chargeStr, "_")

	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}
	spec.Sequence = seq
	spec.Charge = charge
	return nil
}

// parseComment extracts metadata from Comment field
func parseComment(spec *core.Spectrum, comment string) {
	// Comment format: key=value key=value...
	// Example: Parent=414.71 Collision_energy=35 iRT=61.01
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
		case "Collision_energy", "CollisionEnergy":
			if ce, err := strconv.ParseFloat(value, 64); err == nil {
				spec.CollisionEnergy = &ce
			}
		case "iRT", "RetentionTime":
			if rt, err := strconv.ParseFloat(value, 64); err == nil {
				spec.RetentionTime = &rt
			}
		}
	}
}

// parsePeak parses a single peak line (format: "mz\tintensity\t\"annotation\"")
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

	// Parse annotation if present (third field, may be quoted)
	if len(fields) >= 3 {
		annotation := strings.Trim(fields[2], "\"")
		// Keep ion type and number, drop the mass error
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
		peak.Annotation = annotation
	}

	return peak, nil
}
