// Package peaklist reads centroided spectra written as two-column text.
package peaklist

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"github.com/ChrisMcGann/IsoDecon/pkg/reader"
)

// Read parses "mz intensity" lines separated by whitespace, commas or tabs.
// Lines starting with '#' are comments, and a non-numeric first line is taken
// as a header. Peaks are returned sorted by m/z.
func Read(r io.Reader) (*core.MzSpectrum, error) {
	scanner := bufio.NewScanner(r)
	var mz, intensity []float64
	lineNum := 0
	seenData := false
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == ';'
		})
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected m/z and intensity", lineNum)
		}
		x, errX := strconv.ParseFloat(fields[0], 64)
		y, errY := strconv.ParseFloat(fields[1], 64)
		if errX != nil || errY != nil {
			if !seenData {
				seenData = true
				continue
			}
			return nil, fmt.Errorf("line %d: invalid peak %q", lineNum, line)
		}
		seenData = true
		mz = append(mz, x)
		intensity = append(intensity, y)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	idx := make([]int, len(mz))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return mz[idx[a]] < mz[idx[b]] })
	xs := make([]float64, len(mz))
	ys := make([]float64, len(mz))
	for i, j := range idx {
		xs[i], ys[i] = mz[j], intensity[j]
	}
	return core.NewMzSpectrum(xs, ys, false)
}

// ReadFile reads a peak list from path ("-" for stdin, gzip detected).
func ReadFile(path string) (*core.MzSpectrum, error) {
	rc, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	s, err := Read(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
