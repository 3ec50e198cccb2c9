package msp

import (
	"strings"
	"testing"
)

const library = `Name: PEPTIDE/2
MW: 799.36
Comment: Parent=400.6872 Collision_energy=30 iRT=12.5
Num peaks: 3
175.119	1200	"y1/0.001"
400.687	300	"?"
703.314	5000	"y6/-0.002"

Name: ACDEFGHIK/3_0
Comment: Parent=345.16
Num peaks: 2
300.1	10
600.2	20
`

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(library))

	if !r.Next() {
		t.Fatalf("no first spectrum: %v", r.Err())
	}
	s := r.Spectrum()
	if s.Sequence != "PEPTIDE" || s.Charge != 2 {
		t.Errorf("name parsed as %s", s.Name())
	}
	if s.PrecursorMZ != 400.6872 {
		t.Errorf("PrecursorMZ = %v", s.PrecursorMZ)
	}
	if s.CollisionEnergy == nil || *s.CollisionEnergy != 30 {
		t.Errorf("CollisionEnergy = %v", s.CollisionEnergy)
	}
	if s.RetentionTime == nil || *s.RetentionTime != 12.5 {
		t.Errorf("RetentionTime = %v", s.RetentionTime)
	}
	if len(s.Peaks) != 3 {
		t.Fatalf("got %d peaks, want 3", len(s.Peaks))
	}
	if s.Peaks[0].Annotation != "y1" || s.Peaks[1].Annotation != "?" || s.Peaks[2].Intensity != 5000 {
		t.Errorf("peaks = %+v", s.Peaks)
	}
	if s.ScanIndex != 0 || s.SourceFormat != "msp" {
		t.Errorf("ScanIndex = %d, SourceFormat = %q", s.ScanIndex, s.SourceFormat)
	}

	if !r.Next() {
		t.Fatalf("no second spectrum: %v", r.Err())
	}
	s = r.Spectrum()
	if s.Sequence != "ACDEFGHIK" || s.Charge != 3 || len(s.Peaks) != 2 || s.ScanIndex != 1 {
		t.Errorf("second spectrum = %+v", s)
	}

	if r.Next() {
		t.Error("unexpected third spectrum")
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v", r.Err())
	}
}

func TestReaderErrors(t *testing.T) {
	tests := map[string]string{
		"bad name":      "Name: PEPTIDE\nNum peaks: 0\n",
		"bad charge":    "Name: PEPTIDE/x\n",
		"bad num peaks": "Name: PEPTIDE/2\nNum peaks: many\n",
		"bad peak":      "Name: PEPTIDE/2\nNum peaks: 1\n175.1\n",
		"truncated":     "Name: PEPTIDE/2\nNum peaks: 3\n175.1 10\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			spectra, err := ReadAll(strings.NewReader(input))
			if err == nil {
				t.Errorf("expected error, got %d spectra", len(spectra))
			}
		})
	}
}

func TestReadAllEmpty(t *testing.T) {
	spectra, err := ReadAll(strings.NewReader("\n\n"))
	if err != nil || len(spectra) != 0 {
		t.Errorf("ReadAll(empty) = %v, %v", spectra, err)
	}
}
