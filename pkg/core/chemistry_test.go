package core

import (
	"errors"
	"math"
	"testing"
)

func TestPeptideFormula(t *testing.T) {
	tests := []struct {
		name     string
		sequence string
		want     string
		atoms    int
		wantErr  bool
	}{
		{"water only", "", "H2O", 3, false},
		{"tripeptide", "AAA", "C9H17N3O4", 33, false},
		{"PEPTIDE", "PEPTIDE", "C34H53N7O15", 109, false},
		{"selenocysteine", "U", "C3H7NO2Se", 14, false},
		{"unknown residue", "PEPXIDE", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeptideFormula(tt.sequence)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PeptideFormula() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("PeptideFormula() = %s, want %s", got, tt.want)
			}
			if got.AtomCount() != tt.atoms {
				t.Errorf("AtomCount() = %d, want %d", got.AtomCount(), tt.atoms)
			}
		})
	}
}

func TestCalculatePeptideMass(t *testing.T) {
	tests := []struct {
		name      string
		sequence  string
		charge    int
		wantMZ    float64
		tolerance float64
	}{
		{"simple peptide charge 1", "AAA", 1, 232.129, 0.01},
		{"simple peptide charge 2", "AAA", 2, 116.568, 0.01},
		{"PEPTIDE charge 1", "PEPTIDE", 1, 800.367, 0.01},
		{"PEPTIDE negative mode", "PEPTIDE", -1, 798.353, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculatePeptideMass(tt.sequence, tt.charge)
			if err != nil {
				t.Fatalf("CalculatePeptideMass() error = %v", err)
			}
			if math.Abs(got-tt.wantMZ) > tt.tolerance {
				t.Errorf("CalculatePeptideMass() = %.3f, want %.3f (within %.3f)", got, tt.wantMZ, tt.tolerance)
			}
		})
	}

	if _, err := CalculatePeptideMass("AAA", 0); err == nil {
		t.Error("expected error for zero charge")
	}
}

func TestCalculateNeutralMass(t *testing.T) {
	got, err := CalculateNeutralMass("PEPTIDE")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-799.35996) > 0.001 {
		t.Errorf("CalculateNeutralMass() = %.5f, want 799.35996", got)
	}
}

func TestMzMassRoundTrip(t *testing.T) {
	for _, z := range []int{1, 2, 5, -1, -3} {
		mz := ToMz(1500.75, z)
		if back := ToMass(mz, z); math.Abs(back-1500.75) > 1e-9 {
			t.Errorf("charge %d: ToMass(ToMz()) = %f", z, back)
		}
	}
}

func TestElementMasses(t *testing.T) {
	if got := Elements["Se"].MonoisotopicMass(); got != MassSe {
		t.Errorf("Se monoisotopic mass = %f, want principal isotope %f", got, MassSe)
	}
	if got := Elements["C"].AverageMass(); math.Abs(got-12.0107) > 0.001 {
		t.Errorf("C average mass = %f", got)
	}
	for sym, el := range Elements {
		sum := 0.0
		for _, iso := range el.Isotopes {
			sum += iso.Abundance
		}
		if math.Abs(sum-1) > 1e-3 {
			t.Errorf("%s abundances sum to %f", sym, sum)
		}
	}
}

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		name      string
		val       float64
		precision int
		want      float64
	}{
		{"round to 2 decimals", 3.14159, 2, 3.14},
		{"round to 4 decimals", 3.14159, 4, 3.1416},
		{"round to 0 decimals", 3.6, 0, 4.0},
		{"round negative", -3.14159, 2, -3.14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundFloat(tt.val, tt.precision)
			if got != tt.want {
				t.Errorf("RoundFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}
