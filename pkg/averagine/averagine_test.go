package averagine

import (
	"errors"
	"math"
	"testing"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"github.com/google/go-cmp/cmp"
)

func TestGlobalPeptide(t *testing.T) {
	g, err := NewGlobal([]string{"PEPTIDE"})
	if err != nil {
		t.Fatal(err)
	}
	f := g.Formula()
	if got := f.String(); got != "C34H53N7O15" {
		t.Errorf("Formula() = %s, want C34H53N7O15", got)
	}
	if f.AtomCount() != 109 {
		t.Errorf("AtomCount() = %d, want 109", f.AtomCount())
	}

	// reproducible across constructions
	again, _ := NewGlobal([]string{"PEPTIDE"})
	if diff := cmp.Diff(f, again.Formula()); diff != "" {
		t.Errorf("formula not reproducible (-first +second):\n%s", diff)
	}
}

func TestGlobalSkipsNonStandardSequences(t *testing.T) {
	g, err := NewGlobal([]string{"PEPTIDE", "PEPXIDE", "BAAA", "", "AAA"})
	if err != nil {
		t.Fatal(err)
	}
	if g.SequencesUsed() != 2 {
		t.Errorf("SequencesUsed() = %d, want 2", g.SequencesUsed())
	}
	want, _ := core.PeptideFormula("PEPTIDE")
	aaa, _ := core.PeptideFormula("AAA")
	want.Add(aaa)
	if diff := cmp.Diff(want, g.Formula()); diff != "" {
		t.Errorf("Formula() mismatch (-want +got):\n%s", diff)
	}
}

func TestGlobalRejectsUnknownResidue(t *testing.T) {
	if _, err := NewGlobal([]string{"PEPZIDE"}); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGlobalFormulaIsACopy(t *testing.T) {
	g, _ := NewGlobal([]string{"AAA"})
	f := g.Formula()
	f["C"] = 1000
	if g.Formula()["C"] != 9 {
		t.Error("Formula() exposed internal state")
	}
}

func TestSequenceSpecificStripsResidues(t *testing.T) {
	s, err := NewSequenceSpecific([]string{"PEPXTIDE", "UBAA", "XXX"})
	if err != nil {
		t.Fatal(err)
	}
	// PEPTIDE (7) + AA (2); XXX contributes nothing
	if s.TotalResidues() != 9 {
		t.Errorf("TotalResidues() = %d, want 9", s.TotalResidues())
	}
	avg := s.AverageResidue()
	// C: 34 + 6 = 40 over 9 residues
	if math.Abs(avg["C"]-40.0/9.0) > 1e-12 {
		t.Errorf("average C = %f, want %f", avg["C"], 40.0/9.0)
	}
}

func TestSequenceSpecificAverageTimesResiduesEqualsTotal(t *testing.T) {
	sets := [][]string{
		{"PEPTIDE"},
		{"ACDEFGHIKLMNPQRSTVWY", "MKWVTFISLLLLFSSAYS", "GG"},
		{"XXXPEPTIDEBBB", "UUCU"},
	}
	for _, seqs := range sets {
		s, err := NewSequenceSpecific(seqs)
		if err != nil {
			t.Fatalf("%v: %v", seqs, err)
		}
		total := s.Formula()
		for sym, avg := range s.AverageResidue() {
			got := avg * float64(s.TotalResidues())
			if math.Abs(got-float64(total[sym])) > 1e-9 {
				t.Errorf("%v: %s average*residues = %f, total = %d", seqs, sym, got, total[sym])
			}
		}
	}
}

func TestSequenceSpecificZeroResidues(t *testing.T) {
	for _, seqs := range [][]string{nil, {}, {"XBU", ""}} {
		_, err := NewSequenceSpecific(seqs)
		var invalid *core.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Errorf("%v: expected InvalidInputError, got %v", seqs, err)
		}
	}
}

func TestSequenceSpecificResidueMass(t *testing.T) {
	s, err := NewSequenceSpecific([]string{"GGGGGGGGGG"})
	if err != nil {
		t.Fatal(err)
	}
	mass, err := s.AverageResidueMass()
	if err != nil {
		t.Fatal(err)
	}
	// ten glycines (57.02146) plus one water shared over ten residues
	if math.Abs(mass-(57.02146+1.80106)) > 1e-3 {
		t.Errorf("AverageResidueMass() = %f", mass)
	}
}
