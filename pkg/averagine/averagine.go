// Package averagine derives average elemental compositions from sequence
// populations and predicts isotope distributions from them.
//
// Two models are provided. Global sums the formula of every usable sequence
// and keeps the raw total. SequenceSpecific divides that total by the number
// of residues to obtain the composition of one average residue. The two
// variants filter non-standard residues differently: Global skips any
// sequence containing X or B, SequenceSpecific strips X, B and U and keeps the
// rest of the sequence.
package averagine

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"gonum.org/v1/gonum/floats"
)

// Residue codes that exclude a whole sequence from the global model.
const globalExcluded = "XB"

// stripped is applied to every sequence of the sequence-specific model.
var stripped = strings.NewReplacer("X", "", "B", "", "U", "")

// Global is the summed formula of a sequence population.
type Global struct {
	formula core.ChemicalFormula
	used    int
}

// NewGlobal sums the peptide formula of every sequence without X or B.
// Empty sequences contribute nothing.
func NewGlobal(sequences []string) (*Global, error) {
	g := &Global{formula: core.ChemicalFormula{}}
	for i, seq := range sequences {
		if seq == "" || strings.ContainsAny(seq, globalExcluded) {
			continue
		}
		f, err := core.PeptideFormula(seq)
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		g.formula.Add(f)
		g.used++
	}
	return g, nil
}

// Formula returns a copy of the summed formula (not normalized by length).
func (g *Global) Formula() core.ChemicalFormula { return g.formula.Clone() }

// SequencesUsed is the number of sequences that contributed.
func (g *Global) SequencesUsed() int { return g.used }

// SequenceSpecific holds the composition of one average residue.
type SequenceSpecific struct {
	formula       core.ChemicalFormula
	totalResidues int
	average       map[string]float64
}

// NewSequenceSpecific strips X, B and U from each sequence, sums the remaining
// formulas and divides every element count by the total residue count.
// It fails with an InvalidInputError when no residue is left.
func NewSequenceSpecific(sequences []string) (*SequenceSpecific, error) {
	s := &SequenceSpecific{formula: core.ChemicalFormula{}}
	for i, seq := range sequences {
		seq = stripped.Replace(seq)
		if seq == "" {
			continue
		}
		f, err := core.PeptideFormula(seq)
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		s.formula.Add(f)
		s.totalResidues += len(seq)
	}
	if s.totalResidues == 0 {
		return nil, core.NewInvalidInput("sequences", "no valid residues to average over")
	}

	s.average = make(map[string]float64, len(s.formula))
	for sym, n := range s.formula {
		s.average[sym] = float64(n) / float64(s.totalResidues)
	}
	return s, nil
}

// AverageResidue returns element -> average atom count per residue.
func (s *SequenceSpecific) AverageResidue() map[string]float64 {
	out := make(map[string]float64, len(s.average))
	for sym, v := range s.average {
		out[sym] = v
	}
	return out
}

// Formula returns a copy of the accumulated formula.
func (s *SequenceSpecific) Formula() core.ChemicalFormula { return s.formula.Clone() }

// TotalResidues is the number of residues left after stripping.
func (s *SequenceSpecific) TotalResidues() int { return s.totalResidues }

// AverageResidueMass returns the monoisotopic mass of the average residue.
func (s *SequenceSpecific) AverageResidueMass() (float64, error) {
	return residueMass(s.average)
}

func residueMass(residue map[string]float64) (float64, error) {
	masses := make([]float64, 0, len(residue))
	for sym, n := range residue {
		el, ok := core.Elements[sym]
		if !ok {
			return 0, core.NewInvalidInput("averagine", "unknown element %q", sym)
		}
		masses = append(masses, n*el.MonoisotopicMass())
	}
	return floats.Sum(masses), nil
}
