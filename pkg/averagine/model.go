package averagine

import (
	"math"
	"sync"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
)

const (
	DefaultMaxIsotopes    = 64
	DefaultMinProbability = 1e-4
)

// Senko's averagine residue (C4.9384 H7.7583 N1.3577 O1.4773 S0.0417).
var senko = map[string]float64{
	"C": 4.9384,
	"H": 7.7583,
	"N": 1.3577,
	"O": 1.4773,
	"S": 0.0417,
}

// Model scales an average residue to arbitrary masses and predicts their
// isotope distributions. Distributions are cached per nominal mass, so a
// Model is safe for concurrent use.
type Model struct {
	residue        map[string]float64
	residueMass    float64
	maxIsotopes    int
	minProbability float64
	cache          sync.Map // int -> Distribution
}

// DefaultModel returns the classic Senko averagine model.
func DefaultModel() *Model {
	m, err := NewModel(senko)
	if err != nil {
		panic(err)
	}
	return m
}

// NewModel builds a model from an element -> count-per-residue map.
func NewModel(residue map[string]float64) (*Model, error) {
	mass, err := residueMass(residue)
	if err != nil {
		return nil, err
	}
	if mass <= 0 {
		return nil, core.NewInvalidInput("averagine", "average residue has no mass")
	}
	r := make(map[string]float64, len(residue))
	for sym, n := range residue {
		r[sym] = n
	}
	return &Model{
		residue:        r,
		residueMass:    mass,
		maxIsotopes:    DefaultMaxIsotopes,
		minProbability: DefaultMinProbability,
	}, nil
}

// ModelFrom builds a model from the average residue of a sequence population.
func ModelFrom(s *SequenceSpecific) (*Model, error) {
	return NewModel(s.average)
}

// WithLimits returns a copy of the model using different distribution limits.
func (m *Model) WithLimits(maxIsotopes int, minProbability float64) *Model {
	return &Model{
		residue:        m.residue,
		residueMass:    m.residueMass,
		maxIsotopes:    maxIsotopes,
		minProbability: minProbability,
	}
}

// ResidueMass is the monoisotopic mass of the average residue.
func (m *Model) ResidueMass() float64 { return m.residueMass }

// FormulaForMass scales the average residue to approximately mass, rounding
// every element and correcting the remainder with hydrogen.
func (m *Model) FormulaForMass(mass float64) core.ChemicalFormula {
	n := mass / m.residueMass
	f := core.ChemicalFormula{}
	for sym, count := range m.residue {
		if c := int(math.Round(count * n)); c > 0 {
			f[sym] = c
		}
	}
	// every element in the table is known, so the error is nil
	fm, _ := f.MonoisotopicMass()
	f["H"] += int(math.Round((mass - fm) / core.MassH))
	if f["H"] < 0 {
		f["H"] = 0
	}
	return f
}

// DistributionForMass predicts the isotope distribution of a species of the
// given monoisotopic mass. Only relative masses (Offsets) and intensities are
// meaningful; absolute masses belong to the nearest averagine formula.
func (m *Model) DistributionForMass(mass float64) (Distribution, error) {
	if mass <= 0 || math.IsNaN(mass) || math.IsInf(mass, 0) {
		return Distribution{}, core.NewInvalidInput("mass", "must be a positive number, got %g", mass)
	}
	key := int(math.Round(mass))
	if d, ok := m.cache.Load(key); ok {
		return d.(Distribution), nil
	}
	d, err := Distribute(m.FormulaForMass(float64(key)), m.maxIsotopes, m.minProbability)
	if err != nil {
		return Distribution{}, err
	}
	m.cache.Store(key, d)
	return d, nil
}
