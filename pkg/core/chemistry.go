// Package core provides chemistry calculations for peptide formulas, masses and isotopes
package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Atomic masses (monoisotopic)
const (
	MassH  = 1.00782503207
	MassC  = 12.0000000000
	MassN  = 14.0030740048
	MassO  = 15.99491461956
	MassS  = 31.97207100
	MassP  = 30.97376163
	MassSe = 79.9165213

	// Proton mass for charge calculations
	ProtonMass = 1.007276466879

	// Mass difference between 13C and 12C, the spacing of isotope peaks
	C13MinusC12 = 1.0033548378
)

// Isotope is one stable isotope of an element.
type Isotope struct {
	MassNumber int
	Mass       float64
	Abundance  float64
}

// Element holds the stable isotopes of an element, lightest first.
type Element struct {
	Symbol   string
	Isotopes []Isotope
}

// MonoisotopicMass returns the mass of the most abundant isotope.
func (e *Element) MonoisotopicMass() float64 {
	return e.Isotopes[e.principal()].Mass
}

// AverageMass returns the abundance weighted mass.
func (e *Element) AverageMass() float64 {
	sum := 0.0
	for _, iso := range e.Isotopes {
		sum += iso.Mass * iso.Abundance
	}
	return sum
}

func (e *Element) principal() int {
	best := 0
	for i, iso := range e.Isotopes {
		if iso.Abundance > e.Isotopes[best].Abundance {
			best = i
		}
	}
	return best
}

// Elements maps element symbols to their isotope tables (IUPAC representative abundances).
var Elements = map[string]*Element{
	"H": {Symbol: "H", Isotopes: []Isotope{
		{1, MassH, 0.999885},
		{2, 2.0141017778, 0.000115},
	}},
	"C": {Symbol: "C", Isotopes: []Isotope{
		{12, MassC, 0.9893},
		{13, MassC + C13MinusC12, 0.0107},
	}},
	"N": {Symbol: "N", Isotopes: []Isotope{
		{14, MassN, 0.99636},
		{15, 15.0001088982, 0.00364},
	}},
	"O": {Symbol: "O", Isotopes: []Isotope{
		{16, MassO, 0.99757},
		{17, 16.99913170, 0.00038},
		{18, 17.9991610, 0.00205},
	}},
	"S": {Symbol: "S", Isotopes: []Isotope{
		{32, MassS, 0.9499},
		{33, 32.97145876, 0.0075},
		{34, 33.96786690, 0.0425},
		{36, 35.96708076, 0.0001},
	}},
	"P": {Symbol: "P", Isotopes: []Isotope{
		{31, MassP, 1.0},
	}},
	"Se": {Symbol: "Se", Isotopes: []Isotope{
		{74, 73.9224764, 0.0089},
		{76, 75.9192136, 0.0937},
		{77, 76.9199140, 0.0763},
		{78, 77.9173091, 0.2377},
		{80, MassSe, 0.4961},
		{82, 81.9166994, 0.0873},
	}},
}

// ChemicalFormula maps element symbols to atom counts.
type ChemicalFormula map[string]int

// Add adds every atom of other to f.
func (f ChemicalFormula) Add(other ChemicalFormula) {
	for sym, n := range other {
		f[sym] += n
	}
}

// Clone returns an independent copy of f.
func (f ChemicalFormula) Clone() ChemicalFormula {
	c := make(ChemicalFormula, len(f))
	for sym, n := range f {
		c[sym] = n
	}
	return c
}

// AtomCount returns the total number of atoms.
func (f ChemicalFormula) AtomCount() int {
	total := 0
	for _, n := range f {
		total += n
	}
	return total
}

// Symbols returns the element symbols in Hill order (C, H, then alphabetical).
func (f ChemicalFormula) Symbols() []string {
	syms := make([]string, 0, len(f))
	for sym, n := range f {
		if n != 0 {
			syms = append(syms, sym)
		}
	}
	sort.Slice(syms, func(i, j int) bool {
		return hillRank(syms[i]) < hillRank(syms[j]) ||
			(hillRank(syms[i]) == hillRank(syms[j]) && syms[i] < syms[j])
	})
	return syms
}

func hillRank(sym string) int {
	switch sym {
	case "C":
		return 0
	case "H":
		return 1
	}
	return 2
}

// MonoisotopicMass computes the monoisotopic mass. Unknown symbols are an error.
func (f ChemicalFormula) MonoisotopicMass() (float64, error) {
	mass := 0.0
	for sym, n := range f {
		el, ok := Elements[sym]
		if !ok {
			return 0, NewInvalidInput("formula", "unknown element %q", sym)
		}
		mass += float64(n) * el.MonoisotopicMass()
	}
	return mass, nil
}

// AverageMass computes the abundance weighted mass.
func (f ChemicalFormula) AverageMass() (float64, error) {
	mass := 0.0
	for sym, n := range f {
		el, ok := Elements[sym]
		if !ok {
			return 0, NewInvalidInput("formula", "unknown element %q", sym)
		}
		mass += float64(n) * el.AverageMass()
	}
	return mass, nil
}

// String renders the formula in Hill notation, e.g. "C34H53N7O15".
func (f ChemicalFormula) String() string {
	var b strings.Builder
	for _, sym := range f.Symbols() {
		b.WriteString(sym)
		if n := f[sym]; n != 1 {
			fmt.Fprintf(&b, "%d", n)
		}
	}
	return b.String()
}

// Water is added once per peptide chain.
var Water = ChemicalFormula{"H": 2, "O": 1}

// ResidueFormulas maps amino acid one-letter codes to residue (dehydrated) formulas
var ResidueFormulas = map[rune]ChemicalFormula{
	'A': {"C": 3, "H": 5, "N": 1, "O": 1},
	'R': {"C": 6, "H": 12, "N": 4, "O": 1},
	'N': {"C": 4, "H": 6, "N": 2, "O": 2},
	'D': {"C": 4, "H": 5, "N": 1, "O": 3},
	'C': {"C": 3, "H": 5, "N": 1, "O": 1, "S": 1},
	'E': {"C": 5, "H": 7, "N": 1, "O": 3},
	'Q': {"C": 5, "H": 8, "N": 2, "O": 2},
	'G': {"C": 2, "H": 3, "N": 1, "O": 1},
	'H': {"C": 6, "H": 7, "N": 3, "O": 1},
	'I': {"C": 6, "H": 11, "N": 1, "O": 1},
	'L': {"C": 6, "H": 11, "N": 1, "O": 1},
	'K': {"C": 6, "H": 12, "N": 2, "O": 1},
	'M': {"C": 5, "H": 9, "N": 1, "O": 1, "S": 1},
	'F': {"C": 9, "H": 9, "N": 1, "O": 1},
	'P': {"C": 5, "H": 7, "N": 1, "O": 1},
	'S': {"C": 3, "H": 5, "N": 1, "O": 2},
	'T': {"C": 4, "H": 7, "N": 1, "O": 2},
	'W': {"C": 11, "H": 10, "N": 2, "O": 1},
	'Y': {"C": 9, "H": 9, "N": 1, "O": 2},
	'V': {"C": 5, "H": 9, "N": 1, "O": 1},
	'U': {"C": 3, "H": 5, "N": 1, "O": 1, "Se": 1}, // selenocysteine
	'O': {"C": 12, "H": 19, "N": 3, "O": 2},        // pyrrolysine
}

// PeptideFormula returns the elemental formula of a peptide chain (residues plus water).
func PeptideFormula(sequence string) (ChemicalFormula, error) {
	f := Water.Clone()
	for i, aa := range sequence {
		res, ok := ResidueFormulas[aa]
		if !ok {
			return nil, NewInvalidInput("sequence", "unknown residue %q at position %d", aa, i)
		}
		f.Add(res)
	}
	return f, nil
}

// CalculateNeutralMass computes the neutral monoisotopic mass of a peptide
func CalculateNeutralMass(sequence string) (float64, error) {
	f, err := PeptideFormula(sequence)
	if err != nil {
		return 0, err
	}
	return f.MonoisotopicMass()
}

// CalculatePeptideMass computes the m/z of a peptide for a given charge state.
func CalculatePeptideMass(sequence string, charge int) (float64, error) {
	if charge == 0 {
		return 0, NewInvalidInput("charge", "charge must be non-zero")
	}
	mass, err := CalculateNeutralMass(sequence)
	if err != nil {
		return 0, err
	}
	return ToMz(mass, charge), nil
}

// ToMz converts a neutral mass to m/z. Negative charges remove protons.
func ToMz(mass float64, charge int) float64 {
	return mass/math.Abs(float64(charge)) + math.Copysign(ProtonMass, float64(charge))
}

// ToMass converts an m/z observed at charge back to a neutral mass.
func ToMass(mz float64, charge int) float64 {
	return math.Abs(float64(charge))*mz - float64(charge)*ProtonMass
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
