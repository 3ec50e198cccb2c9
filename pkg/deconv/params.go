package deconv

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
)

// AlgorithmKind tags a parameter variant with the algorithm it configures.
type AlgorithmKind int

const (
	Classic AlgorithmKind = iota
	IsoDec
)

func (k AlgorithmKind) String() string {
	switch k {
	case Classic:
		return "classic"
	case IsoDec:
		return "isodec"
	}
	return fmt.Sprintf("AlgorithmKind(%d)", int(k))
}

// ParseAlgorithmKind accepts "classic" or "isodec" (case insensitive).
func ParseAlgorithmKind(s string) (AlgorithmKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classic", "":
		return Classic, nil
	case "isodec":
		return IsoDec, nil
	}
	return 0, core.NewInvalidInput("algorithm", "unknown deconvolution algorithm %q, must be classic or isodec", s)
}

// Polarity is the ion mode of a spectrum.
type Polarity int

const (
	Positive Polarity = 1
	Negative Polarity = -1
)

// Apply signs an unsigned charge for this polarity.
func (p Polarity) Apply(charge int) int {
	if p == Negative {
		return -charge
	}
	return charge
}

func (p Polarity) String() string {
	if p == Negative {
		return "negative"
	}
	return "positive"
}

// ParsePolarity accepts "positive", "+", "negative" or "-".
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "pos", "+", "":
		return Positive, nil
	case "negative", "neg", "-":
		return Negative, nil
	}
	return 0, core.NewInvalidInput("polarity", "unknown polarity %q", s)
}

// Common holds the settings shared by every algorithm.
type Common struct {
	MinCharge    int
	MaxCharge    int
	TolerancePpm float64
	Polarity     Polarity
}

func (c Common) Validate() error {
	var errs []string
	if c.MinCharge <= 0 || c.MaxCharge <= 0 {
		errs = append(errs, "charge range bounds must be positive")
	}
	if c.MinCharge > c.MaxCharge {
		errs = append(errs, fmt.Sprintf("min charge %d exceeds max charge %d", c.MinCharge, c.MaxCharge))
	}
	if !(c.TolerancePpm > 0) {
		errs = append(errs, "ppm tolerance must be positive")
	}
	if c.Polarity != Positive && c.Polarity != Negative {
		errs = append(errs, "polarity must be positive or negative")
	}
	if len(errs) > 0 {
		return core.NewInvalidInput("DeconvolutionParameters", "%s", strings.Join(errs, "; "))
	}
	return nil
}

// Parameters is implemented by the parameter variant of each algorithm.
type Parameters interface {
	Kind() AlgorithmKind
	Base() Common
	Validate() error
}

// ClassicParameters configure the in-process averagine fit.
type ClassicParameters struct {
	Common
	// Observed/expected intensity ratios outside [1/limit, limit] reject an isotope peak.
	IntensityRatioLimit float64
	// Caps the predicted isotopes per envelope; 0 keeps the model default.
	MaxIsotopes int
	// Minimum matched isotope peaks per envelope.
	MinPeaks int
}

// NewClassicParameters returns positive-mode parameters with MinPeaks 2.
func NewClassicParameters(minCharge, maxCharge int, tolerancePpm, intensityRatioLimit float64) *ClassicParameters {
	return &ClassicParameters{
		Common: Common{
			MinCharge:    minCharge,
			MaxCharge:    maxCharge,
			TolerancePpm: tolerancePpm,
			Polarity:     Positive,
		},
		IntensityRatioLimit: intensityRatioLimit,
		MinPeaks:            2,
	}
}

func (p *ClassicParameters) Kind() AlgorithmKind { return Classic }
func (p *ClassicParameters) Base() Common        { return p.Common }

func (p *ClassicParameters) Validate() error {
	if err := p.Common.Validate(); err != nil {
		return err
	}
	if !(p.IntensityRatioLimit >= 1) {
		return core.NewInvalidInput("IntensityRatioLimit", "must be >= 1, got %g", p.IntensityRatioLimit)
	}
	if p.MaxIsotopes < 0 || p.MaxIsotopes > MaxIsotopes {
		return core.NewInvalidInput("MaxIsotopes", "must be in [0, %d], got %d", MaxIsotopes, p.MaxIsotopes)
	}
	if p.MinPeaks < 1 {
		return core.NewInvalidInput("MinPeaks", "must be >= 1, got %d", p.MinPeaks)
	}
	return nil
}

// DefaultMatchTolerancePpm is the tolerance used to re-match routine isotope
// positions against the spectrum.
const DefaultMatchTolerancePpm = 5.0

// IsoDecParameters configure delegation to an external clustering routine.
type IsoDecParameters struct {
	Common
	ReportMultipleMonoisotopicMasses bool
	MatchTolerancePpm                float64
	PhaseResolution                  int
}

// NewIsoDecParameters returns positive-mode parameters with the 5 ppm re-match tolerance.
func NewIsoDecParameters(minCharge, maxCharge int, tolerancePpm float64) *IsoDecParameters {
	return &IsoDecParameters{
		Common: Common{
			MinCharge:    minCharge,
			MaxCharge:    maxCharge,
			TolerancePpm: tolerancePpm,
			Polarity:     Positive,
		},
		MatchTolerancePpm: DefaultMatchTolerancePpm,
		PhaseResolution:   8,
	}
}

func (p *IsoDecParameters) Kind() AlgorithmKind { return IsoDec }
func (p *IsoDecParameters) Base() Common        { return p.Common }

func (p *IsoDecParameters) Validate() error {
	if err := p.Common.Validate(); err != nil {
		return err
	}
	if !(p.MatchTolerancePpm > 0) {
		return core.NewInvalidInput("MatchTolerancePpm", "must be positive, got %g", p.MatchTolerancePpm)
	}
	if p.PhaseResolution < 0 {
		return core.NewInvalidInput("PhaseResolution", "must not be negative")
	}
	return nil
}

// Settings packs the parameters into the routine settings block.
func (p *IsoDecParameters) Settings() Settings {
	return Settings{
		MinCharge:       int32(p.MinCharge),
		MaxCharge:       int32(p.MaxCharge),
		Polarity:        int32(p.Polarity),
		TolerancePpm:    float32(p.TolerancePpm),
		PhaseResolution: int32(p.PhaseResolution),
	}
}
