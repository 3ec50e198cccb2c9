// Package config loads isodecon settings from an optional YAML or TOML file
// layered over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/pkg/averagine"
	"github.com/ChrisMcGann/IsoDecon/pkg/deconv"
	"github.com/ChrisMcGann/IsoDecon/pkg/filter"
	"github.com/ChrisMcGann/IsoDecon/pkg/similarity"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the full settings tree.
type Config struct {
	LogLevel      string              `mapstructure:"log_level"`
	Deconvolution DeconvolutionConfig `mapstructure:"deconvolution"`
	Similarity    SimilarityConfig    `mapstructure:"similarity"`
	Averagine     AveragineConfig     `mapstructure:"averagine"`
}

type DeconvolutionConfig struct {
	Algorithm                        string  `mapstructure:"algorithm"`
	MinCharge                        int     `mapstructure:"min_charge"`
	MaxCharge                        int     `mapstructure:"max_charge"`
	TolerancePpm                     float64 `mapstructure:"tolerance_ppm"`
	IntensityRatioLimit              float64 `mapstructure:"intensity_ratio_limit"`
	Polarity                         string  `mapstructure:"polarity"`
	ReportMultipleMonoisotopicMasses bool    `mapstructure:"report_multiple_monoisotopic_masses"`
	MatchTolerancePpm                float64 `mapstructure:"match_tolerance_ppm"`
	RoutinePath                      string  `mapstructure:"routine_path"`
	MzMin                            float64 `mapstructure:"mz_min"`
	MzMax                            float64 `mapstructure:"mz_max"`
}

type SimilarityConfig struct {
	Scheme        string   `mapstructure:"scheme"`
	TolerancePpm  float64  `mapstructure:"tolerance_ppm"`
	AllPeaks      bool     `mapstructure:"all_peaks"`
	MzFloor       float64  `mapstructure:"mz_floor"`
	Threads       int      `mapstructure:"threads"`
	TopN          int      `mapstructure:"top_n"`
	CutoffPercent float64  `mapstructure:"cutoff_percent"`
	IonTypes      []string `mapstructure:"ion_types"`
}

type AveragineConfig struct {
	Mode           string  `mapstructure:"mode"`
	MaxIsotopes    int     `mapstructure:"max_isotopes"`
	MinProbability float64 `mapstructure:"min_probability"`
}

// Default returns the settings used when no file or flag overrides them.
func Default() Config {
	return Config{
		LogLevel: "info",
		Deconvolution: DeconvolutionConfig{
			Algorithm:           deconv.Classic.String(),
			MinCharge:           1,
			MaxCharge:           10,
			TolerancePpm:        10,
			IntensityRatioLimit: 3,
			Polarity:            deconv.Positive.String(),
			MatchTolerancePpm:   deconv.DefaultMatchTolerancePpm,
		},
		Similarity: SimilarityConfig{
			Scheme:       similarity.MostAbundantPeak.String(),
			TolerancePpm: 20,
			MzFloor:      similarity.DefaultMzFloor,
			Threads:      1,
		},
		Averagine: AveragineConfig{
			Mode:           "global",
			MaxIsotopes:    averagine.DefaultMaxIsotopes,
			MinProbability: averagine.DefaultMinProbability,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("deconvolution.algorithm", d.Deconvolution.Algorithm)
	v.SetDefault("deconvolution.min_charge", d.Deconvolution.MinCharge)
	v.SetDefault("deconvolution.max_charge", d.Deconvolution.MaxCharge)
	v.SetDefault("deconvolution.tolerance_ppm", d.Deconvolution.TolerancePpm)
	v.SetDefault("deconvolution.intensity_ratio_limit", d.Deconvolution.IntensityRatioLimit)
	v.SetDefault("deconvolution.polarity", d.Deconvolution.Polarity)
	v.SetDefault("deconvolution.report_multiple_monoisotopic_masses", d.Deconvolution.ReportMultipleMonoisotopicMasses)
	v.SetDefault("deconvolution.match_tolerance_ppm", d.Deconvolution.MatchTolerancePpm)
	v.SetDefault("deconvolution.routine_path", d.Deconvolution.RoutinePath)
	v.SetDefault("deconvolution.mz_min", d.Deconvolution.MzMin)
	v.SetDefault("deconvolution.mz_max", d.Deconvolution.MzMax)

	v.SetDefault("similarity.scheme", d.Similarity.Scheme)
	v.SetDefault("similarity.tolerance_ppm", d.Similarity.TolerancePpm)
	v.SetDefault("similarity.all_peaks", d.Similarity.AllPeaks)
	v.SetDefault("similarity.mz_floor", d.Similarity.MzFloor)
	v.SetDefault("similarity.threads", d.Similarity.Threads)
	v.SetDefault("similarity.top_n", d.Similarity.TopN)
	v.SetDefault("similarity.cutoff_percent", d.Similarity.CutoffPercent)
	// registered so that ISODECON_SIMILARITY_ION_TYPES is picked up
	v.SetDefault("similarity.ion_types", d.Similarity.IonTypes)

	v.SetDefault("averagine.mode", d.Averagine.Mode)
	v.SetDefault("averagine.max_isotopes", d.Averagine.MaxIsotopes)
	v.SetDefault("averagine.min_probability", d.Averagine.MinProbability)
}

// Load reads path over the defaults. An empty path yields the defaults.
// Environment variables prefixed ISODECON_ (for example
// ISODECON_DECONVOLUTION_MAX_CHARGE) override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("isodecon")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.StringToSliceHookFunc(",")
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if len(cfg.Similarity.IonTypes) == 0 {
		cfg.Similarity.IonTypes = nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	d := c.Deconvolution
	if _, err := deconv.ParseAlgorithmKind(d.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("deconvolution.algorithm: %w", err))
	}
	if _, err := deconv.ParsePolarity(d.Polarity); err != nil {
		errs = append(errs, fmt.Errorf("deconvolution.polarity: %w", err))
	}
	if d.MinCharge <= 0 || d.MaxCharge < d.MinCharge {
		errs = append(errs, fmt.Errorf("deconvolution charges must satisfy 0 < min_charge <= max_charge (got %d, %d)", d.MinCharge, d.MaxCharge))
	}
	if d.TolerancePpm <= 0 {
		errs = append(errs, fmt.Errorf("deconvolution.tolerance_ppm must be > 0"))
	}
	if d.IntensityRatioLimit < 1 {
		errs = append(errs, fmt.Errorf("deconvolution.intensity_ratio_limit must be >= 1"))
	}
	if d.MatchTolerancePpm <= 0 {
		errs = append(errs, fmt.Errorf("deconvolution.match_tolerance_ppm must be > 0"))
	}
	if d.MzMax != 0 && d.MzMax < d.MzMin {
		errs = append(errs, fmt.Errorf("deconvolution.mz_max must be >= mz_min"))
	}

	s := c.Similarity
	if _, err := similarity.ParseScheme(s.Scheme); err != nil {
		errs = append(errs, fmt.Errorf("similarity.scheme: %w", err))
	}
	if s.TolerancePpm <= 0 {
		errs = append(errs, fmt.Errorf("similarity.tolerance_ppm must be > 0"))
	}
	if s.Threads < 1 {
		errs = append(errs, fmt.Errorf("similarity.threads must be >= 1"))
	}
	if s.TopN < 0 {
		errs = append(errs, fmt.Errorf("similarity.top_n must be >= 0"))
	}
	if s.CutoffPercent < 0 || s.CutoffPercent > 100 {
		errs = append(errs, fmt.Errorf("similarity.cutoff_percent must be within [0, 100]"))
	}

	a := c.Averagine
	switch strings.ToLower(a.Mode) {
	case "global", "residue":
	default:
		errs = append(errs, fmt.Errorf("averagine.mode must be global or residue, got %q", a.Mode))
	}
	if a.MaxIsotopes < 1 || a.MaxIsotopes > deconv.MaxIsotopes {
		errs = append(errs, fmt.Errorf("averagine.max_isotopes must be within [1, %d]", deconv.MaxIsotopes))
	}
	if a.MinProbability < 0 || a.MinProbability >= 1 {
		errs = append(errs, fmt.Errorf("averagine.min_probability must be within [0, 1)"))
	}
	return errors.Join(errs...)
}

// Parameters builds the deconvolution parameter variant selected by Algorithm.
func (d DeconvolutionConfig) Parameters() (deconv.Parameters, error) {
	kind, err := deconv.ParseAlgorithmKind(d.Algorithm)
	if err != nil {
		return nil, err
	}
	polarity, err := deconv.ParsePolarity(d.Polarity)
	if err != nil {
		return nil, err
	}
	var params deconv.Parameters
	switch kind {
	case deconv.IsoDec:
		p := deconv.NewIsoDecParameters(d.MinCharge, d.MaxCharge, d.TolerancePpm)
		p.Polarity = polarity
		p.ReportMultipleMonoisotopicMasses = d.ReportMultipleMonoisotopicMasses
		p.MatchTolerancePpm = d.MatchTolerancePpm
		params = p
	default:
		p := deconv.NewClassicParameters(d.MinCharge, d.MaxCharge, d.TolerancePpm, d.IntensityRatioLimit)
		p.Polarity = polarity
		params = p
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Options converts the similarity section into comparison options.
func (s SimilarityConfig) Options() (similarity.Options, error) {
	scheme, err := similarity.ParseScheme(s.Scheme)
	if err != nil {
		return similarity.Options{}, err
	}
	opts := similarity.Options{
		Scheme:       scheme,
		TolerancePpm: s.TolerancePpm,
		AllPeaks:     s.AllPeaks,
		MzFloor:      s.MzFloor,
	}
	return opts, opts.Validate()
}

// Filter converts the similarity section into a library peak filter.
func (s SimilarityConfig) Filter() *filter.Config {
	var ions []string
	for _, ion := range s.IonTypes {
		if ion = strings.TrimSpace(ion); ion != "" {
			ions = append(ions, ion)
		}
	}
	return &filter.Config{
		TopN:            s.TopN,
		IntensityCutoff: s.CutoffPercent,
		IonTypes:        ions,
	}
}
