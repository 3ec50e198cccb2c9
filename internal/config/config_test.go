package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ChrisMcGann/IsoDecon/pkg/deconv"
	"github.com/ChrisMcGann/IsoDecon/pkg/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)

	params, err := cfg.Deconvolution.Parameters()
	require.NoError(t, err)
	assert.Equal(t, deconv.Classic, params.Kind())

	opts, err := cfg.Similarity.Options()
	require.NoError(t, err)
	assert.Equal(t, similarity.DefaultOptions(), opts)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "isodecon.yaml", `
log_level: debug
deconvolution:
  algorithm: isodec
  min_charge: 2
  max_charge: 6
  polarity: negative
  report_multiple_monoisotopic_masses: true
similarity:
  scheme: spectrumSum
  threads: 4
  ion_types: "b, y"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Similarity.Threads)
	// Untouched keys keep their defaults.
	assert.Equal(t, 10.0, cfg.Deconvolution.TolerancePpm)

	params, err := cfg.Deconvolution.Parameters()
	require.NoError(t, err)
	iso, ok := params.(*deconv.IsoDecParameters)
	require.True(t, ok)
	assert.Equal(t, deconv.Negative, iso.Polarity)
	assert.Equal(t, 2, iso.MinCharge)
	assert.True(t, iso.ReportMultipleMonoisotopicMasses)

	opts, err := cfg.Similarity.Options()
	require.NoError(t, err)
	assert.Equal(t, similarity.SpectrumSum, opts.Scheme)
	assert.Equal(t, []string{"b", "y"}, cfg.Similarity.Filter().IonTypes)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "isodecon.toml", `
[averagine]
mode = "residue"
max_isotopes = 20
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "residue", cfg.Averagine.Mode)
	assert.Equal(t, 20, cfg.Averagine.MaxIsotopes)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ISODECON_DECONVOLUTION_MAX_CHARGE", "3")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Deconvolution.MaxCharge)
}

func TestLoadEnvIonTypes(t *testing.T) {
	t.Setenv("ISODECON_SIMILARITY_ION_TYPES", "b,y")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "y"}, cfg.Similarity.IonTypes)
	assert.Equal(t, []string{"b", "y"}, cfg.Similarity.Filter().IonTypes)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeConfig(t, "bad.yaml", `
deconvolution:
  min_charge: 5
  max_charge: 2
similarity:
  scheme: loudest
  threads: 0
`)
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_charge")
	assert.Contains(t, err.Error(), "similarity.scheme")
	assert.Contains(t, err.Error(), "similarity.threads")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"algorithm", func(c *Config) { c.Deconvolution.Algorithm = "fourier" }},
		{"polarity", func(c *Config) { c.Deconvolution.Polarity = "sideways" }},
		{"tolerance", func(c *Config) { c.Deconvolution.TolerancePpm = 0 }},
		{"ratio", func(c *Config) { c.Deconvolution.IntensityRatioLimit = 0.5 }},
		{"mz range", func(c *Config) { c.Deconvolution.MzMin, c.Deconvolution.MzMax = 500, 400 }},
		{"cutoff", func(c *Config) { c.Similarity.CutoffPercent = 120 }},
		{"mode", func(c *Config) { c.Averagine.Mode = "other" }},
		{"isotopes", func(c *Config) { c.Averagine.MaxIsotopes = 65 }},
		{"probability", func(c *Config) { c.Averagine.MinProbability = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
