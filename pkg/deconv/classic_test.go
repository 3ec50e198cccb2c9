package deconv

import (
	"math"
	"sort"
	"testing"

	"github.com/ChrisMcGann/IsoDecon/pkg/averagine"
	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticEnvelope renders the averagine pattern of mono at charge z.
func syntheticEnvelope(t *testing.T, mono float64, z int, scale float64) ([]float64, []float64) {
	t.Helper()
	d, err := averagine.DefaultModel().DistributionForMass(mono)
	require.NoError(t, err)
	require.Equal(t, 0, d.MostAbundant())
	var xs, ys []float64
	for k, off := range d.Offsets() {
		xs = append(xs, core.ToMz(mono+off, z))
		ys = append(ys, scale*d.NormalizedToMax()[k])
	}
	return xs, ys
}

func buildSpectrum(t *testing.T, xs, ys []float64) *core.MzSpectrum {
	t.Helper()
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })
	sx, sy := make([]float64, len(xs)), make([]float64, len(ys))
	for i, j := range idx {
		sx[i], sy[i] = xs[j], ys[j]
	}
	s, err := core.NewMzSpectrum(sx, sy, false)
	require.NoError(t, err)
	return s
}

func TestClassicRecoversSyntheticEnvelope(t *testing.T) {
	xs, ys := syntheticEnvelope(t, 1500, 2, 1000)
	n := len(xs)
	xs = append(xs, 300.1, 1200.7)
	ys = append(ys, 40, 25)
	spectrum := buildSpectrum(t, xs, ys)

	envs, err := Deconvolute(spectrum, core.FullRange, 1, 4, 10, 3)
	require.NoError(t, err)
	require.Len(t, envs, 1)

	e := envs[0]
	assert.Equal(t, 0, e.ID())
	assert.Equal(t, 2, e.Charge())
	assert.InDelta(t, 1500, e.MonoisotopicMass(), 1e-6)
	assert.Equal(t, n, e.Len())
	assert.InDelta(t, float64(n), e.Score(), 1e-9)
	assert.InDelta(t, core.ToMz(1500, 2), e.MostAbundantMz(), 1e-9)
}

func TestClassicNegativePolarity(t *testing.T) {
	xs, ys := syntheticEnvelope(t, 1200, -2, 500)
	spectrum := buildSpectrum(t, xs, ys)

	params := NewClassicParameters(1, 3, 10, 3)
	params.Polarity = Negative
	alg, err := NewClassic(params)
	require.NoError(t, err)

	envs, err := alg.Deconvolute(spectrum, core.FullRange)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, -2, envs[0].Charge())
	assert.Equal(t, Negative, envs[0].Polarity())
	assert.InDelta(t, 1200, envs[0].MonoisotopicMass(), 1e-6)
}

func TestClassicRangeRestriction(t *testing.T) {
	a, ay := syntheticEnvelope(t, 1500, 2, 1000)
	b, by := syntheticEnvelope(t, 1600, 1, 800)
	spectrum := buildSpectrum(t, append(a, b...), append(ay, by...))

	envs, err := Deconvolute(spectrum, core.MzRange{Min: 1550, Max: 1700}, 1, 3, 10, 3)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, 1, envs[0].Charge())
	assert.InDelta(t, 1600, envs[0].MonoisotopicMass(), 1e-6)
	for _, p := range envs[0].Peaks() {
		assert.True(t, p.Mz >= 1550 && p.Mz <= 1700)
	}
}

func TestDeconvoluteEmptyRange(t *testing.T) {
	spectrum := buildSpectrum(t, []float64{100, 200, 300}, []float64{1, 2, 3})
	envs, err := Deconvolute(spectrum, core.MzRange{Min: 400, Max: 500}, 1, 3, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, envs)

	envs, err = Deconvolute(spectrum, core.MzRange{Min: 150, Max: 160}, 1, 3, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestDeconvolutePreconditions(t *testing.T) {
	spectrum := buildSpectrum(t, []float64{100, 200}, []float64{1, 2})
	empty, err := core.NewMzSpectrum(nil, nil, false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		spectrum *core.MzSpectrum
		rng      core.MzRange
		min, max int
		ppm      float64
	}{
		{"nil spectrum", nil, core.FullRange, 1, 3, 10},
		{"empty spectrum", empty, core.FullRange, 1, 3, 10},
		{"inverted charges", spectrum, core.FullRange, 4, 2, 10},
		{"zero charge", spectrum, core.FullRange, 0, 2, 10},
		{"zero ppm", spectrum, core.FullRange, 1, 2, 0},
		{"negative ppm", spectrum, core.FullRange, 1, 2, -5},
		{"inverted range", spectrum, core.MzRange{Min: 500, Max: 100}, 1, 2, 10},
		{"nan range", spectrum, core.MzRange{Min: math.NaN(), Max: 100}, 1, 2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deconvolute(tt.spectrum, tt.rng, tt.min, tt.max, tt.ppm, 3)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestClassicRejectsIsoDecParameters(t *testing.T) {
	_, err := NewClassic(NewIsoDecParameters(1, 3, 10))
	assert.ErrorIs(t, err, core.ErrConfigurationMismatch)

	var nilParams *ClassicParameters
	_, err = NewClassic(nilParams)
	assert.ErrorIs(t, err, core.ErrConfigurationMismatch)
}

func TestClassicMaxIsotopes(t *testing.T) {
	xs, ys := syntheticEnvelope(t, 1500, 2, 1000)
	spectrum := buildSpectrum(t, xs, ys)

	params := NewClassicParameters(1, 3, 10, 3)
	params.MaxIsotopes = 3
	alg, err := NewClassic(params)
	require.NoError(t, err)
	envs, err := alg.Deconvolute(spectrum, core.FullRange)
	require.NoError(t, err)
	require.NotEmpty(t, envs)
	assert.LessOrEqual(t, envs[0].Len(), 3)

	params.MaxIsotopes = MaxIsotopes + 1
	_, err = NewClassic(params)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
