package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spectrum(t *testing.T, xs, ys []float64) *core.MzSpectrum {
	t.Helper()
	s, err := core.NewMzSpectrum(xs, ys, true)
	require.NoError(t, err)
	return s
}

func TestIdenticalSpectraCorrelatePerfectly(t *testing.T) {
	xs := []float64{350.2, 420.7, 512.3, 640.9, 799.4}
	ys := []float64{10, 55, 30, 100, 5}
	for _, scheme := range []Scheme{Unnormalized, MostAbundantPeak, SpectrumSum, SquareRootSpectrumSum} {
		t.Run(scheme.String(), func(t *testing.T) {
			opts := Options{Scheme: scheme, TolerancePpm: 5, MzFloor: DefaultMzFloor}
			c, err := New(spectrum(t, xs, ys), spectrum(t, xs, ys), opts)
			require.NoError(t, err)
			require.True(t, c.Comparable())
			score, ok := c.Score()
			require.True(t, ok)
			assert.InDelta(t, 1.0, score, 1e-12)
		})
	}
}

func TestNoMatchingPeaksIsUndefined(t *testing.T) {
	opts := Options{Scheme: Unnormalized, TolerancePpm: 5, MzFloor: 0}
	c, err := NewFromArrays([]float64{1}, []float64{1}, []float64{1000}, []float64{1}, opts)
	require.NoError(t, err)

	assert.Equal(t, []IntensityPair{Undefined}, c.IntensityPairs())
	assert.False(t, c.Comparable())
	_, ok := c.Score()
	assert.False(t, ok)
}

func TestEverythingBelowFloorIsUndefined(t *testing.T) {
	c, err := NewFromArrays([]float64{100, 200}, []float64{1, 2}, []float64{350, 400}, []float64{1, 2}, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, c.ExperimentalY())
	assert.Equal(t, []IntensityPair{Undefined}, c.IntensityPairs())
}

func TestEmptyOrSilentSpectrum(t *testing.T) {
	tests := []struct {
		name         string
		expX, expY   []float64
		theoX, theoY []float64
	}{
		{"empty experimental", nil, nil, []float64{400}, []float64{1}},
		{"empty theoretical", []float64{400}, []float64{1}, []float64{}, []float64{}},
		{"zero intensity", []float64{400, 500}, []float64{0, 0}, []float64{400}, []float64{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromArrays(tt.expX, tt.expY, tt.theoX, tt.theoY, DefaultOptions())
			var empty *core.EmptySpectrumError
			assert.True(t, errors.As(err, &empty), "got %v", err)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}

	_, err := NewFromArrays([]float64{400, 500}, []float64{1}, []float64{400}, []float64{1}, DefaultOptions())
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = New(nil, spectrum(t, []float64{400}, []float64{1}), DefaultOptions())
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	bad := DefaultOptions()
	bad.TolerancePpm = 0
	_, err = NewFromArrays([]float64{400}, []float64{1}, []float64{400}, []float64{1}, bad)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestFilterDropsLowMzAndNegativeIntensity(t *testing.T) {
	opts := Options{Scheme: Unnormalized, TolerancePpm: 10, MzFloor: 300}
	c, err := NewFromArrays(
		[]float64{250, 300, 450, 600}, []float64{9, 4, -1, 6},
		[]float64{300, 600}, []float64{1, 1},
		opts)
	require.NoError(t, err)
	assert.Equal(t, []float64{300, 600}, c.ExperimentalX())
	assert.Equal(t, []float64{4, 6}, c.ExperimentalY())
}

func TestPairingIsGreedyByIntensity(t *testing.T) {
	opts := Options{Scheme: Unnormalized, TolerancePpm: 20, MzFloor: 0}
	// both experimental peaks are within 20 ppm of 500; the more intense
	// theoretical peak takes the more intense experimental one even though
	// the other is closer
	c, err := NewFromArrays(
		[]float64{499.995, 500.0, 800.0}, []float64{80, 20, 7},
		[]float64{500.0, 500.004, 900.0}, []float64{50, 30, 10},
		opts)
	require.NoError(t, err)

	want := []IntensityPair{
		{Experimental: 80, Theoretical: 50},
		{Experimental: 20, Theoretical: 30},
		{Experimental: 0, Theoretical: 10},
	}
	assert.Equal(t, want, c.IntensityPairs())

	opts.AllPeaks = true
	c, err = NewFromArrays(
		[]float64{499.995, 500.0, 800.0}, []float64{80, 20, 7},
		[]float64{500.0, 500.004, 900.0}, []float64{50, 30, 10},
		opts)
	require.NoError(t, err)
	assert.Equal(t, append(want, IntensityPair{Experimental: 7}), c.IntensityPairs())
}

func TestPairCountMatchesTheoreticalPeaks(t *testing.T) {
	exp := spectrum(t, []float64{310, 402.2, 455, 512.3, 700.1, 901}, []float64{3, 8, 1, 9, 4, 2})
	theoretical := [][]float64{
		{402.2, 512.3},
		{310, 402.2, 512.3, 650, 700.1, 950, 1200},
		{200, 402.2},
	}
	for _, tx := range theoretical {
		ty := make([]float64, len(tx))
		for i := range ty {
			ty[i] = float64(i + 1)
		}
		c, err := New(exp, spectrum(t, tx, ty), Options{Scheme: SpectrumSum, TolerancePpm: 5, MzFloor: DefaultMzFloor})
		require.NoError(t, err)
		assert.Len(t, c.IntensityPairs(), len(c.TheoreticalX()), "theoretical %v", tx)
	}
}

func TestScoreAnticorrelated(t *testing.T) {
	xs := []float64{400, 500, 600}
	c, err := NewFromArrays(xs, []float64{1, 2, 3}, xs, []float64{3, 2, 1}, Options{Scheme: Unnormalized, TolerancePpm: 5})
	require.NoError(t, err)
	score, ok := c.Score()
	require.True(t, ok)
	assert.InDelta(t, -1.0, score, 1e-12)
}

func TestPearson(t *testing.T) {
	_, ok := Pearson([]float64{1, 2}, []float64{1})
	assert.False(t, ok)
	_, ok = Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.False(t, ok, "zero variance")
	r, ok := Pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8.5})
	assert.True(t, ok)
	assert.True(t, r > 0.99 && r <= 1)
	assert.False(t, math.IsNaN(r))
}

func TestAccessorsReturnCopies(t *testing.T) {
	xs := []float64{400, 500}
	c, err := NewFromArrays(xs, []float64{1, 2}, xs, []float64{1, 2}, DefaultOptions())
	require.NoError(t, err)
	c.ExperimentalX()[0] = 0
	c.IntensityPairs()[0] = IntensityPair{}
	assert.Equal(t, 400.0, c.ExperimentalX()[0])
	assert.NotEqual(t, IntensityPair{}, c.IntensityPairs()[0])
}
