package deconv

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLayout(t *testing.T) {
	assert.Equal(t, 340, RecordSize)

	r := Record{Charge: 3, IsotopeMz: []float32{400.5, 400.8333}, MonoisotopicMass: 1198.5, PeakIntensity: 42, Score: 0.75}
	r.MonoisotopicCandidates[0] = 1198.5
	r.MonoisotopicCandidates[15] = 1199.5

	b := make([]byte, RecordSize)
	require.NoError(t, r.MarshalTo(b))

	le := binary.LittleEndian
	f32 := func(off int) float32 { return math.Float32frombits(le.Uint32(b[off:])) }
	assert.Equal(t, uint32(3), le.Uint32(b[0:]))
	assert.Equal(t, uint32(2), le.Uint32(b[4:]))
	assert.Equal(t, float32(400.5), f32(8))
	assert.Equal(t, float32(400.8333), f32(12))
	assert.Equal(t, float32(0), f32(16))
	assert.Equal(t, float32(1198.5), f32(264))
	assert.Equal(t, float32(1199.5), f32(264+15*4))
	assert.Equal(t, float32(1198.5), f32(328))
	assert.Equal(t, float32(42), f32(332))
	assert.Equal(t, float32(0.75), f32(336))

	got, err := DecodeRecord(b)
	require.NoError(t, err)
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("DecodeRecord() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordBounds(t *testing.T) {
	b := make([]byte, RecordSize)
	assert.Error(t, (&Record{IsotopeMz: make([]float32, MaxIsotopes+1)}).MarshalTo(b))
	assert.Error(t, (&Record{}).MarshalTo(b[:RecordSize-1]))

	binary.LittleEndian.PutUint32(b[4:], MaxIsotopes+1)
	_, err := DecodeRecord(b)
	assert.Error(t, err)

	binary.LittleEndian.PutUint32(b[4:], math.MaxUint32) // -1
	_, err = DecodeRecord(b)
	assert.Error(t, err)

	_, err = DecodeRecord(b[:10])
	assert.Error(t, err)
}

func TestSettingsBlock(t *testing.T) {
	s := Settings{MinCharge: 1, MaxCharge: 30, Polarity: -1, TolerancePpm: 4.5, PhaseResolution: 8}
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, b, SettingsSize)
	assert.Equal(t, uint32(RecordVersion), binary.LittleEndian.Uint32(b))

	var got Settings
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, s, got)

	binary.LittleEndian.PutUint32(b, 99)
	assert.Error(t, got.UnmarshalBinary(b))
}

func TestWireRoundTrip(t *testing.T) {
	mz := []float64{100.25, 200.5, 300.75}
	intensity := []float32{1, 2, 3}
	settings := Settings{MinCharge: 1, MaxCharge: 4, Polarity: 1, TolerancePpm: 10}

	var req bytes.Buffer
	require.NoError(t, WriteRequest(&req, mz, intensity, settings))
	gotMz, gotIntensity, gotSettings, err := ReadRequest(&req)
	require.NoError(t, err)
	assert.Equal(t, mz, gotMz)
	assert.Equal(t, intensity, gotIntensity)
	assert.Equal(t, settings, gotSettings)

	records := make([]byte, 2*RecordSize)
	rec := Record{Charge: 2, IsotopeMz: []float32{500}, MonoisotopicMass: 998}
	require.NoError(t, rec.MarshalTo(records[RecordSize:]))

	var resp bytes.Buffer
	require.NoError(t, WriteResponse(&resp, 2, records))
	out := make([]byte, 2*RecordSize)
	n, err := ReadResponse(&resp, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, records, out)

	// a response larger than the caller's buffer is refused
	resp.Reset()
	require.NoError(t, WriteResponse(&resp, 2, records))
	_, err = ReadResponse(&resp, make([]byte, RecordSize))
	assert.Error(t, err)

	_, _, _, err = ReadRequest(bytes.NewReader([]byte("nope, not a request")))
	assert.Error(t, err)
}

func TestServeWithLocalRoutine(t *testing.T) {
	xs, ys := syntheticEnvelope(t, 1500, 2, 1000)
	intensity := make([]float32, len(ys))
	for i, y := range ys {
		intensity[i] = float32(y)
	}
	settings := NewIsoDecParameters(1, 4, 10).Settings()

	var req, resp bytes.Buffer
	require.NoError(t, WriteRequest(&req, xs, intensity, settings))
	require.NoError(t, Serve(&req, &resp, &LocalRoutine{}))

	out := make([]byte, len(xs)*RecordSize)
	n, err := ReadResponse(&resp, out)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rec, err := DecodeRecord(out)
	require.NoError(t, err)
	assert.Equal(t, int32(2), rec.Charge)
	assert.InDelta(t, 1500, rec.MonoisotopicMass, 0.01)
	assert.Len(t, rec.IsotopeMz, len(xs))
}

func TestLocalRoutineRespectsBufferCapacity(t *testing.T) {
	a, ay := syntheticEnvelope(t, 1500, 2, 1000)
	b, by := syntheticEnvelope(t, 1600, 1, 800)
	spectrum := buildSpectrum(t, append(a, b...), append(ay, by...))
	intensity := make([]float32, spectrum.Size())
	for i, y := range spectrum.YArray() {
		intensity[i] = float32(y)
	}
	settings := NewIsoDecParameters(1, 3, 10).Settings()

	out := make([]byte, RecordSize)
	n, err := (&LocalRoutine{}).Process(spectrum.XArray(), intensity, settings, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = (&LocalRoutine{}).Process([]float64{1}, nil, settings, out)
	assert.Error(t, err)
}

// TestHelperProcess is not a real test. It is the routine process started by
// TestExecRoutine.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("ISODECON_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("ISODECON_HELPER_FAIL") == "1" {
		os.Stderr.WriteString("routine exploded\n")
		os.Exit(3)
	}
	if err := Serve(os.Stdin, os.Stdout, &LocalRoutine{}); err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(2)
	}
	os.Exit(0)
}

func helperRoutine(env ...string) *ExecRoutine {
	return &ExecRoutine{
		Path: os.Args[0],
		Args: []string{"-test.run=^TestHelperProcess$", "--"},
		Env:  append([]string{"ISODECON_WANT_HELPER_PROCESS=1"}, env...),
	}
}

func TestExecRoutine(t *testing.T) {
	xs, ys := syntheticEnvelope(t, 1500, 2, 1000)
	spectrum := buildSpectrum(t, xs, ys)
	params := NewIsoDecParameters(1, 4, 10)

	local, err := NewIsoDec(params)
	require.NoError(t, err)
	want, err := local.Deconvolute(spectrum, core.FullRange)
	require.NoError(t, err)

	remote, err := NewIsoDec(params, WithRoutine(helperRoutine()))
	require.NoError(t, err)
	got, err := remote.Deconvolute(spectrum, core.FullRange)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmp.AllowUnexported(IsotopicEnvelope{})); diff != "" {
		t.Errorf("exec routine disagrees with local routine (-local +exec):\n%s", diff)
	}
}

func TestExecRoutineFailure(t *testing.T) {
	xs, ys := syntheticEnvelope(t, 1500, 2, 1000)
	spectrum := buildSpectrum(t, xs, ys)

	alg, err := NewIsoDec(NewIsoDecParameters(1, 4, 10), WithRoutine(helperRoutine("ISODECON_HELPER_FAIL=1")))
	require.NoError(t, err)
	_, err = alg.Deconvolute(spectrum, core.FullRange)
	require.ErrorIs(t, err, core.ErrExternalRoutine)
	assert.Contains(t, err.Error(), "routine exploded")
}
