package deconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/pkg/averagine"
	"github.com/ChrisMcGann/IsoDecon/pkg/core"
)

// Routine clusters peaks into isotope envelopes. Process writes up to
// len(out)/RecordSize records into out and returns how many it wrote. A count
// of zero or less means nothing was found.
type Routine interface {
	Process(mz []float64, intensity []float32, settings Settings, out []byte) (int, error)
}

// LocalRoutine runs the averagine clustering in process.
type LocalRoutine struct {
	Model               *averagine.Model
	IntensityRatioLimit float64 // default 3
	MinPeaks            int     // default 2
}

func (l *LocalRoutine) Process(mz []float64, intensity []float32, settings Settings, out []byte) (int, error) {
	if len(mz) != len(intensity) {
		return 0, fmt.Errorf("got %d m/z values and %d intensities", len(mz), len(intensity))
	}
	model := l.Model
	if model == nil {
		model = averagine.DefaultModel()
	}
	e := engine{
		minCharge:  int(settings.MinCharge),
		maxCharge:  int(settings.MaxCharge),
		tolerance:  core.PpmTolerance(settings.TolerancePpm),
		ratioLimit: l.IntensityRatioLimit,
		minPeaks:   l.MinPeaks,
		polarity:   Positive,
		model:      model,
	}
	if e.ratioLimit < 1 {
		e.ratioLimit = 3
	}
	if e.minPeaks < 1 {
		e.minPeaks = 2
	}
	if settings.Polarity < 0 {
		e.polarity = Negative
	}
	ys := make([]float64, len(intensity))
	for i, v := range intensity {
		ys[i] = float64(v)
	}
	clusters, err := e.cluster(mz, ys)
	if err != nil {
		return 0, err
	}
	n := min(len(clusters), len(out)/RecordSize)
	for i := 0; i < n; i++ {
		rec := clusters[i].record()
		if err := rec.MarshalTo(out[i*RecordSize:]); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// ExecRoutine runs an external program once per spectrum, writing the request
// to its stdin and reading the response from its stdout.
type ExecRoutine struct {
	Path string
	Args []string
	Env  []string
}

func (x *ExecRoutine) Process(mz []float64, intensity []float32, settings Settings, out []byte) (int, error) {
	var stdin, stdout, stderr bytes.Buffer
	if err := WriteRequest(&stdin, mz, intensity, settings); err != nil {
		return 0, err
	}
	cmd := exec.Command(x.Path, x.Args...)
	if len(x.Env) > 0 {
		cmd.Env = append(os.Environ(), x.Env...)
	}
	cmd.Stdin = &stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return 0, fmt.Errorf("%s: %w: %s", x.Path, err, msg)
		}
		return 0, fmt.Errorf("%s: %w", x.Path, err)
	}
	return ReadResponse(&stdout, out)
}

// Wire framing between ExecRoutine and Serve.
var (
	requestMagic  = [4]byte{'I', 'D', 'R', 'Q'}
	responseMagic = [4]byte{'I', 'D', 'R', 'S'}
)

const maxRequestPeaks = 1 << 26

// WriteRequest frames one spectrum for a routine process.
func WriteRequest(w io.Writer, mz []float64, intensity []float32, settings Settings) error {
	if len(mz) != len(intensity) {
		return fmt.Errorf("got %d m/z values and %d intensities", len(mz), len(intensity))
	}
	sb, err := settings.MarshalBinary()
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, v := range []any{requestMagic, uint32(RecordVersion), sb, uint32(len(mz)), mz, intensity} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write request: %w", err)
		}
	}
	return bw.Flush()
}

// ReadRequest decodes a request written by WriteRequest.
func ReadRequest(r io.Reader) ([]float64, []float32, Settings, error) {
	var s Settings
	if err := readHeader(r, requestMagic); err != nil {
		return nil, nil, s, err
	}
	sb := make([]byte, SettingsSize)
	if _, err := io.ReadFull(r, sb); err != nil {
		return nil, nil, s, fmt.Errorf("read settings: %w", err)
	}
	if err := s.UnmarshalBinary(sb); err != nil {
		return nil, nil, s, err
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, nil, s, fmt.Errorf("read peak count: %w", err)
	}
	if n > maxRequestPeaks {
		return nil, nil, s, fmt.Errorf("request peak count %d too large", n)
	}
	mz := make([]float64, n)
	intensity := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, mz); err != nil {
		return nil, nil, s, fmt.Errorf("read m/z: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, intensity); err != nil {
		return nil, nil, s, fmt.Errorf("read intensities: %w", err)
	}
	return mz, intensity, s, nil
}

// WriteResponse frames count records taken from the front of records.
func WriteResponse(w io.Writer, count int, records []byte) error {
	if count < 0 {
		count = 0
	}
	if count*RecordSize > len(records) {
		return fmt.Errorf("response claims %d records, buffer holds %d", count, len(records)/RecordSize)
	}
	bw := bufio.NewWriter(w)
	for _, v := range []any{responseMagic, uint32(RecordVersion), int32(count)} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	if _, err := bw.Write(records[:count*RecordSize]); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return bw.Flush()
}

// ReadResponse copies the response records into out and returns their count.
func ReadResponse(r io.Reader, out []byte) (int, error) {
	if err := readHeader(r, responseMagic); err != nil {
		return 0, err
	}
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, fmt.Errorf("read record count: %w", err)
	}
	if count <= 0 {
		return int(count), nil
	}
	size := int(count) * RecordSize
	if size > len(out) {
		return 0, fmt.Errorf("routine returned %d records, buffer holds %d", count, len(out)/RecordSize)
	}
	if _, err := io.ReadFull(r, out[:size]); err != nil {
		return 0, fmt.Errorf("read records: %w", err)
	}
	return int(count), nil
}

func readHeader(r io.Reader, magic [4]byte) error {
	var hdr struct {
		Magic   [4]byte
		Version uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if hdr.Magic != magic {
		return fmt.Errorf("bad magic %q, want %q", hdr.Magic[:], magic[:])
	}
	if hdr.Version != RecordVersion {
		return fmt.Errorf("unsupported protocol version %d", hdr.Version)
	}
	return nil
}

// Serve answers a single request from r on w using routine.
func Serve(r io.Reader, w io.Writer, routine Routine) error {
	mz, intensity, settings, err := ReadRequest(bufio.NewReader(r))
	if err != nil {
		return err
	}
	out, release := acquireRecords(len(mz))
	defer release()
	count, err := routine.Process(mz, intensity, settings, out)
	if err != nil {
		return err
	}
	return WriteResponse(w, count, out)
}
