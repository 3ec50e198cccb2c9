package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/internal/logger"
	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"github.com/ChrisMcGann/IsoDecon/pkg/filter"
	"github.com/ChrisMcGann/IsoDecon/pkg/reader"
	"github.com/ChrisMcGann/IsoDecon/pkg/reader/msp"
	"github.com/ChrisMcGann/IsoDecon/pkg/reader/peaklist"
	"github.com/ChrisMcGann/IsoDecon/pkg/reader/sptxt"
	"github.com/ChrisMcGann/IsoDecon/pkg/similarity"
	"github.com/ChrisMcGann/IsoDecon/pkg/writer/sqlite"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	// Flags for similarity command
	simInput     string
	simLibrary   string
	simFormat    string
	simOutput    string
	simScheme    string
	simPpm       float64
	simAllPeaks  bool
	simMzFloor   float64
	simThreads   int
	simTopN      int
	simCutoff    float64
	simIonTypes  string
	simReportTop int
)

var similarityCmd = &cobra.Command{
	Use:   "similarity",
	Short: "Score a spectrum against a spectral library",
	Long: `Compute the cross-correlation between an experimental peak list and every
spectrum of an MSP or SPTXT library.

Examples:
  # Score against a library with default normalization
  isodecon similarity --in peaks.txt --library library.msp

  # Sum-normalized, b/y ions only, 8 workers, saved to SQLite
  isodecon similarity --in peaks.txt --library lib.sptxt.gz --scheme spectrumSum --ion-types b,y --threads 8 --out scores.db`,
	RunE: runSimilarity,
}

func init() {
	f := similarityCmd.Flags()
	f.StringVarP(&simInput, "in", "i", "", "Experimental peak list, '-' for stdin (required)")
	f.StringVarP(&simLibrary, "library", "l", "", "Library file, msp or sptxt, optionally gzipped (required)")
	f.StringVarP(&simFormat, "from", "f", "", "Library format: msp or sptxt (auto-detect if not specified)")
	f.StringVarP(&simOutput, "out", "o", "", "SQLite database for scores")
	f.StringVar(&simScheme, "scheme", "mostAbundantPeak", "Normalization: mostAbundantPeak, spectrumSum, squareRootSpectrumSum, unnormalized")
	f.Float64Var(&simPpm, "ppm", 20, "Peak pairing tolerance in ppm")
	f.BoolVar(&simAllPeaks, "all-peaks", false, "Pair unmatched experimental peaks with zero")
	f.Float64Var(&simMzFloor, "mz-floor", similarity.DefaultMzFloor, "Ignore peaks below this m/z")
	f.IntVar(&simThreads, "threads", 1, "Number of worker goroutines")
	f.IntVar(&simTopN, "top-n", 0, "Keep only top N most intense library peaks (0 = no limit)")
	f.Float64Var(&simCutoff, "cutoff", 0, "Library intensity cutoff as % of base peak (0 = no cutoff)")
	f.StringVar(&simIonTypes, "ion-types", "", "Comma-separated library ion types to keep (e.g., 'b,y')")
	f.IntVar(&simReportTop, "report", 20, "Number of best matches to print (0 = all)")

	similarityCmd.MarkFlagRequired("in")
	similarityCmd.MarkFlagRequired("library")
}

// libraryReader is the streaming interface shared by the library readers.
type libraryReader interface {
	Next() bool
	Spectrum() *core.Spectrum
	Err() error
}

type match struct {
	name     string
	sequence string
	charge   int
	score    float64
	ok       bool
	pairs    []similarity.IntensityPair
	skipped  bool
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	s := &cfg.Similarity
	changed(cmd.Flags(), map[string]func(){
		"scheme":    func() { s.Scheme = simScheme },
		"ppm":       func() { s.TolerancePpm = simPpm },
		"all-peaks": func() { s.AllPeaks = simAllPeaks },
		"mz-floor":  func() { s.MzFloor = simMzFloor },
		"threads":   func() { s.Threads = simThreads },
		"top-n":     func() { s.TopN = simTopN },
		"cutoff":    func() { s.CutoffPercent = simCutoff },
		"ion-types": func() { s.IonTypes = strings.Split(simIonTypes, ",") },
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := s.Options()
	if err != nil {
		return err
	}
	filterConfig := s.Filter()

	experimental, err := peaklist.ReadFile(simInput)
	if err != nil {
		return fmt.Errorf("failed to read peak list: %w", err)
	}

	format, err := libraryFormat(simLibrary, simFormat)
	if err != nil {
		return err
	}
	rc, err := reader.Open(simLibrary)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer rc.Close()
	lib := newLibraryReader(format, rc)

	logger.Infof("Scoring %s against %s (%s, %d threads)", simInput, simLibrary, opts.Scheme, s.Threads)
	matches, skipped, err := scoreLibrary(lib, experimental, opts, filterConfig, s.Threads)
	if err != nil {
		return err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].ok != matches[j].ok {
			return matches[i].ok
		}
		return matches[i].score > matches[j].score
	})

	shown := len(matches)
	if simReportTop > 0 && simReportTop < shown {
		shown = simReportTop
	}
	fmt.Printf("%-40s %-10s %s\n", "Name", "Score", "Pairs")
	for _, m := range matches[:shown] {
		score := "undefined"
		if m.ok {
			score = fmt.Sprintf("%.4f", m.score)
		}
		fmt.Printf("%-40s %-10s %d\n", m.name, score, len(m.pairs))
	}

	fmt.Printf("\nScored: %d spectra\n", len(matches))
	if skipped > 0 {
		fmt.Printf("Skipped: %d spectra (filter or validation errors)\n", skipped)
	}

	if simOutput != "" {
		if err := saveMatches(simOutput, s, matches); err != nil {
			return err
		}
		fmt.Printf("Output: %s\n", simOutput)
	}
	return nil
}

func libraryFormat(path, format string) (string, error) {
	if format == "" {
		name := strings.TrimSuffix(strings.ToLower(path), ".gz")
		format = strings.TrimPrefix(filepath.Ext(name), ".")
	}
	format = strings.ToLower(format)
	if format != "msp" && format != "sptxt" {
		return "", fmt.Errorf("invalid library format '%s', must be msp or sptxt", format)
	}
	return format, nil
}

func newLibraryReader(format string, r io.Reader) libraryReader {
	if format == "sptxt" {
		return sptxt.NewReader(r)
	}
	return msp.NewReader(r)
}

// scoreLibrary compares every library spectrum with experimental using up to
// threads goroutines. Spectra that fail filtering or comparison are skipped
// with a warning.
func scoreLibrary(lib libraryReader, experimental *core.MzSpectrum, opts similarity.Options, fc *filter.Config, threads int) ([]match, int, error) {
	var (
		g       errgroup.Group
		results []*match
	)
	g.SetLimit(threads)

	count := 0
	for lib.Next() {
		spec := lib.Spectrum()
		res := &match{name: spec.Name(), sequence: spec.Sequence, charge: spec.Charge}
		results = append(results, res)
		g.Go(func() error {
			filter.RemoveZeroIntensityPeaks(spec)
			if err := fc.Apply(spec); err != nil {
				logger.Warnf("failed to filter spectrum %s: %v", spec.Name(), err)
				res.skipped = true
				return nil
			}
			if err := spec.Validate(); err != nil {
				logger.Warnf("invalid spectrum %s: %v", spec.Name(), err)
				res.skipped = true
				return nil
			}
			theoretical, err := spec.MzSpectrum()
			if err != nil {
				logger.Warnf("invalid spectrum %s: %v", spec.Name(), err)
				res.skipped = true
				return nil
			}
			xc, err := similarity.New(experimental, theoretical, opts)
			if err != nil {
				logger.Warnf("cannot compare spectrum %s: %v", spec.Name(), err)
				res.skipped = true
				return nil
			}
			res.score, res.ok = xc.Score()
			res.pairs = xc.IntensityPairs()
			return nil
		})
		count++
		if count%1000 == 0 {
			logger.Infof("Processed %d spectra...", count)
		}
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if err := lib.Err(); err != nil {
		return nil, 0, fmt.Errorf("error reading library: %w", err)
	}

	matches := make([]match, 0, len(results))
	skipped := 0
	for _, r := range results {
		if r.skipped {
			skipped++
			continue
		}
		matches = append(matches, *r)
	}
	return matches, skipped, nil
}

func saveMatches(path string, s any, matches []match) error {
	writer, err := sqlite.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	// leaves runs unfinished and no header when a write fails
	defer writer.Abort()

	runID, err := writer.BeginRun("similarity", s)
	if err != nil {
		return err
	}
	for _, m := range matches {
		err := writer.WriteSimilarity(runID, sqlite.SimilarityRecord{
			Name:       m.name,
			Sequence:   m.sequence,
			Charge:     m.charge,
			Score:      m.score,
			Comparable: m.ok,
			Pairs:      m.pairs,
		})
		if err != nil {
			return err
		}
	}
	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}
	return nil
}
