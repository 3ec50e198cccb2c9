package cmd

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/ChrisMcGann/IsoDecon/internal/logger"
	"github.com/ChrisMcGann/IsoDecon/pkg/averagine"
	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"github.com/ChrisMcGann/IsoDecon/pkg/deconv"
	"github.com/ChrisMcGann/IsoDecon/pkg/reader/peaklist"
	"github.com/ChrisMcGann/IsoDecon/pkg/reader/sequence"
	"github.com/ChrisMcGann/IsoDecon/pkg/writer/sqlite"
	"github.com/spf13/cobra"
)

// routineSelf runs this binary's hidden routine command as the external routine.
const routineSelf = "self"

var (
	// Flags for deconvolute command
	deconInput      string
	deconOutput     string
	deconAlgorithm  string
	deconMinCharge  int
	deconMaxCharge  int
	deconPpm        float64
	deconRatioLimit float64
	deconPolarity   string
	deconMultiMonos bool
	deconRoutine    string
	deconMzMin      float64
	deconMzMax      float64
	deconSequences  string
)

var deconvoluteCmd = &cobra.Command{
	Use:   "deconvolute",
	Short: "Find isotopic envelopes in a centroided spectrum",
	Long: `Deconvolute a centroided peak list into isotopic envelopes.

Examples:
  # Classic averagine fit over the whole spectrum
  isodecon deconvolute --in peaks.txt

  # IsoDec clustering in negative mode, restricted to 400-1600 m/z
  isodecon deconvolute --in peaks.txt --algorithm isodec --polarity negative --mz-min 400 --mz-max 1600

  # IsoDec through an external routine, saving envelopes to SQLite
  isodecon deconvolute --in peaks.txt --algorithm isodec --routine ./isodec-routine --out run.db`,
	RunE: runDeconvolute,
}

func init() {
	f := deconvoluteCmd.Flags()
	f.StringVarP(&deconInput, "in", "i", "", "Peak list file, '-' for stdin (required)")
	f.StringVarP(&deconOutput, "out", "o", "", "SQLite database for envelopes")
	f.StringVar(&deconAlgorithm, "algorithm", "classic", "Algorithm: classic or isodec")
	f.IntVar(&deconMinCharge, "min-charge", 1, "Minimum assumed charge")
	f.IntVar(&deconMaxCharge, "max-charge", 10, "Maximum assumed charge")
	f.Float64Var(&deconPpm, "ppm", 10, "Peak matching tolerance in ppm")
	f.Float64Var(&deconRatioLimit, "ratio-limit", 3, "Observed/expected intensity ratio limit (classic)")
	f.StringVar(&deconPolarity, "polarity", "positive", "Ion mode: positive or negative")
	f.BoolVar(&deconMultiMonos, "multiple-monos", false, "Report every candidate monoisotopic mass (isodec)")
	f.StringVar(&deconRoutine, "routine", "", "External clustering program for isodec ('self' re-invokes this binary)")
	f.Float64Var(&deconMzMin, "mz-min", 0, "Lower m/z bound (0 = spectrum start)")
	f.Float64Var(&deconMzMax, "mz-max", 0, "Upper m/z bound (0 = spectrum end)")
	f.StringVar(&deconSequences, "sequences", "", "FASTA or sequence list for a sequence-specific averagine")

	deconvoluteCmd.MarkFlagRequired("in")
}

func runDeconvolute(cmd *cobra.Command, args []string) error {
	d := &cfg.Deconvolution
	changed(cmd.Flags(), map[string]func(){
		"algorithm":      func() { d.Algorithm = deconAlgorithm },
		"min-charge":     func() { d.MinCharge = deconMinCharge },
		"max-charge":     func() { d.MaxCharge = deconMaxCharge },
		"ppm":            func() { d.TolerancePpm = deconPpm },
		"ratio-limit":    func() { d.IntensityRatioLimit = deconRatioLimit },
		"polarity":       func() { d.Polarity = deconPolarity },
		"multiple-monos": func() { d.ReportMultipleMonoisotopicMasses = deconMultiMonos },
		"routine":        func() { d.RoutinePath = deconRoutine },
		"mz-min":         func() { d.MzMin = deconMzMin },
		"mz-max":         func() { d.MzMax = deconMzMax },
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	params, err := d.Parameters()
	if err != nil {
		return err
	}

	model, err := buildModel(deconSequences)
	if err != nil {
		return err
	}
	opts := []deconv.Option{deconv.WithModel(model)}
	if d.RoutinePath != "" {
		routine, err := externalRoutine(d.RoutinePath, selfRoutineArgs(configFile, cfg.LogLevel, deconSequences, d.IntensityRatioLimit))
		if err != nil {
			return err
		}
		opts = append(opts, deconv.WithRoutine(routine))
	}
	algorithm, err := deconv.New(params, opts...)
	if err != nil {
		return err
	}

	spectrum, err := peaklist.ReadFile(deconInput)
	if err != nil {
		return fmt.Errorf("failed to read peak list: %w", err)
	}
	rng := deconvolutionRange(spectrum, d.MzMin, d.MzMax)

	logger.Infof("Deconvoluting %d peaks in %s with %s", spectrum.Size(), rng, algorithm.Kind())
	envelopes, err := algorithm.Deconvolute(spectrum, rng)
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-7s %-14s %-14s %-14s %-8s %s\n", "ID", "Charge", "MonoMass", "ApexMz", "Intensity", "Score", "Peaks")
	for _, e := range envelopes {
		fmt.Printf("%-6d %-7d %-14.5f %-14.5f %-14.2f %-8.3f %d\n",
			e.ID(), e.Charge(), e.MonoisotopicMass(), e.MostAbundantMz(), e.TotalIntensity(), e.Score(), e.Len())
	}
	fmt.Printf("\nEnvelopes: %d\n", len(envelopes))

	if deconOutput != "" {
		if err := saveEnvelopes(deconOutput, params, envelopes); err != nil {
			return err
		}
		fmt.Printf("Output: %s\n", deconOutput)
	}
	return nil
}

// buildModel returns the default averagine, or one fitted to the residues of
// the given sequences, with the configured distribution limits.
func buildModel(sequencesPath string) (*averagine.Model, error) {
	model := averagine.DefaultModel()
	if sequencesPath != "" {
		records, err := sequence.ReadFile(sequencesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read sequences: %w", err)
		}
		specific, err := averagine.NewSequenceSpecific(sequence.Sequences(records))
		if err != nil {
			return nil, err
		}
		model, err = averagine.ModelFrom(specific)
		if err != nil {
			return nil, err
		}
		logger.Infof("Using sequence-specific averagine from %d sequences (%d residues)", len(records), specific.TotalResidues())
	}
	return model.WithLimits(cfg.Averagine.MaxIsotopes, cfg.Averagine.MinProbability), nil
}

// externalRoutine runs path as the clustering routine. For routineSelf the
// binary re-invokes itself with selfArgs.
func externalRoutine(path string, selfArgs []string) (deconv.Routine, error) {
	if path != routineSelf {
		return &deconv.ExecRoutine{Path: path}, nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	return &deconv.ExecRoutine{Path: self, Args: selfArgs}, nil
}

// selfRoutineArgs carries the caller's model and config settings over to the
// hidden routine command.
func selfRoutineArgs(configPath, level, sequencesPath string, ratioLimit float64) []string {
	args := []string{"routine"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if level != "" {
		args = append(args, "--log-level", level)
	}
	if sequencesPath != "" {
		args = append(args, "--sequences", sequencesPath)
	}
	if ratioLimit > 0 {
		args = append(args, "--ratio-limit", strconv.FormatFloat(ratioLimit, 'g', -1, 64))
	}
	return args
}

func deconvolutionRange(spectrum *core.MzSpectrum, mzMin, mzMax float64) core.MzRange {
	if mzMin == 0 && mzMax == 0 {
		return spectrum.Range()
	}
	rng := core.MzRange{Min: mzMin, Max: mzMax}
	if mzMax == 0 {
		rng.Max = math.Inf(1)
	}
	return rng
}

func saveEnvelopes(path string, params deconv.Parameters, envelopes []deconv.IsotopicEnvelope) error {
	writer, err := sqlite.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	// leaves runs unfinished and no header when a write fails
	defer writer.Abort()

	runID, err := writer.BeginRun("deconvolution/"+params.Kind().String(), params)
	if err != nil {
		return err
	}
	if err := writer.WriteEnvelopes(runID, envelopes); err != nil {
		return err
	}
	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}
	logger.Debugf("Saved run %s", runID)
	return nil
}
