// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"

	"github.com/ChrisMcGann/IsoDecon/internal/config"
	"github.com/ChrisMcGann/IsoDecon/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Persistent flags
	configFile string
	logLevel   string

	// Loaded in PersistentPreRunE, flags applied on top by each command
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "isodecon",
	Short: "IsoDecon - Isotopic envelope deconvolution and spectral similarity",
	Long: `IsoDecon turns centroided mass spectra into isotopic envelopes and scores
experimental spectra against spectral libraries.

Supported workflows:
- Deconvolution with the in-process classic averagine fit or the IsoDec
  clustering routine (in process or as an external program)
- Cross-correlation similarity against MSP/SPTXT libraries
- Global and sequence-specific averagine models from FASTA or plain sequence lists
- Optional SQLite output of envelopes and similarity scores`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			if _, ok := logger.ParseLevel(logLevel); !ok {
				return fmt.Errorf("invalid log level %q, must be debug, info, warn or error", logLevel)
			}
			loaded.LogLevel = logLevel
		}
		logger.SetLevel(loaded.LogLevel)
		cfg = loaded
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (YAML or TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(deconvoluteCmd)
	rootCmd.AddCommand(similarityCmd)
	rootCmd.AddCommand(averagineCmd)
	rootCmd.AddCommand(routineCmd)
}

// changed runs set for every flag the user passed explicitly, so that
// explicit flags win over config file values.
func changed(flags *pflag.FlagSet, set map[string]func()) {
	flags.Visit(func(f *pflag.Flag) {
		if apply, ok := set[f.Name]; ok {
			apply()
		}
	})
}
