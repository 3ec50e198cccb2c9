package cmd

import (
	"os"

	"github.com/ChrisMcGann/IsoDecon/pkg/deconv"
	"github.com/spf13/cobra"
)

var (
	routineRatioLimit float64
	routineSequences  string
)

// routineCmd lets this binary act as the external IsoDec routine
// (--routine self): it reads one framed request on stdin and answers on stdout.
var routineCmd = &cobra.Command{
	Use:    "routine",
	Short:  "Serve one clustering request on stdin/stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := buildModel(routineSequences)
		if err != nil {
			return err
		}
		local := &deconv.LocalRoutine{Model: model, IntensityRatioLimit: routineRatioLimit}
		return deconv.Serve(os.Stdin, os.Stdout, local)
	},
}

func init() {
	routineCmd.Flags().Float64Var(&routineRatioLimit, "ratio-limit", 3, "Observed/expected intensity ratio limit")
	routineCmd.Flags().StringVar(&routineSequences, "sequences", "", "FASTA or sequence list for a sequence-specific averagine")
}
