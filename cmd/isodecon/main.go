// IsoDecon - Isotopic envelope deconvolution and spectral similarity tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/IsoDecon/cmd/isodecon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
