// testit runs hardware verification campaigns against a simulator or an
// FPGA board.
//
// Usage:
//
//	testit setup
//	testit run [--nobuild] [--sweep] [--timeout=<d>] [--plain]
//	testit report [--sort-key=<tag>] [--descending] [--follow]
//	testit ports
package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/buckleypaul/testit/internal/fault"
	"github.com/buckleypaul/testit/internal/ui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.StepFailed(errorLabel(err)))
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func errorLabel(err error) string {
	if kind := fault.KindOf(err); kind != fault.Unknown {
		return kind.String() + ": " + err.Error()
	}
	return err.Error()
}
