package buildsys

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/buckleypaul/testit/internal/fault"
)

// Build targets the project Makefile must provide.
const (
	TargetSimBuild   = "sim-build"
	TargetSimCompile = "sw-sim"
	TargetSimRun     = "sim-run"

	TargetFPGABuild   = "fpga-build"
	TargetFPGALoad    = "fpga-load"
	TargetFPGACompile = "sw-fpga"
	TargetDebugServer = "deb-setup"
	TargetDebugger    = "gdb-setup"
)

var (
	SimTargets   = []string{TargetSimBuild, TargetSimCompile, TargetSimRun}
	BoardTargets = []string{TargetFPGABuild, TargetFPGALoad, TargetFPGACompile, TargetDebugServer, TargetDebugger}
)

var targetPattern = regexp.MustCompile(`^([a-zA-Z0-9_\-]+):`)

// Targets extracts the top-level target names declared in a Makefile.
func Targets(makefile string) ([]string, error) {
	f, err := os.Open(makefile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		// ":=" is an assignment, not a rule.
		if m := targetPattern.FindStringSubmatch(line); m != nil && !strings.HasPrefix(line[len(m[0]):], "=") {
			targets = append(targets, m[1])
		}
	}
	return targets, scanner.Err()
}

// CheckTargets verifies that every required target is declared in makefile.
func CheckTargets(makefile string, required []string) error {
	targets, err := Targets(makefile)
	if err != nil {
		return fault.Wrap(fault.Precondition, "check build targets", err)
	}

	have := make(map[string]bool, len(targets))
	for _, t := range targets {
		have[t] = true
	}

	var missing []string
	for _, r := range required {
		if !have[r] {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return fault.New(fault.Precondition, "check build targets",
			"%s is missing required targets: %s", makefile, strings.Join(missing, ", "))
	}
	return nil
}
