package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/buckleypaul/testit/internal/fault"
)

// ValidationError lists every cross-field problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// Validate checks the cross-field invariants of cfg. sweep enables the
// additional sweep-mode requirements on ranged parameters.
func Validate(cfg *Config, sweep bool) error {
	var v validator

	t := cfg.Target
	switch t.Type {
	case TargetSim:
		if t.OutputFile == "" {
			v.addf("target.outputFile is required for a sim target")
		}
	case TargetBoard:
		if t.USBPort.Path() == "" || t.Baudrate <= 0 {
			v.addf("invalid usbPort and/or baudrate: a board target requires both")
		}
	default:
		v.addf("target.type %q is neither %q nor %q", t.Type, TargetSim, TargetBoard)
	}
	if t.Name == "" {
		v.addf("target.name is required")
	}
	if !sweep && t.Iterations < 1 {
		v.addf("target.iterations must be at least 1, got %d", t.Iterations)
	}
	if t.Sentinel == "" {
		v.addf("target.sentinel must not be empty")
	}
	if cfg.Report.Dir == "" {
		v.addf("report.dir is required")
	}
	if len(cfg.Tests) == 0 {
		v.addf("at least one test is required")
	}

	seen := make(map[string]bool)
	for i, test := range cfg.Tests {
		v.test(i, test, sweep)
		if seen[test.AppName] {
			v.addf("tests[%d]: duplicate appName %q", i, test.AppName)
		}
		seen[test.AppName] = true
	}

	if len(v.problems) == 0 {
		return nil
	}
	return fault.Wrap(fault.Config, "validate config", &ValidationError{Problems: v.problems})
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) test(i int, test TestSpec, sweep bool) {
	where := fmt.Sprintf("tests[%d]", i)
	if test.AppName != "" {
		where = fmt.Sprintf("test %q", test.AppName)
	} else {
		v.addf("%s: appName is required", where)
	}
	if test.Dir == "" {
		v.addf("%s: dir is required", where)
	}

	re, err := regexp.Compile(test.OutputFormat)
	switch {
	case test.OutputFormat == "":
		v.addf("%s: outputFormat is required", where)
	case err != nil:
		v.addf("%s: outputFormat does not compile: %v", where, err)
	case re.NumSubexp() != len(test.OutputTags):
		v.addf("%s: outputFormat has %d capture groups but %d outputTags", where, re.NumSubexp(), len(test.OutputTags))
	}

	ranged := 0
	for _, p := range test.Parameters {
		if p.Name == "" {
			v.addf("%s: parameter without a name", where)
		}
		if !p.Value.IsRange() {
			continue
		}
		ranged++
		if p.Value.Range[0] > p.Value.Range[1] {
			v.addf("%s: parameter %s range %s has min > max", where, p.Name, p.Value)
		}
		if sweep && p.Step <= 0 {
			v.addf("%s: with sweep mode, parameter %s requires a positive integer 'step'", where, p.Name)
		}
	}
	if sweep && ranged == 0 {
		v.addf("%s: sweep mode requires at least one ranged parameter", where)
	}

	datasets := len(test.InputDataset) + len(test.OutputDataset)
	if datasets > 0 && test.GenFilesName == "" {
		v.addf("%s: genFilesName is required when datasets are declared", where)
	}
	for _, d := range test.InputDataset {
		v.dataset(where, d, true)
	}
	for _, d := range test.OutputDataset {
		v.dataset(where, d, false)
	}
	if len(test.OutputDataset) > 0 && test.GoldenResultFunction.Name == "" {
		v.addf("%s: outputDataset requires goldenResultFunction.name", where)
	}
}

func (v *validator) dataset(where string, d DatasetSpec, input bool) {
	if d.Name == "" {
		v.addf("%s: dataset without a name", where)
	}
	if !d.DataType.Supported() {
		v.addf("%s: dataset %s has unsupported dataType %q", where, d.Name, d.DataType)
	}
	if !input {
		return
	}
	if len(d.Dimensions) == 0 {
		v.addf("%s: dataset %s requires at least one dimension", where, d.Name)
	}
	for _, dim := range d.Dimensions {
		if dim.Param == "" && dim.Size < 1 {
			v.addf("%s: dataset %s has non-positive dimension %d", where, d.Name, dim.Size)
		}
	}
}
