package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/buckleypaul/testit/internal/fault"
)

const simYAML = `
target:
  type: sim
  name: verilator
  iterations: 3
  outputFile: out.txt
report:
  dir: results
tests:
  - appName: t1
    dir: sw/t1
    genFilesName: data
    outputFormat: '(\d+):(\d+):(\d+)'
    outputTags: [ID, Cycles, Outcome]
    parameters:
      - name: N
        value: [0, 4]
        step: 2
      - name: MODE
        value: fast
    inputDataset:
      name: A
      dataType: uint8_t
      valueRange: [0, 10]
      dimensions: [N, 3]
`

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Build.Tool != "make" {
		t.Errorf("expected Build.Tool=make, got=%s", cfg.Build.Tool)
	}
	if cfg.Target.Sentinel != "&" {
		t.Errorf("expected Sentinel=&, got=%s", cfg.Target.Sentinel)
	}
	if cfg.Target.ReadTimeout != time.Second {
		t.Errorf("expected ReadTimeout=1s, got=%s", cfg.Target.ReadTimeout)
	}
}

func TestParseMergesOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(simYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Target.Iterations != 3 {
		t.Errorf("expected iterations=3, got=%d", cfg.Target.Iterations)
	}
	if cfg.Report.Dir != "results" {
		t.Errorf("expected report dir from file, got=%s", cfg.Report.Dir)
	}
	// Not overridden, so still the default.
	if cfg.Target.DebugEndpoint != DefaultDebugEndpoint {
		t.Errorf("expected default debug endpoint, got=%s", cfg.Target.DebugEndpoint)
	}

	test := cfg.Tests[0]
	if !test.Parameters[0].Value.IsRange() || test.Parameters[0].Value.Range[1] != 4 {
		t.Errorf("expected N to be the range [0, 4], got=%s", test.Parameters[0].Value)
	}
	if test.Parameters[1].Value.Literal != "fast" {
		t.Errorf("expected MODE=fast, got=%s", test.Parameters[1].Value)
	}
	if len(test.InputDataset) != 1 {
		t.Fatalf("expected single dataset mapping to decode as a list of 1, got=%d", len(test.InputDataset))
	}
	dims := test.InputDataset[0].Dimensions
	if dims[0].Param != "N" || dims[1].Size != 3 {
		t.Errorf("unexpected dimensions: %+v", dims)
	}
}

func TestParseFPGAAlias(t *testing.T) {
	cfg, err := Parse([]byte("target: {type: fpga, name: pynq-z2, usbPort: 1, baudrate: 9600}\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !cfg.Target.IsBoard() {
		t.Errorf("expected fpga to normalize to board, got=%s", cfg.Target.Type)
	}
	if got := cfg.Target.USBPort.Path(); got != "/dev/ttyUSB1" {
		t.Errorf("expected /dev/ttyUSB1, got=%s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "testit.yaml"))
	if !fault.Is(err, fault.Config) {
		t.Fatalf("expected config fault, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFile)

	if err := Save(Template(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Target.Name != "verilator" {
		t.Errorf("expected Name=verilator, got=%s", loaded.Target.Name)
	}
	if loaded.Target.Timeout != DefaultTimeout {
		t.Errorf("expected Timeout=%s, got=%s", DefaultTimeout, loaded.Target.Timeout)
	}
	p := loaded.Tests[0].Parameters[0]
	if !p.Value.IsRange() || p.Step != 2 {
		t.Errorf("expected ranged ROWS with step 2, got=%s step=%d", p.Value, p.Step)
	}
	if err := Validate(loaded, true); err != nil {
		t.Errorf("template should validate in sweep mode: %v", err)
	}
}

func TestValidateBoardRequiresPortAndBaud(t *testing.T) {
	cfg := Template()
	cfg.Target.Type = TargetBoard

	err := Validate(&cfg, false)
	if !fault.Is(err, fault.Config) {
		t.Fatalf("expected config fault, got %v", err)
	}
	if !strings.Contains(err.Error(), "usbPort") {
		t.Errorf("expected usbPort problem, got: %v", err)
	}

	cfg.Target.USBPort = "0"
	cfg.Target.Baudrate = 9600
	if err := Validate(&cfg, false); err != nil {
		t.Errorf("expected valid board config, got: %v", err)
	}
}

func TestValidateSweepRequirements(t *testing.T) {
	cfg := Template()
	cfg.Tests[0].Parameters = []ParameterSpec{{Name: "N", Value: Scalar("4")}}

	err := Validate(&cfg, true)
	if err == nil || !strings.Contains(err.Error(), "at least one ranged parameter") {
		t.Fatalf("expected ranged-parameter problem, got: %v", err)
	}

	cfg.Tests[0].Parameters = []ParameterSpec{{Name: "N", Value: Range(1, 4)}}
	err = Validate(&cfg, true)
	if err == nil || !strings.Contains(err.Error(), "positive integer 'step'") {
		t.Fatalf("expected step problem, got: %v", err)
	}

	// Without sweep the step is irrelevant.
	if err := Validate(&cfg, false); err != nil {
		t.Errorf("expected valid plain-mode config, got: %v", err)
	}
}

func TestValidateOutputFormat(t *testing.T) {
	cfg := Template()
	cfg.Tests[0].OutputTags = []string{"ID"}

	err := Validate(&cfg, false)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) != 1 || !strings.Contains(verr.Problems[0], "3 capture groups but 1 outputTags") {
		t.Errorf("unexpected problems: %v", verr.Problems)
	}
}

func TestValidateUnsupportedType(t *testing.T) {
	cfg := Template()
	cfg.Tests[0].InputDataset[0].DataType = "int128_t"

	err := Validate(&cfg, false)
	if err == nil || !strings.Contains(err.Error(), `unsupported dataType "int128_t"`) {
		t.Fatalf("expected unsupported type problem, got: %v", err)
	}
}
