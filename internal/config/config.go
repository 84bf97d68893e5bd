package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/buckleypaul/testit/internal/fault"
)

const (
	DefaultFile           = "testit.yaml"
	DefaultBaudRate       = 115200
	DefaultReportDir      = "report"
	DefaultBuildTool      = "make"
	DefaultMakefile       = "Makefile"
	DefaultGoldenFile     = "testit_golden.go"
	DefaultSentinel       = "&"
	DefaultDebugEndpoint  = "localhost:3333"
	DefaultRemoteTimeout  = 2000
	DefaultTimeout        = 120 * time.Second
	DefaultBreakpointPoll = 10 * time.Second
	DefaultReadTimeout    = time.Second
)

// TargetType selects the device backend.
type TargetType string

const (
	TargetSim   TargetType = "sim"
	TargetBoard TargetType = "board"

	// targetFPGA is the board spelling used by older configuration files.
	targetFPGA TargetType = "fpga"
)

// Config is the full campaign configuration.
type Config struct {
	Target TargetConfig `yaml:"target"`
	Tests  []TestSpec   `yaml:"tests"`
	Report ReportConfig `yaml:"report"`
	Build  BuildConfig  `yaml:"build"`
	Golden GoldenConfig `yaml:"golden"`
	// Seed makes dataset generation reproducible when non-zero.
	Seed uint64 `yaml:"seed,omitempty"`
}

// TargetConfig describes the device under test.
type TargetConfig struct {
	Type       TargetType `yaml:"type"`
	Name       string     `yaml:"name"`
	USBPort    PortRef    `yaml:"usbPort,omitempty"`
	Baudrate   int        `yaml:"baudrate,omitempty"`
	Iterations int        `yaml:"iterations"`
	OutputFile string     `yaml:"outputFile,omitempty"`

	Timeout        time.Duration `yaml:"timeout,omitempty"`
	BreakpointPoll time.Duration `yaml:"breakpointPoll,omitempty"`
	ReadTimeout    time.Duration `yaml:"readTimeout,omitempty"`
	Sentinel       string        `yaml:"sentinel,omitempty"`
	DebugEndpoint  string        `yaml:"debugEndpoint,omitempty"`
	RemoteTimeout  int           `yaml:"remoteTimeout,omitempty"`
}

// IsBoard reports whether the target is a physical board.
func (t TargetConfig) IsBoard() bool {
	return t.Type == TargetBoard
}

type ReportConfig struct {
	Dir string `yaml:"dir"`
}

type BuildConfig struct {
	Tool     string `yaml:"tool,omitempty"`
	Dir      string `yaml:"dir,omitempty"`
	Makefile string `yaml:"makefile,omitempty"`
	// Path lists toolchain directories prepended to PATH for build targets.
	Path []string `yaml:"path,omitempty"`
}

type GoldenConfig struct {
	File string `yaml:"file,omitempty"`
}

// TestSpec is one registered test application.
type TestSpec struct {
	AppName              string          `yaml:"appName"`
	Dir                  string          `yaml:"dir"`
	GenFilesName         string          `yaml:"genFilesName"`
	OutputFormat         string          `yaml:"outputFormat"`
	OutputTags           []string        `yaml:"outputTags"`
	Parameters           []ParameterSpec `yaml:"parameters,omitempty"`
	InputDataset         DatasetList     `yaml:"inputDataset,omitempty"`
	OutputDataset        DatasetList     `yaml:"outputDataset,omitempty"`
	GoldenResultFunction GoldenRef       `yaml:"goldenResultFunction,omitempty"`
}

type GoldenRef struct {
	Name string `yaml:"name"`
}

// ParameterSpec is a named test parameter, constant or ranged.
type ParameterSpec struct {
	Name  string     `yaml:"name"`
	Value ParamValue `yaml:"value"`
	Step  int64      `yaml:"step,omitempty"`
}

// DatasetSpec declares one generated array.
type DatasetSpec struct {
	Name       string      `yaml:"name"`
	DataType   DataType    `yaml:"dataType"`
	ValueRange [2]float64  `yaml:"valueRange"`
	Dimensions []Dimension `yaml:"dimensions"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Target: TargetConfig{
			Iterations:     1,
			Timeout:        DefaultTimeout,
			BreakpointPoll: DefaultBreakpointPoll,
			ReadTimeout:    DefaultReadTimeout,
			Sentinel:       DefaultSentinel,
			DebugEndpoint:  DefaultDebugEndpoint,
			RemoteTimeout:  DefaultRemoteTimeout,
		},
		Report: ReportConfig{Dir: DefaultReportDir},
		Build: BuildConfig{
			Tool:     DefaultBuildTool,
			Makefile: DefaultMakefile,
		},
		Golden: GoldenConfig{File: DefaultGoldenFile},
	}
}

// Load reads the configuration file at path, decoding it over Defaults.
// A missing or malformed file is a config fault.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.New(fault.Config, "load config", "%s not found, run 'testit setup' first", path)
		}
		return nil, fault.Wrap(fault.Config, "load config", err)
	}
	return Parse(data)
}

// Parse decodes configuration bytes (YAML or JSON) over Defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fault.Wrap(fault.Config, "parse config", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.Target.Type == targetFPGA {
		c.Target.Type = TargetBoard
	}
	if c.Target.Sentinel == "" {
		c.Target.Sentinel = DefaultSentinel
	}
	if c.Build.Tool == "" {
		c.Build.Tool = DefaultBuildTool
	}
	if c.Build.Makefile == "" {
		c.Build.Makefile = DefaultMakefile
	}
	if c.Golden.File == "" {
		c.Golden.File = DefaultGoldenFile
	}
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	return os.WriteFile(path, data, 0o644)
}

// Template returns the example configuration written by 'testit setup'.
func Template() Config {
	cfg := Defaults()
	cfg.Target.Type = TargetSim
	cfg.Target.Name = "verilator"
	cfg.Target.Iterations = 5
	cfg.Target.OutputFile = "build/sim_output.txt"
	cfg.Tests = []TestSpec{
		{
			AppName:      "matmul",
			Dir:          "sw/applications/matmul",
			GenFilesName: "data",
			OutputFormat: `(\d+):(\d+):(\w+)`,
			OutputTags:   []string{"ID", "Cycles", "Outcome"},
			Parameters: []ParameterSpec{
				{Name: "ROWS", Value: Range(2, 8), Step: 2},
				{Name: "COLS", Value: Range(2, 8), Step: 2},
			},
			InputDataset: DatasetList{
				{Name: "A", DataType: Int32, ValueRange: [2]float64{0, 100}, Dimensions: []Dimension{ParamDim("ROWS"), ParamDim("COLS")}},
				{Name: "B", DataType: Int32, ValueRange: [2]float64{0, 100}, Dimensions: []Dimension{ParamDim("COLS"), ParamDim("ROWS")}},
			},
			OutputDataset: DatasetList{
				{Name: "R", DataType: Int32},
			},
			GoldenResultFunction: GoldenRef{Name: "MatMul"},
		},
	}
	return cfg
}
