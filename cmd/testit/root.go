package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buckleypaul/testit/internal/buildsys"
	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/fault"
	"github.com/buckleypaul/testit/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config  string
	verbose bool
	logJSON bool
}

var rootCmd = &cobra.Command{
	Use:   "testit",
	Short: "Hardware verification campaigns for FPGA boards and simulators",
	Long: "testit builds a model, brings up the target, generates test datasets\n" +
		"and runs every registered test application, collecting results for reporting.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.config, "config", "c", config.DefaultFile, "campaign configuration file")
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&rootFlags.logJSON, "log-json", false, "log as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.Version = version
}

func newLogger(paths ...string) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Verbose: rootFlags.verbose,
		JSON:    rootFlags.logJSON,
		Paths:   paths,
	})
}

// project is a loaded campaign configuration and the directories it
// refers to.
type project struct {
	root     string
	buildDir string
	makefile string
	cfg      *config.Config
}

// path resolves p against the project root.
func (p *project) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.root, rel)
}

// loadProject finds and loads the configuration. A bare file name is
// searched for from the working directory upwards.
func loadProject() (*project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	name := rootFlags.config
	var cfgPath string
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		cfgPath, err = filepath.Abs(name)
		if err != nil {
			return nil, err
		}
	} else {
		found := buildsys.DetectProject(cwd, name, config.DefaultMakefile)
		if found == nil {
			return nil, fault.New(fault.Config, "load config",
				"%s not found in %s or any parent directory, run 'testit setup' first", name, cwd)
		}
		cfgPath = found.ConfigPath
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	p := &project{root: filepath.Dir(cfgPath), cfg: cfg}
	p.buildDir = p.path(cfg.Build.Dir)
	p.makefile = filepath.Join(p.buildDir, cfg.Build.Makefile)
	return p, nil
}
