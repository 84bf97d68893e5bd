package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/golden"
	"github.com/buckleypaul/testit/internal/ui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write template configuration and golden-function files",
	Long: "setup writes " + config.DefaultFile + " and " + config.DefaultGoldenFile + " into the current\n" +
		"directory. Existing files are left untouched.",
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return setup(cwd, cmd.OutOrStdout())
}

func setup(dir string, out io.Writer) error {
	cfgPath := filepath.Join(dir, config.DefaultFile)
	if exists(cfgPath) {
		fmt.Fprintln(out, ui.WarningStyle.Render("WARNING: '"+config.DefaultFile+"' already exists in "+dir))
	} else {
		if err := config.Save(config.Template(), cfgPath); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.StepDone(config.DefaultFile, "CREATED"))
	}

	goldenPath := filepath.Join(dir, config.DefaultGoldenFile)
	if exists(goldenPath) {
		fmt.Fprintln(out, ui.WarningStyle.Render("WARNING: '"+config.DefaultGoldenFile+"' already exists in "+dir))
	} else {
		if err := os.WriteFile(goldenPath, golden.Template, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.StepDone(config.DefaultGoldenFile, "CREATED"))
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
