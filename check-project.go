//go:build ignore
// +build ignore

// Quick check of project detection and configuration validation
package main

import (
	"fmt"
	"os"

	"github.com/buckleypaul/testit/internal/buildsys"
	"github.com/buckleypaul/testit/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run check-project.go <path> [--sweep]")
		os.Exit(1)
	}

	path := os.Args[1]
	sweep := len(os.Args) > 2 && os.Args[2] == "--sweep"
	fmt.Printf("Looking for a testit project from: %s\n\n", path)

	proj := buildsys.DetectProject(path, config.DefaultFile, config.DefaultMakefile)
	if proj == nil {
		fmt.Println("No project detected")
		os.Exit(1)
	}

	fmt.Println("Project detected")
	fmt.Printf("   Root:        %s\n", proj.Root)
	fmt.Printf("   Config:      %s\n", proj.ConfigPath)
	fmt.Printf("   Makefile:    %s\n", proj.Makefile)

	cfg, err := config.Load(proj.ConfigPath)
	if err != nil {
		fmt.Printf("\n%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("   Target:      %s (%s)\n", cfg.Target.Name, cfg.Target.Type)
	fmt.Printf("   Tests:       %d\n", len(cfg.Tests))

	required := buildsys.SimTargets
	if cfg.Target.IsBoard() {
		required = buildsys.BoardTargets
	}
	if err := buildsys.CheckTargets(proj.Makefile, required); err != nil {
		fmt.Printf("\n%v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg, sweep); err != nil {
		fmt.Printf("\n%v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nConfiguration is valid")
}
