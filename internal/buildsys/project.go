package buildsys

import (
	"os"
	"path/filepath"
)

// Project is a detected testit project directory.
type Project struct {
	Root       string // Absolute path of the directory holding the config file
	ConfigPath string
	Makefile   string
}

// DetectProject walks up from startDir looking for configName. It returns
// nil when no enclosing directory holds one.
func DetectProject(startDir, configName, makefileName string) *Project {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil
	}

	for {
		cfg := filepath.Join(dir, configName)
		if info, err := os.Stat(cfg); err == nil && !info.IsDir() {
			return &Project{
				Root:       dir,
				ConfigPath: cfg,
				Makefile:   filepath.Join(dir, makefileName),
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil
}
