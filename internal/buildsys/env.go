package buildsys

import (
	"os"
	"os/exec"
	"strings"
)

// NewMake returns a Make runner for the project in dir. Extra toolchain
// directories are prepended to PATH for every invocation.
func NewMake(tool, dir string, path []string) *Make {
	m := &Make{Tool: tool, Dir: dir}
	if len(path) > 0 {
		m.Env = buildEnvWithPath(strings.Join(path, string(os.PathListSeparator)))
	}
	return m
}

// buildEnvWithPath creates a copy of the current environment with binDir
// prepended to PATH.
func buildEnvWithPath(binDir string) []string {
	env := os.Environ()
	result := make([]string, 0, len(env))
	pathSet := false

	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			result = append(result, "PATH="+binDir+string(os.PathListSeparator)+e[5:])
			pathSet = true
		} else {
			result = append(result, e)
		}
	}

	if !pathSet {
		result = append(result, "PATH="+binDir)
	}

	return result
}

// applyEnv sets the environment and working directory on an exec.Cmd.
func (m *Make) applyEnv(cmd *exec.Cmd) {
	if m.Env != nil {
		cmd.Env = m.Env
	}
	if m.Dir != "" {
		cmd.Dir = m.Dir
	}
}
