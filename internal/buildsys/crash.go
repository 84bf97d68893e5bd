package buildsys

import (
	"os"
	"path/filepath"
)

// CrashLogName is the file that receives the output of a failed step.
const CrashLogName = "testit_crash.log"

// WriteCrashLog stores the combined output of a failed invocation in dir
// and returns the log path.
func WriteCrashLog(dir string, out Output) (string, error) {
	path := filepath.Join(dir, CrashLogName)
	if err := os.WriteFile(path, []byte(out.Stdout+out.Stderr), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
