package browser

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// knownExecutables are process names used by Chromium-based browsers.
// Launcher scripts such as google-chrome exec into these.
//
//nolint:gochecknoglobals // Read-only lookup table.
var knownExecutables = []string{
	"chrome",
	"chromium",
	"chromium-browser",
	"google chrome",
	"brave",
	"msedge",
}

// RunningInstances returns PIDs of processes that look like the browser at path.
// The current process is never reported.
func RunningInstances(path string) ([]int, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, len(knownExecutables)+1)
	for _, name := range knownExecutables {
		names[name] = struct{}{}
	}

	names[normalizeExecutable(filepath.Base(path))] = struct{}{}

	self := os.Getpid()

	var pids []int

	for _, process := range processes {
		if process.Pid() == self {
			continue
		}

		if _, ok := names[normalizeExecutable(process.Executable())]; ok {
			pids = append(pids, process.Pid())
		}
	}

	return pids, nil
}

// normalizeExecutable lowercases a process name and drops the Windows suffix.
func normalizeExecutable(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}
