//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"tracetrigger/process"
)

// FindProcessByPID reads the name and executable of pid from /proc.
func FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	procPath := filepath.Join("/proc", strconv.Itoa(int(pid)))

	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
	}

	nameBytes, err := os.ReadFile(filepath.Join(procPath, "comm"))
	if err != nil {
		return nil, fmt.Errorf("failed to read process name: %w", err)
	}

	// Some processes don't have an exe (e.g., kernel threads)
	exe, _ := os.Readlink(filepath.Join(procPath, "exe"))

	return &process.ProcessInfo{
		PID:  pid,
		Name: strings.TrimSpace(string(nameBytes)),
		Exe:  exe,
	}, nil
}

// FindProcessesByNamePattern returns every process whose name matches pattern.
func FindProcessesByNamePattern(pattern string) ([]process.ProcessInfo, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("failed to read /proc: %w", err)
	}

	var results []process.ProcessInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		info, err := FindProcessByPID(process.ProcessID(pid))
		if err != nil {
			// Process may have terminated while we were reading
			continue
		}

		if re.MatchString(info.Name) {
			results = append(results, *info)
		}
	}

	return results, nil
}
