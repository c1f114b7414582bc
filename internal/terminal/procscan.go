package terminal

import (
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/re-cinq/kild/internal/procutil"
)

// scanProcessTable is the fallback PID-capture strategy when no
// shards_dir is supplied for the PID-file wrapper (spec.md §4.7): scan
// `ps` for a command-name match. Slower and noisier than the wrapper
// approach, and ambiguous if multiple matching processes are running,
// so it only returns a result when exactly one candidate is found.
func scanProcessTable(command string) (pid int, name string, start time.Time, ok bool) {
	needle := commandName(command)
	if needle == "" {
		return 0, "", time.Time{}, false
	}

	out, err := exec.Command("ps", "-eo", "pid,comm").Output()
	if err != nil {
		return 0, "", time.Time{}, false
	}

	var match int
	found := 0
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		p, convErr := strconv.Atoi(fields[0])
		if convErr != nil {
			continue
		}
		if strings.Contains(fields[1], needle) {
			match = p
			found++
		}
	}
	if found != 1 {
		return 0, "", time.Time{}, false
	}

	info, err := procutil.GetInfo(match)
	if err != nil {
		return match, "", time.Time{}, true
	}
	return match, info.Name, info.StartTime, true
}

// commandName extracts the leading program token from a shell command
// line so it can be matched against `ps`'s comm column.
func commandName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	base := fields[0]
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return base
}
