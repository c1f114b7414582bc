//go:build linux

package procutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// clockTicksPerSec is the kernel's USER_HZ, used to convert /proc/<pid>/stat's
// starttime field (in clock ticks since boot) into a wall-clock time.
const clockTicksPerSec = 100

func readProcInfo(pid int) (*Info, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return nil, err
	}

	// comm is the second field, parenthesized and possibly containing
	// spaces/parens itself, so split on the last ")" rather than on
	// whitespace.
	contents := string(data)
	openParen := strings.IndexByte(contents, '(')
	closeParen := strings.LastIndexByte(contents, ')')
	if openParen < 0 || closeParen < 0 || closeParen < openParen {
		return nil, fmt.Errorf("malformed /proc/%d/stat", pid)
	}
	name := contents[openParen+1 : closeParen]

	fields := strings.Fields(contents[closeParen+1:])
	// After the comm field: fields[0] is state, ... starttime is field
	// index 19 (0-based) of the remaining fields per proc(5).
	const starttimeIndex = 19
	if len(fields) <= starttimeIndex {
		return nil, fmt.Errorf("malformed /proc/%d/stat: too few fields", pid)
	}
	ticks, err := strconv.ParseInt(fields[starttimeIndex], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing starttime: %w", err)
	}

	bootTime, err := systemBootTime()
	if err != nil {
		return nil, err
	}
	startTime := bootTime.Add(time.Duration(ticks) * time.Second / clockTicksPerSec)

	return &Info{Name: name, StartTime: startTime}, nil
}

func systemBootTime() (time.Time, error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return time.Time{}, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "btime ") {
			secs, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "btime")), 10, 64)
			if err != nil {
				return time.Time{}, err
			}
			return time.Unix(secs, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("btime not found in /proc/stat")
}
