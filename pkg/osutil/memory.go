package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// Locations of the container memory limit under cgroup v2 and v1
var cgroupMemoryLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",
	"/sys/fs/cgroup/memory/memory.limit_in_bytes",
}

// GetTotalMemory returns the memory available to the process, honouring a
// container limit when one is set.
func GetTotalMemory() uint64 {
	total := memory.TotalMemory()
	for _, path := range cgroupMemoryLimitFiles {
		if limit, ok := readMemoryLimit(path); ok && limit < total {
			return limit
		}
	}
	return total
}

// readMemoryLimit parses a cgroup limit file. Unlimited v2 cgroups report
// "max", which fails to parse. Unlimited v1 cgroups report a value far above
// physical memory.
func readMemoryLimit(path string) (uint64, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	limit, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil || limit == 0 {
		return 0, false
	}
	return limit, true
}
