package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMemory converts a JVM-style memory string ("2G", "512M",
// "1024m", "1.5GiB") to MiB. A bare number is taken as MiB, matching
// what -Xmx users expect. Empty input returns 0.
func ParseMemory(memory string) (int, error) {
	memory = strings.TrimSpace(memory)
	if memory == "" {
		return 0, nil
	}

	i := strings.IndexFunc(memory, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	number, unit := memory, ""
	if i >= 0 {
		number, unit = memory[:i], memory[i:]
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid memory value: %s", memory)
	}

	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "", "M", "MB", "MI", "MIB":
		return int(value), nil
	case "B":
		return int(value / (1024 * 1024)), nil
	case "K", "KB", "KI", "KIB":
		return int(value / 1024), nil
	case "G", "GB", "GI", "GIB":
		return int(value * 1024), nil
	case "T", "TB", "TI", "TIB":
		return int(value * 1024 * 1024), nil
	default:
		return 0, fmt.Errorf("unknown memory unit: %s", unit)
	}
}
