//go:build linux

package telemetry

import (
	"os"
	"path/filepath"
	"strings"
)

const sysfsPowerSupply = "/sys/class/power_supply"

// Mains adapters show up under different names depending on the firmware.
var acGlobs = []string{"AC*", "ACAD*", "ADP*"}

func platformACDetector() ACDetector {
	return SysfsACDetector(sysfsPowerSupply)
}

// SysfsACDetector reads the "online" attribute of the first mains supply under root.
func SysfsACDetector(root string) ACDetector {
	return func() (bool, bool) {
		for _, glob := range acGlobs {
			matches, _ := filepath.Glob(filepath.Join(root, glob, "online"))
			for _, path := range matches {
				b, err := os.ReadFile(path)
				if err != nil {
					continue
				}

				return strings.TrimSpace(string(b)) == "1", true
			}
		}

		return false, false
	}
}
