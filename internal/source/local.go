package source

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultThermalZonePath = "/sys/class/thermal/thermal_zone0/temp"

// LocalProber reads the SoC temperature from the kernel thermal zone, which
// reports millidegrees Celsius as a decimal integer.
type LocalProber struct {
	path string
}

// NewLocalProber returns a prober over the default thermal zone.
func NewLocalProber() *LocalProber {
	return &LocalProber{path: defaultThermalZonePath}
}

// NewLocalProberAt returns a prober over a specific sysfs path.
func NewLocalProberAt(path string) *LocalProber {
	return &LocalProber{path: path}
}

// Probe implements Prober.
func (p *LocalProber) Probe(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, fmt.Errorf("read thermal zone: %w", err)
	}

	milli, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse thermal zone value: %w", err)
	}

	return float64(milli) / 1000.0, nil
}
