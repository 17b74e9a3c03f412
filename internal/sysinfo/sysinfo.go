// Package sysinfo collects best-effort host information for status
// reporting. Every field defaults to zero when /proc is unreadable; the
// monitor never depends on these values.
package sysinfo

import (
	"time"

	"github.com/prometheus/procfs"
)

// Info is a point-in-time host summary.
type Info struct {
	MemoryUsedPercent float64       `json:"memory_usage"`
	CPULoad1          float64       `json:"cpu_load"`
	SystemUptime      time.Duration `json:"system_uptime"`
}

// Collect gathers host information from procfs.
func Collect() Info {
	var info Info

	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return info
	}

	if meminfo, err := fs.Meminfo(); err == nil &&
		meminfo.MemTotal != nil && meminfo.MemAvailable != nil && *meminfo.MemTotal > 0 {
		total := float64(*meminfo.MemTotal)
		available := float64(*meminfo.MemAvailable)
		info.MemoryUsedPercent = (total - available) / total * 100
	}

	if load, err := fs.LoadAvg(); err == nil {
		info.CPULoad1 = load.Load1
	}

	if stat, err := fs.Stat(); err == nil && stat.BootTime > 0 {
		info.SystemUptime = time.Since(time.Unix(int64(stat.BootTime), 0))
	}

	return info
}
