// Package metrics produces the one-shot process report behind the
// /getmetrics command.
package metrics

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

type Snapshot struct {
	Uptime     time.Duration
	HeapAlloc  uint64
	Sys        uint64
	Goroutines int
}

func Collect(startedAt time.Time) Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Snapshot{
		Uptime:     time.Since(startedAt).Truncate(time.Second),
		HeapAlloc:  ms.HeapAlloc,
		Sys:        ms.Sys,
		Goroutines: runtime.NumGoroutine(),
	}
}

func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Uptime: %s\n", s.Uptime)
	fmt.Fprintf(&b, "Memory usage: %s (reserved %s)\n", formatBytes(s.HeapAlloc), formatBytes(s.Sys))
	fmt.Fprintf(&b, "Goroutines: %d", s.Goroutines)
	return b.String()
}

func formatBytes(n uint64) string {
	const scale = 1024
	units := []string{"B", "KB", "MB", "GB"}
	v := float64(n)
	i := 0
	for v >= scale && i < len(units)-1 {
		v /= scale
		i++
	}
	return fmt.Sprintf("%.2f %s", v, units[i])
}
