//go:build !unix

package vm

import "time"

// cpuClock falls back to wall-clock time on platforms without getrusage
// (see clock_unix.go for the primary implementation).
type cpuClock time.Time

func readCPUClock() cpuClock { return cpuClock(time.Now()) }

func elapsedCPUSeconds(start cpuClock) float64 {
	return time.Since(time.Time(start)).Seconds()
}
