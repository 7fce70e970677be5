//go:build unix

package vm

import "golang.org/x/sys/unix"

// cpuClock on unix targets is a process CPU-time reading in seconds,
// sourced from getrusage(2) so CLOCK measures CPU time rather than
// wall-clock time.
type cpuClock float64

func readCPUClock() cpuClock {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	user := float64(ru.Utime.Sec) + float64(ru.Utime.Usec)/1e6
	sys := float64(ru.Stime.Sec) + float64(ru.Stime.Usec)/1e6
	return cpuClock(user + sys)
}

func elapsedCPUSeconds(start cpuClock) float64 {
	return float64(readCPUClock() - start)
}
