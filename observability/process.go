package observability

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats describes the bot process itself.
type ProcessStats struct {
	PID        int
	RSSBytes   uint64
	CPUPercent float64
	Threads    int32
	Goroutines int
}

// ReadProcess retrieves memory, CPU and thread usage of the current process.
func ReadProcess() (ProcessStats, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return ProcessStats{}, err
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	threads, err := p.NumThreads()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{
		PID:        int(p.Pid),
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Threads:    threads,
		Goroutines: runtime.NumGoroutine(),
	}, nil
}
