package verify

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceProbe reports live machine headroom. Adaptive batch sizing reads
// it when the LLM endpoint is local and competes for the same cores and
// memory. Tests substitute a deterministic fake.
type ResourceProbe interface {
	// AvailableMemory returns bytes of memory available for new work.
	AvailableMemory() (uint64, error)
	// CPULoad returns current total CPU utilization in percent.
	CPULoad() (float64, error)
	// Cores returns the logical core count.
	Cores() int
}

// sysProbe reads the real counters through gopsutil.
type sysProbe struct{}

// NewSystemProbe returns a probe backed by OS counters.
func NewSystemProbe() ResourceProbe { return sysProbe{} }

func (sysProbe) AvailableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

func (sysProbe) CPULoad() (float64, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

func (sysProbe) Cores() int { return runtime.NumCPU() }
