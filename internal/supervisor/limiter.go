package supervisor

import (
	"time"

	gopsutilprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/kestrelwave/frameforge/internal/registry"
)

// SampleResources periodically annotates rec with CPU/RSS readings sampled
// via gopsutil, stopping when stop is closed. Kept near-verbatim from the
// teacher's internal/process.sysLimiter, repurposed from a stream-health
// input into a read-only diagnostic surfaced by the watchdog's console
// line (see SPEC_FULL.md section 2.2) — it does not participate in any
// strike/freeze decision.
func SampleResources(rec *registry.ChildRecord, stop <-chan struct{}) {
	proc, err := gopsutilprocess.NewProcess(int32(rec.PID))
	if err != nil {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if cpu, err := proc.CPUPercent(); err == nil {
				rec.CPUPercent = cpu
			}
			if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
				rec.RSSBytes = mem.RSS
			}
		}
	}
}
