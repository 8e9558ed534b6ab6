package watchdog

import (
	"syscall"
	"time"

	"github.com/kestrelwave/frameforge/internal/logger"
	"github.com/kestrelwave/frameforge/internal/registry"
)

// termWindows is the graduated per-straggler TERM window schedule of
// spec.md section 5 ("wait_for_all_forks gives each straggler a graduated
// 3/4/5/6/7-second TERM window").
var termWindows = []time.Duration{
	3 * time.Second, 4 * time.Second, 5 * time.Second, 6 * time.Second, 7 * time.Second,
}

// killDeadline is the final, absolute deadline after which every remaining
// pid is sent SIGKILL regardless of how far through termWindows it got.
const killDeadline = 10 * time.Second

// FinalDrain waits for every pid still registered to reach REAPED, sending
// TERM on a graduated per-pid schedule and an unconditional KILL once
// killDeadline elapses, then removes each record with cleanup. Used once, at
// signal-driven teardown, rather than per-stage.
func FinalDrain(reg *registry.Registry, log logger.Logger) {
	deadline := time.Now().Add(killDeadline)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	termSent := make(map[int]bool)
	start := time.Now()

	for {
		pids := reg.SnapshotPIDs()
		if len(pids) == 0 {
			return
		}

		now := time.Now()
		for i, pid := range pids {
			window := termWindows[i%len(termWindows)]
			if !termSent[pid] && now.Sub(start) >= window {
				log.Status("drain: pid %d: sending TERM after %s", pid, window)
				_ = syscall.Kill(pid, syscall.SIGTERM)
				termSent[pid] = true
			}
			if now.After(deadline) {
				log.Status("drain: pid %d: kill deadline reached, sending KILL", pid)
				_ = syscall.Kill(pid, syscall.SIGKILL)
			}
		}

		if now.After(deadline.Add(2 * time.Second)) {
			// Give the kernel a moment to deliver SIGKILL and let the
			// owning supervisor goroutines observe exit, then force the
			// registry clear so the process can still terminate.
			for _, pid := range pids {
				reg.SetStatus(pid, registry.Reaped)
				reg.Remove(pid, true)
			}
			return
		}

		<-ticker.C
	}
}
