// Package watchdog implements the Progress Watchdog (C3): it tails every
// running child's progress file, aggregates their frames into one console
// status line, and escalates through the strike ladder when a child stops
// producing progress=continue frames.
//
// Grounded on the teacher's internal/process reconnect/stale-timeout
// machinery for the shape of "per-child liveness state decremented on a
// tick, escalating to a terminal action," generalized from one reconnect
// decision to the four-rung strike ladder of spec.md section 4.3, and on
// marcohefti-yt-vod-manager's liveProgress (internal/archive/progress.go)
// for the in-place carriage-return-overwritten console line, restyled with
// lipgloss per SPEC_FULL.md section 2.2.
package watchdog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kestrelwave/frameforge/internal/ffmpeg/progress"
	"github.com/kestrelwave/frameforge/internal/logger"
	"github.com/kestrelwave/frameforge/internal/registry"
	"github.com/kestrelwave/frameforge/internal/supervisor"
)

// TickInterval is the watchdog's tick cadence, per spec.md section 4.3
// ("Per tick (≈500 ms)").
const TickInterval = 500 * time.Millisecond

// TimeoutIntervals is the initial per-pid timeout_ticks budget: 240 ticks
// of 500ms each is ≈120s, per spec.md section 4.3 step 3.
const TimeoutIntervals = 240

var (
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	strikeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Worker is one child the watchdog is tracking for the duration of a stage.
type Worker struct {
	PID          int
	GID          int
	Slot         int
	ProgressPath string
	Done         <-chan supervisor.Result
}

// Outcome is the final disposition of one original worker slot, after any
// freeze-recovery restarts have resolved.
type Outcome struct {
	Slot      int
	PID       int // the pid that actually produced this outcome (may differ from the original worker's pid if restarted)
	ExitCode  int
	ErrorMsg  string
	Stderr    []string
	Restarted bool
	Strikes   int
}

// RestartFunc rebuilds argv for rec with the alt-algorithm toggled on and
// spawns a replacement worker with the same gid/slot. Supplied by the
// Orchestrator, which owns filter-graph construction (internal/ffmpeg/filter)
// and template bookkeeping.
type RestartFunc func(rec *registry.ChildRecord) (*Worker, error)

type strikeState struct {
	timeoutTicks int
	strikeCount  int
	lastStrike   int
}

// Run drives the watchdog tick loop for one stage's set of workers until
// every one of them (including any freeze-recovery replacements) has been
// reaped, returning one Outcome per original slot in slot order.
func Run(ctx context.Context, reg *registry.Registry, log logger.Logger, workers []*Worker, restart RestartFunc) ([]Outcome, error) {
	active := make(map[int]*Worker, len(workers)) // keyed by current pid
	slotOf := make(map[int]int)                   // current pid -> original slot
	strikes := make(map[int]*strikeState)
	outcomes := make(map[int]*Outcome, len(workers)) // keyed by slot

	for _, w := range workers {
		active[w.PID] = w
		slotOf[w.PID] = w.Slot
		strikes[w.PID] = &strikeState{timeoutTicks: TimeoutIntervals}
		outcomes[w.Slot] = &Outcome{Slot: w.Slot, PID: w.PID}
	}
	total := len(workers)

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	var mu sync.Mutex // guards outcomes/active across the done-channel drain goroutines below

	drainOne := func(pid int, w *Worker) {
		res := <-w.Done
		mu.Lock()
		defer mu.Unlock()
		slot := slotOf[pid]
		rec := reg.Get(pid)
		var stderr []string
		if rec != nil {
			stderr = rec.Stderr()
		}
		outcomes[slot].PID = pid
		outcomes[slot].ExitCode = res.ExitCode
		outcomes[slot].ErrorMsg = res.ErrorMsg
		outcomes[slot].Stderr = stderr
		delete(active, pid)
		reg.SetStatus(pid, registry.Reaped)
		reg.Remove(pid, true)
	}

	doneCh := make(chan struct{})
	var wg sync.WaitGroup
	startDrain := func(pid int, w *Worker) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drainOne(pid, w)
		}()
	}
	for pid, w := range active {
		startDrain(pid, w)
	}
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	for {
		select {
		case <-doneCh:
			return sortedOutcomes(outcomes), nil
		case <-ticker.C:
			mu.Lock()
			death := reg.ReadDeath()
			activeCount := len(active)
			render(activeCount, total, reg, active)

			for pid, w := range active {
				st := strikes[pid]
				frame, err := progress.ReadLast(w.ProgressPath)
				if err != nil {
					log.Debug("watchdog: pid %d: read progress: %v", pid, err)
				}
				switch frame.State {
				case progress.StateContinue:
					st.timeoutTicks = TimeoutIntervals
				case progress.StateEnded:
					st.timeoutTicks = TimeoutIntervals
				default:
					st.timeoutTicks--
				}

				if death >= 1 {
					// A raised death level escalates every live child through
					// the same strike path, scaled by severity, so the whole
					// job exits within a bounded window (spec.md section 4.3
					// step 6).
					st.timeoutTicks = 0
				}

				if st.timeoutTicks > 0 {
					continue
				}

				increment := 1
				if death >= 1 {
					increment = death
				}
				st.strikeCount += increment
				outcomes[slotOf[pid]].Strikes = st.strikeCount

				switch {
				case st.strikeCount >= 1 && st.lastStrike < 1 && st.strikeCount < 7:
					log.Warning("watchdog: pid %d: strike 1, sending TERM", pid)
					_ = syscall.Kill(pid, syscall.SIGTERM)
					reg.MarkRestart(pid)
					st.lastStrike = 1
				case st.strikeCount >= 7 && st.lastStrike < 7 && st.strikeCount < 13:
					log.Warning("watchdog: pid %d: strike 7, sending KILL", pid)
					_ = syscall.Kill(pid, syscall.SIGKILL)
					reg.MarkRestart(pid)
					st.lastStrike = 7
				case st.strikeCount >= 13 && st.lastStrike < 13 && st.strikeCount <= 17:
					log.Warning("watchdog: pid %d: strike 13, reaping synchronously", pid)
					st.lastStrike = 13
					// The supervisor's own goroutine will observe cmd.Wait()
					// return once SIGKILL lands; drainOne already races to
					// consume that result, so "synchronous reap" here means
					// only: stop waiting on further progress from this pid.
				case st.strikeCount > 17 && restart != nil:
					log.Warning("watchdog: pid %d: strike >17, restarting with alt-algorithm", pid)
					st.lastStrike = st.strikeCount
					rec := reg.Get(pid)
					if rec == nil {
						continue
					}
					_ = os.Remove(w.ProgressPath)
					newWorker, err := restart(rec)
					if err != nil {
						log.Error("watchdog: pid %d: restart failed: %v", pid, err)
						continue
					}
					slot := slotOf[pid]
					outcomes[slot].Restarted = true
					delete(slotOf, pid)
					slotOf[newWorker.PID] = slot
					strikes[newWorker.PID] = &strikeState{timeoutTicks: TimeoutIntervals}
					active[newWorker.PID] = newWorker
					outcomes[slot].PID = newWorker.PID
					startDrain(newWorker.PID, newWorker)
				}
			}
			mu.Unlock()
		}
	}
}

func sortedOutcomes(outcomes map[int]*Outcome) []Outcome {
	slots := make([]int, 0, len(outcomes))
	for s := range outcomes {
		slots = append(slots, s)
	}
	sort.Ints(slots)
	out := make([]Outcome, 0, len(slots))
	for _, s := range slots {
		out = append(out, *outcomes[s])
	}
	return out
}

// render writes the in-place aggregate progress line, per spec.md section
// 4.3 step 4: with frames reporting a frame count it shows frame/drop/dup/
// fps/rate/size; otherwise just elapsed out_time. CPU/RSS are a domain-stack
// diagnostic addition (SPEC_FULL.md section 3): summed across every active
// worker from the gopsutil samples the Supervisor annotates onto its
// ChildRecord, purely informational and never consulted by the strike
// ladder above.
func render(activeCount, total int, reg *registry.Registry, active map[int]*Worker) {
	var frames []progress.Frame
	var totalCPU float64
	var totalRSS uint64
	for pid, w := range active {
		f, _ := progress.ReadLast(w.ProgressPath)
		frames = append(frames, f)
		if rec := reg.Get(pid); rec != nil {
			totalCPU += rec.CPUPercent
			totalRSS += rec.RSSBytes
		}
	}
	agg := progress.Aggregate(frames)

	prefix := fmt.Sprintf("[%d/%d running]", activeCount, total)
	suffix := fmt.Sprintf("CPU %.1f%%; RSS %.1f MB", totalCPU, float64(totalRSS)/1e6)
	var line string
	if agg.FrameNo > 0 {
		line = fmt.Sprintf("%s Frame %d (%d drp, %d dup); %s; FPS %.2f; rate %.0f bits/s; Size %d; %s",
			prefix, agg.FrameNo, agg.DropFrames, agg.DupFrames, formatOutTime(agg.OutTimeUS), agg.FPS, agg.BitrateBPS, agg.TotalSize, suffix)
	} else {
		line = fmt.Sprintf("%s %s; %s", prefix, formatOutTime(agg.OutTimeUS), suffix)
	}

	styled := activeStyle.Render(line)
	if activeCount == 0 {
		styled = doneStyle.Render(line)
	}
	fmt.Printf("\r\033[2K%s", styled)
	_ = strikeStyle
}

func formatOutTime(us int64) string {
	total := time.Duration(us) * time.Microsecond
	h := total / time.Hour
	total -= h * time.Hour
	m := total / time.Minute
	total -= m * time.Minute
	s := total / time.Second
	total -= s * time.Second
	frac := total / time.Microsecond
	return fmt.Sprintf("%02d:%02d:%02d.%06d", h, m, s, frac)
}
