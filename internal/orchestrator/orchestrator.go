// Package orchestrator implements the Stage Orchestrator (C4): it builds
// argv for every ffmpeg invocation of a stage, spawns the right number of
// supervised workers, drives the Watchdog until they are all reaped, and
// reports stage success/failure per spec.md section 4.4.
//
// Grounded on spec.md section 4.4 verbatim for the stage algorithm and
// chaining rules, and on the teacher's internal/task.Store for the "own a
// Registry + Logger + toolchain, expose one method per externally-visible
// operation" shape (internal/task/store.go), generalized from CRUD-task
// operations to pipeline stages.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kestrelwave/frameforge/internal/ffmpeg"
	"github.com/kestrelwave/frameforge/internal/ffmpeg/filter"
	"github.com/kestrelwave/frameforge/internal/ffmpeg/probe"
	"github.com/kestrelwave/frameforge/internal/ffmpeg/progress"
	"github.com/kestrelwave/frameforge/internal/job"
	"github.com/kestrelwave/frameforge/internal/logger"
	"github.com/kestrelwave/frameforge/internal/registry"
	"github.com/kestrelwave/frameforge/internal/supervisor"
	"github.com/kestrelwave/frameforge/internal/watchdog"
)

// Stage failure exit codes, per spec.md section 6 ("6-12 per-stage
// failure: probe, grouping, segment, interp-up, interp-down, write list,
// assemble").
const (
	ExitProbeFailure    = 6
	ExitGroupingFailure = 7
	ExitSegmentFailure  = 8
	ExitInterpUpFailure = 9
	ExitInterpDnFailure = 10
	ExitListFailure     = 11
	ExitAssembleFailure = 12
)

// StageError names the failed stage with its spec-assigned exit code.
type StageError struct {
	Stage    string
	ExitCode int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Orchestrator drives one job's stage pipeline.
type Orchestrator struct {
	Toolchain *ffmpeg.Toolchain
	Registry  *registry.Registry
	Log       logger.Logger
}

// New returns an Orchestrator bound to a resolved toolchain and registry.
func New(tc *ffmpeg.Toolchain, reg *registry.Registry, log logger.Logger) *Orchestrator {
	return &Orchestrator{Toolchain: tc, Registry: reg, Log: log}
}

// runSingle spawns one worker and waits directly on the supervisor's
// result, without the Watchdog (probe/concat/segment/assemble workers write
// no progress file that needs tailing), and returns its Result plus its
// captured stdout/stderr lines. Output must be snapshotted before the record is
// removed from the Registry.
func (o *Orchestrator) runSingle(ctx context.Context, argv []string, gid int) (supervisor.Result, []string, []string, error) {
	pid, done, err := supervisor.Spawn(ctx, o.Registry, o.Log, argv, gid)
	if err != nil {
		return supervisor.Result{}, nil, nil, err
	}
	res := <-done
	rec := o.Registry.Get(pid)
	var stdout, stderr []string
	if rec != nil {
		stdout = rec.Stdout()
		stderr = rec.Stderr()
	}
	o.Registry.SetStatus(pid, registry.Reaped)
	o.Registry.Remove(pid, true)
	return res, stdout, stderr, nil
}

// checkResult implements spec.md section 4.4 step 4's success criterion.
func checkResult(res supervisor.Result, stderr []string) error {
	if res.ExitCode != 0 {
		return fmt.Errorf("exit code %d: %s", res.ExitCode, res.ErrorMsg)
	}
	for _, line := range stderr {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "critical") {
			return fmt.Errorf("error-classed stderr line: %s", line)
		}
	}
	return nil
}

// Probe runs ffprobe on one source through the supervised spawn path (gid
// 0, per the data model's "gid ... or 0 for probes/capture"), returning the
// parsed flat key=value result.
func (o *Orchestrator) Probe(ctx context.Context, path string) (probe.Result, error) {
	argv := []string{o.Toolchain.FFprobePath, "-v", "error", "-show_format", "-show_streams", "-of", "flat=s=_", path}
	res, stdout, stderr, err := o.runSingle(ctx, argv, 0)
	if err != nil {
		return probe.Result{}, &StageError{Stage: "probe", ExitCode: ExitProbeFailure, Err: err}
	}
	if err := checkResult(res, stderr); err != nil {
		return probe.Result{}, &StageError{Stage: "probe", ExitCode: ExitProbeFailure, Err: err}
	}
	out, err := probe.Parse([]byte(strings.Join(stdout, "\n")))
	if err != nil {
		return probe.Result{}, &StageError{Stage: "probe", ExitCode: ExitProbeFailure, Err: err}
	}
	return out, nil
}

// Concat runs the concat stage for a SourceGroup. Per spec.md section 4.4,
// it only spawns a worker when the group has more than one source;
// otherwise cat is set directly to the single source path (boundary
// behavior, spec.md section 8).
func (o *Orchestrator) Concat(ctx context.Context, g *job.SourceGroup, j *job.Job) error {
	if len(g.SourceIDs) == 1 {
		g.Templates.Cat = j.Sources[g.SourceIDs[0]].Path
		return nil
	}

	if err := os.WriteFile(g.Templates.Lst, []byte(listFileContents(j.Sources, g.SourceIDs)), 0o644); err != nil {
		return &StageError{Stage: "write-list", ExitCode: ExitListFailure, Err: err}
	}

	argv := []string{o.Toolchain.FFmpegPath}
	argv = append(argv, startFlags()...)
	argv = append(argv, inputInitFlags()...)
	argv = append(argv, concatInputFlags()...)
	argv = append(argv, "-i", g.Templates.Lst, "-c", "copy")
	argv = append(argv, formatFlags()...)
	argv = append(argv, g.Templates.Cat)

	res, _, stderr, err := o.runSingle(ctx, argv, g.ID)
	if err != nil {
		return &StageError{Stage: "concat", ExitCode: ExitGroupingFailure, Err: err}
	}
	if err := checkResult(res, stderr); err != nil {
		return &StageError{Stage: "concat", ExitCode: ExitGroupingFailure, Err: err}
	}
	return nil
}

// Segment splits g.Templates.Cat into exactly four equal-duration
// stream-copy segments (spec.md section 4.4's chaining rule), using a
// single worker with four output-side -ss/-t groups in one ffmpeg
// invocation.
func (o *Orchestrator) Segment(ctx context.Context, g *job.SourceGroup) error {
	argv := []string{o.Toolchain.FFmpegPath}
	argv = append(argv, startFlags()...)
	argv = append(argv, inputInitFlags()...)
	argv = append(argv, "-i", g.Templates.Cat)

	length := g.SegmentLengthS
	for i := 0; i < 4; i++ {
		start := strconv.Itoa(i * length)
		argv = append(argv, "-ss", start, "-t", strconv.Itoa(length), "-c", "copy")
		argv = append(argv, formatFlags()...)
		argv = append(argv, g.Templates.Tmp[i])
	}

	res, _, stderr, err := o.runSingle(ctx, argv, g.ID)
	if err != nil {
		return &StageError{Stage: "segment", ExitCode: ExitSegmentFailure, Err: err}
	}
	if err := checkResult(res, stderr); err != nil {
		return &StageError{Stage: "segment", ExitCode: ExitSegmentFailure, Err: err}
	}
	return nil
}

// InterpParams carries the per-pass knobs Interp needs beyond what a
// ChildRecord's StageParams holds on its own.
type InterpParams struct {
	Stage        string // "interp-up" | "interp-down"
	DecimationMax  int
	DecimationFrac float64
	TargetFPS      float64
	AltAlgorithm   bool
	HQMixer        bool // only consulted on the up-pass
}

// Interp runs one interpolation pass (up or down) with exactly four
// parallel workers, per spec.md section 4.4/4.5. It returns the aggregated
// drop+dup frame count observed across the four workers, which the caller
// carries forward into the Job's job-wide dropdups counter per spec.md
// section 5.
func (o *Orchestrator) Interp(ctx context.Context, g *job.SourceGroup, p InterpParams, restart watchdog.RestartFunc) (uint64, error) {
	exitCode := ExitInterpUpFailure
	var sourceSlots, targetSlots, progressSlots [4]string
	if p.Stage == "interp-up" {
		sourceSlots, targetSlots, progressSlots = g.Templates.Tmp, g.Templates.Iup, g.Templates.Prgu
	} else {
		exitCode = ExitInterpDnFailure
		sourceSlots, targetSlots, progressSlots = g.Templates.Iup, g.Templates.Idn, g.Templates.Prgd
	}

	workers := make([]*watchdog.Worker, 0, 4)
	for slot := 0; slot < 4; slot++ {
		argv := o.buildInterpArgv(sourceSlots[slot], targetSlots[slot], progressSlots[slot], p)
		pid, done, err := supervisor.Spawn(ctx, o.Registry, o.Log, argv, g.ID)
		if err != nil {
			return 0, &StageError{Stage: p.Stage, ExitCode: exitCode, Err: err}
		}
		o.Registry.Get(pid).StageParams = &registry.StageParams{
			DecimationMax:  p.DecimationMax,
			DecimationFrac: p.DecimationFrac,
			TargetFPS:      p.TargetFPS,
			SourceSlot:     slot,
			TargetSlot:     slot,
			AltAlgorithm:   p.AltAlgorithm,
			Stage:          p.Stage,
		}
		o.Registry.Get(pid).ProgressPath = progressSlots[slot]
		o.Registry.Get(pid).SourceTemplate = sourceSlots[slot]
		o.Registry.Get(pid).TargetTemplate = targetSlots[slot]
		workers = append(workers, &watchdog.Worker{PID: pid, GID: g.ID, Slot: slot, ProgressPath: progressSlots[slot], Done: done})
	}

	outcomes, err := watchdog.Run(ctx, o.Registry, o.Log, workers, restart)
	if err != nil {
		return 0, &StageError{Stage: p.Stage, ExitCode: exitCode, Err: err}
	}

	for _, oc := range outcomes {
		if oc.ExitCode != 0 {
			return 0, &StageError{Stage: p.Stage, ExitCode: exitCode, Err: fmt.Errorf("slot %d: exit %d: %s", oc.Slot, oc.ExitCode, oc.ErrorMsg)}
		}
		for _, line := range oc.Stderr {
			lower := strings.ToLower(line)
			if strings.Contains(lower, "error") || strings.Contains(lower, "critical") {
				return 0, &StageError{Stage: p.Stage, ExitCode: exitCode, Err: fmt.Errorf("slot %d: error-classed stderr: %s", oc.Slot, line)}
			}
		}
	}

	var dropdups uint64
	for _, path := range progressSlots {
		frame, err := progress.ReadLast(path)
		if err != nil {
			continue
		}
		dropdups += uint64(frame.DropFrames) + uint64(frame.DupFrames)
	}

	return dropdups, nil
}

// RestartWorker rebuilds argv for a stalled interpolation worker with the
// alt-algorithm filter family toggled on and spawns its replacement,
// reusing the same source/target/progress templates and slot. This is the
// >17-strike rung of the Watchdog's ladder (spec.md section 4.3 step 6).
func (o *Orchestrator) RestartWorker(ctx context.Context, gid int, rec *registry.ChildRecord) (*watchdog.Worker, error) {
	sp := rec.StageParams
	if sp == nil {
		return nil, fmt.Errorf("orchestrator: restart requested for pid %d with no StageParams", rec.PID)
	}
	argv := o.buildInterpArgv(rec.SourceTemplate, rec.TargetTemplate, rec.ProgressPath, InterpParams{
		Stage:          sp.Stage,
		DecimationMax:  sp.DecimationMax,
		DecimationFrac: sp.DecimationFrac,
		TargetFPS:      sp.TargetFPS,
		AltAlgorithm:   true,
		HQMixer:        false,
	})
	pid, done, err := supervisor.Spawn(ctx, o.Registry, o.Log, argv, gid)
	if err != nil {
		return nil, err
	}
	newRec := o.Registry.Get(pid)
	newRec.StageParams = &registry.StageParams{
		DecimationMax:  sp.DecimationMax,
		DecimationFrac: sp.DecimationFrac,
		TargetFPS:      sp.TargetFPS,
		SourceSlot:     sp.SourceSlot,
		TargetSlot:     sp.TargetSlot,
		AltAlgorithm:   true,
		Stage:          sp.Stage,
	}
	newRec.ProgressPath = rec.ProgressPath
	newRec.SourceTemplate = rec.SourceTemplate
	newRec.TargetTemplate = rec.TargetTemplate
	return &watchdog.Worker{PID: pid, GID: gid, Slot: sp.SourceSlot, ProgressPath: rec.ProgressPath, Done: done}, nil
}

func (o *Orchestrator) buildInterpArgv(source, target, progressPath string, p InterpParams) []string {
	g := filter.New()
	g.In(filter.EvenDimensions)
	g.Decimate(p.DecimationMax, p.DecimationFrac)
	if p.Stage == "interp-up" {
		g.Interp(filter.MixerUp(p.HQMixer, p.AltAlgorithm, p.TargetFPS))
	} else {
		g.Interp(filter.MixerDown(p.AltAlgorithm, p.TargetFPS))
	}
	g.Out(filter.OutputScale)

	argv := []string{o.Toolchain.FFmpegPath}
	argv = append(argv, startFlags()...)
	argv = append(argv, inputInitFlags()...)
	argv = append(argv, "-i", source, "-vf", g.Render())
	argv = append(argv, progressFlags(progressPath)...)
	argv = append(argv, interpCodecFlags()...)
	argv = append(argv, formatFlags()...)
	argv = append(argv, target)
	return argv
}

// AssembleParams carries what the final assemble stage needs beyond the
// SourceGroup's own templates.
type AssembleParams struct {
	TargetFPS    float64
	UseHQFilter  bool // driven by the job-wide dropdups carry, SPEC_FULL.md section 9
	SplitVoice   bool
	MainChannels int
	HasVoice     bool
}

// Assemble produces the single final container at outputPath from every
// SourceGroup's four interp-down outputs, in group order, and, if
// split-voice is enabled and a second audio stream was detected, a sibling
// .wav carrying the upgraded-to-stereo voice channel. Per spec.md section
// 4.4, assemble(params) takes no gid — it runs once per job, not once per
// group, unlike concat/segment/interp — so it is spawned under gid 0, the
// same "no group ownership" convention Probe uses.
func (o *Orchestrator) Assemble(ctx context.Context, groups []*job.SourceGroup, outputPath string, p AssembleParams) error {
	vf := filter.AssembleFilter(p.UseHQFilter, p.TargetFPS)

	argv := []string{o.Toolchain.FFmpegPath}
	argv = append(argv, startFlags()...)
	argv = append(argv, inputInitFlags()...)
	n := 0
	for _, g := range groups {
		for _, idn := range g.Templates.Idn {
			argv = append(argv, "-i", idn)
			n++
		}
	}
	argv = append(argv, "-filter_complex", fmt.Sprintf("concat=n=%d:v=1:a=0", n), "-vf", vf)
	argv = append(argv, finalCodecFlags()...)
	argv = append(argv, audioMapArgs(p.MainChannels, p.MainChannels > 0)...)
	argv = append(argv, formatFlags()...)
	argv = append(argv, outputPath)

	res, _, stderr, err := o.runSingle(ctx, argv, 0)
	if err != nil {
		return &StageError{Stage: "assemble", ExitCode: ExitAssembleFailure, Err: err}
	}
	if err := checkResult(res, stderr); err != nil {
		return &StageError{Stage: "assemble", ExitCode: ExitAssembleFailure, Err: err}
	}

	if p.SplitVoice && p.HasVoice {
		wavPath := strings.TrimSuffix(outputPath, ".mkv") + ".wav"
		wavArgv := []string{o.Toolchain.FFmpegPath}
		wavArgv = append(wavArgv, startFlags()...)
		wavArgv = append(wavArgv, inputInitFlags()...)
		wavArgv = append(wavArgv, "-i", outputPath, "-map", "0:a:1", "-c:a", "pcm_s24le", "-ac", "2", wavPath)
		res, _, stderr, err := o.runSingle(ctx, wavArgv, 0)
		if err != nil {
			return &StageError{Stage: "assemble", ExitCode: ExitAssembleFailure, Err: err}
		}
		if err := checkResult(res, stderr); err != nil {
			return &StageError{Stage: "assemble", ExitCode: ExitAssembleFailure, Err: err}
		}
	}
	return nil
}
