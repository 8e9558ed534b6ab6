// Command frameforge is a batch interpolating video transcoder: it probes
// a set of inputs, plans SourceGroups and fps targets, then drives ffmpeg
// through concat/segment/interpolate-up/interpolate-down/assemble stages
// under a supervised, watchdog-monitored worker pool.
//
// Grounded on the teacher's cmd/server/main.go for the "parse flags, wire
// components, run, map errors to a process exit code" shape, generalized
// from an HTTP server's listen loop to this module's stage pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kestrelwave/frameforge/internal/config"
	"github.com/kestrelwave/frameforge/internal/deathlevel"
	"github.com/kestrelwave/frameforge/internal/ffmpeg"
	"github.com/kestrelwave/frameforge/internal/job"
	"github.com/kestrelwave/frameforge/internal/logger"
	"github.com/kestrelwave/frameforge/internal/orchestrator"
	"github.com/kestrelwave/frameforge/internal/planner"
	"github.com/kestrelwave/frameforge/internal/registry"
	"github.com/kestrelwave/frameforge/internal/watchdog"
)

const version = "frameforge 1.0.0"

// Exit codes, per spec.md section 6/7.
const (
	exitOK            = 0
	exitGeneric       = 1
	exitUsage         = 2
	exitMissingTool   = 3
	exitWorkerCrash   = 23
	exitInterrupted   = 42
	exitCatastrophic  = 43
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cli, err := config.ParseArgs(argv)
	if err != nil {
		return exitUsage
	}
	if cli.ShowVersion {
		fmt.Println(version)
		return exitOK
	}
	if cli.ShowHelp {
		return exitOK
	}

	if err := cli.ValidatePaths(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	fileCfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	applyConfigDefaults(cli, fileCfg)

	log, err := logger.New(strings.TrimSuffix(cli.Output, ".mkv") + ".log")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGeneric
	}
	defer log.Close()

	tc, err := ffmpeg.Resolve(ffmpeg.Config{
		FFmpegBinary:  fileCfg.FFmpeg.Binary,
		FFprobeBinary: fileCfg.FFmpeg.ProbeBinary,
		AllowInput:    fileCfg.FFmpeg.AllowInputs,
		BlockInput:    fileCfg.FFmpeg.BlockInputs,
		AllowOutput:   fileCfg.FFmpeg.AllowOutputs,
		BlockOutput:   fileCfg.FFmpeg.BlockOutputs,
	})
	if err != nil {
		log.Error("preflight: %v", err)
		return exitMissingTool
	}

	death := deathlevel.New()
	stop := death.Watch()
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.New()
	// Carry the signal-driven death level into the registry, where the
	// supervisors and the watchdog poll it.
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reg.RaiseDeath(death.Level())
			}
		}
	}()
	pln := planner.New(tc, log)
	orc := orchestrator.New(tc, reg, log)
	cleanup := newCleanupPolicy(cli.Debug, log)

	code := runPipeline(ctx, cli, pln, orc, reg, log, death, cleanup)

	if death.Level() >= 5 {
		log.Error("catastrophic self-kill requested")
		return exitCatastrophic
	}
	if death.Level() >= 1 && code == exitOK {
		watchdog.FinalDrain(reg, log)
		log.Status("interrupted, graceful teardown complete")
		return exitInterrupted
	}
	return code
}

// applyConfigDefaults layers the YAML config beneath explicitly-set CLI
// flags, per spec.md section 6: a flag wins only if the user actually set
// it (sentinel -1 for the fps overrides, which ParseArgs defaults to).
func applyConfigDefaults(cli *config.CLI, fileCfg *config.Job) {
	if cli.TempDir == "" {
		cli.TempDir = fileCfg.TempDir
	}
	if cli.MaxFPS < 1 {
		cli.MaxFPS = fileCfg.MaxFPS
	}
	if cli.TargetFPS < 1 {
		cli.TargetFPS = fileCfg.TargetFPS
	}
}

func runPipeline(ctx context.Context, cli *config.CLI, pln *planner.Planner, orc *orchestrator.Orchestrator, reg *registry.Registry, log logger.Logger, death *deathlevel.Tracker, cleanup *cleanupPolicy) int {
	j, err := pln.Plan(cli, os.Getpid())
	if err != nil {
		log.Error("plan: %v", err)
		return exitGeneric
	}
	log.Status("planned job %s: %d source(s), %d group(s)", j.RunID, len(j.Sources), len(j.SourceGroups))

	for _, g := range j.SourceGroups {
		if err := runGroup(ctx, orc, g, j); err != nil {
			se, _ := err.(*orchestrator.StageError)
			log.Error("group %d: %v", g.ID, err)
			if death.Level() >= 1 {
				return exitOK // caller maps to exitInterrupted
			}
			if se != nil {
				return se.ExitCode
			}
			return exitWorkerCrash
		}
	}

	if err := assembleJob(ctx, orc, j); err != nil {
		se, _ := err.(*orchestrator.StageError)
		log.Error("assemble: %v", err)
		if death.Level() >= 1 {
			return exitOK // caller maps to exitInterrupted
		}
		if se != nil {
			return se.ExitCode
		}
		return exitWorkerCrash
	}

	for _, g := range j.SourceGroups {
		cleanup.clean(g)
	}

	log.Status("Program finished")
	return exitOK
}

// runGroup drives concat/segment/interp-up/interp-down for one SourceGroup.
// assemble is not part of this loop: spec.md section 4.4 gives it no gid, so
// it runs once per job, across every group's outputs (assembleJob).
func runGroup(ctx context.Context, orc *orchestrator.Orchestrator, g *job.SourceGroup, j *job.Job) error {
	if err := orc.Concat(ctx, g, j); err != nil {
		return err
	}
	if err := orc.Segment(ctx, g); err != nil {
		return err
	}

	restart := makeRestarter(ctx, orc, g.ID)
	hqMixer := false
	for _, id := range g.SourceIDs {
		if j.Sources[id].AvgFPS > g.MaxFPS {
			hqMixer = true
		}
	}
	dropdupsUp, err := orc.Interp(ctx, g, orchestrator.InterpParams{
		Stage:          "interp-up",
		DecimationMax:  0,
		DecimationFrac: 0.33,
		TargetFPS:      g.MaxFPS,
		HQMixer:        hqMixer,
	}, restart)
	if err != nil {
		return err
	}
	j.AddDropdups(dropdupsUp)

	dropdupsDown, err := orc.Interp(ctx, g, orchestrator.InterpParams{
		Stage:     "interp-down",
		TargetFPS: g.TargetFPS,
	}, restart)
	if err != nil {
		return err
	}
	j.AddDropdups(dropdupsDown)

	return nil
}

// assembleJob runs the single, job-wide assemble stage: spec.md section 4.4
// names it assemble(params) with no gid, chaining every group's four
// interp-down outputs, in group order, into the one configured -o path, and
// using the job-wide observed dropdups (not any one group's) to pick the
// high-quality filter (SPEC_FULL.md section 9's resolution of this spec
// ambiguity).
func assembleJob(ctx context.Context, orc *orchestrator.Orchestrator, j *job.Job) error {
	targetFPS := 0.0
	for _, g := range j.SourceGroups {
		if g.TargetFPS > targetFPS {
			targetFPS = g.TargetFPS
		}
	}

	mainChannels := 0
	hasVoice := false
	if len(j.Sources) > 0 {
		src := j.Sources[0]
		for i, t := range src.CodecTypePerStream {
			if t != "audio" {
				continue
			}
			if mainChannels == 0 {
				mainChannels = src.ChannelsPerStream[i]
			} else {
				hasVoice = true
			}
		}
	}

	return orc.Assemble(ctx, j.SourceGroups, j.OutputPath, orchestrator.AssembleParams{
		TargetFPS:    targetFPS,
		UseHQFilter:  j.Dropdups() > 0,
		SplitVoice:   j.SplitVoice,
		MainChannels: mainChannels,
		HasVoice:     hasVoice,
	})
}

// makeRestarter closes over ctx/gid and delegates to the Orchestrator's
// alt-algorithm restart, per spec.md section 4.3's >17-strike rung.
func makeRestarter(ctx context.Context, orc *orchestrator.Orchestrator, gid int) watchdog.RestartFunc {
	return func(rec *registry.ChildRecord) (*watchdog.Worker, error) {
		return orc.RestartWorker(ctx, gid, rec)
	}
}

// cleanupPolicy is the single place debug-mode's "retain all temporaries"
// switch is consulted, per spec.md section 9's design note to route cleanup
// through one policy object rather than sprinkled if(debug) checks.
type cleanupPolicy struct {
	retain bool
	log    logger.Logger
}

func newCleanupPolicy(retain bool, log logger.Logger) *cleanupPolicy {
	return &cleanupPolicy{retain: retain, log: log}
}

// clean removes every temporary path belonging to g, or, in debug mode,
// leaves them in place and logs each retained path (spec.md section 7:
// "in debug mode all temporaries are retained and their paths logged").
func (c *cleanupPolicy) clean(g *job.SourceGroup) {
	for _, p := range g.Templates.AllPaths() {
		if p == "" {
			continue
		}
		if c.retain {
			c.log.Debug("cleanup: retaining %s", p)
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			c.log.Debug("cleanup: %s: %v", p, err)
		}
	}
}
