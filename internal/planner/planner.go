// Package planner implements the Job Planner (C5): turns validated CLI
// inputs into a job.Job — probing every source twice, partitioning
// SourceGroups, checking the disk-space budget, and emitting every derived
// file-name template.
//
// Grounded on spec.md section 4.5 verbatim for the five-step algorithm; the
// double-probe step is grounded on internal/ffmpeg/probe (itself grounded
// on the teacher's skills scraping style), and the disk-space query is
// wired to gopsutil/v3/disk, extending the teacher's existing gopsutil
// dependency (already used for process CPU/RSS sampling in
// internal/supervisor) to a second subpackage rather than reaching for a
// stdlib-only syscall.Statfs.
package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/kestrelwave/frameforge/internal/config"
	"github.com/kestrelwave/frameforge/internal/ffmpeg"
	"github.com/kestrelwave/frameforge/internal/ffmpeg/probe"
	"github.com/kestrelwave/frameforge/internal/job"
	"github.com/kestrelwave/frameforge/internal/logger"
)

// probeSizeCapBytes, analyzeDurationCapUS and fpsProbeSizeCapFrames bound
// the second, narrowed probe pass, per spec.md section 4.5 step 2
// ("capped at 256 MiB, 30 s, 8 × 120 frames").
const (
	probeSizeCapBytes      int64 = 256 * 1024 * 1024
	analyzeDurationCapUS   int64 = 30 * 1_000_000
	fpsProbeSizeCapFrames        = 8 * 120
)

// Planner converts a validated CLI into a job.Job.
type Planner struct {
	Toolchain *ffmpeg.Toolchain
	Log       logger.Logger
}

// New returns a Planner bound to an already-resolved ffmpeg toolchain.
func New(tc *ffmpeg.Toolchain, log logger.Logger) *Planner {
	return &Planner{Toolchain: tc, Log: log}
}

// Plan runs the full five-step Planner algorithm.
func (p *Planner) Plan(cli *config.CLI, mainPID int) (*job.Job, error) {
	if err := p.validateAddresses(cli); err != nil {
		return nil, err
	}

	j := job.New(mainPID)
	j.OutputPath = cli.Output
	j.TempDir = cli.TempDir
	j.SplitVoice = cli.SplitAudio
	j.ForceUpgrade = cli.Upgrade
	if v, ok := cli.EffectiveMaxFPS(); ok {
		j.UserMaxFPS = v
	}
	if v, ok := cli.EffectiveTargetFPS(); ok {
		j.UserTargetFPS = v
	}

	sources, err := p.probeAll(cli.Inputs)
	if err != nil {
		return nil, err
	}
	j.Sources = sources

	groups := partitionGroups(sources)
	j.SourceGroups = groups
	for _, g := range groups {
		computeFPS(g, j)
	}

	if err := p.checkDiskBudget(j); err != nil {
		return nil, err
	}

	for _, g := range j.SourceGroups {
		dir := g.Directory
		if j.TempDir != "" {
			dir = j.TempDir
		}
		g.Templates = job.BuildTemplates(dir, g.ID, mainPID)
	}

	return j, nil
}

func (p *Planner) validateAddresses(cli *config.CLI) error {
	for _, in := range cli.Inputs {
		if reason := p.Toolchain.InputRejectReason(in); reason != "" {
			return fmt.Errorf("planner: input %q rejected: %s", in, reason)
		}
	}
	if reason := p.Toolchain.OutputRejectReason(cli.Output); reason != "" {
		return fmt.Errorf("planner: output %q rejected: %s", cli.Output, reason)
	}
	return nil
}

// probeAll runs the two-pass probe of spec.md section 4.5 step 2 for every
// input, in argument order.
func (p *Planner) probeAll(inputs []string) ([]*job.Source, error) {
	sources := make([]*job.Source, 0, len(inputs))
	for _, path := range inputs {
		src, err := p.probeOne(path)
		if err != nil {
			return nil, fmt.Errorf("planner: probe %q: %w", path, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func (p *Planner) probeOne(path string) (*job.Source, error) {
	first, err := probe.Run(p.Toolchain.FFprobePath, path, nil)
	if err != nil {
		return nil, err
	}

	vs, ok := first.VideoStream()
	if !ok {
		return nil, fmt.Errorf("no video stream present")
	}
	audio := first.AudioStreams()
	if len(audio) > 2 {
		return nil, fmt.Errorf("more than two audio streams present (%d)", len(audio))
	}

	probeSize := first.BitrateBPS * int64(first.DurationS) / 8
	if probeSize <= 0 || probeSize > probeSizeCapBytes {
		probeSize = probeSizeCapBytes
	}

	second, err := probe.Run(p.Toolchain.FFprobePath, path, &probe.ProbeArgs{
		ProbeSizeBytes:     probeSize,
		AnalyzeDurationUS:  analyzeDurationCapUS,
		FPSProbeSizeFrames: fpsProbeSizeCapFrames,
	})
	if err != nil {
		return nil, err
	}

	vs2, ok := second.VideoStream()
	if !ok {
		vs2 = vs
	}
	avgFPS, err := probe.ParseAvgFPS(vs2.AvgFPS)
	if err != nil {
		return nil, fmt.Errorf("unparseable avg_frame_rate: %w", err)
	}
	if second.DurationS <= 0 {
		return nil, fmt.Errorf("unparseable duration")
	}

	src := &job.Source{
		Path:       path,
		Directory:  filepath.Dir(path),
		DurationS:  second.DurationS,
		AvgFPS:     float64(avgFPS),
		BitrateBPS: second.BitrateBPS,
		StreamCount: len(second.Streams),
	}
	for _, st := range second.Streams {
		src.ChannelsPerStream = append(src.ChannelsPerStream, st.Channels)
		src.CodecPerStream = append(src.CodecPerStream, st.CodecName)
		src.CodecTypePerStream = append(src.CodecTypePerStream, st.CodecType)
	}
	return src, nil
}

// partitionGroups implements spec.md section 4.5 step 3: a new group begins
// when directory, stream count, or any per-stream codec (in order — see
// SPEC_FULL.md section 9's resolution of the stream-order open question)
// differs from the previous source.
func partitionGroups(sources []*job.Source) []*job.SourceGroup {
	var groups []*job.SourceGroup
	var cur *job.SourceGroup
	nextID := 0

	for i, s := range sources {
		newGroup := cur == nil || !sameLayout(sources[i-1], s)
		if newGroup {
			cur = &job.SourceGroup{
				ID:        nextID,
				Directory: s.Directory,
			}
			nextID++
			groups = append(groups, cur)
		}
		cur.SourceIDs = append(cur.SourceIDs, i)
		cur.TotalDurationS += s.DurationS
		if s.AvgFPS > cur.MaxFPS {
			// Transiently holds the raw observed maximum; computeFPS below
			// overwrites this with the computed ceiling once partitioning
			// is complete.
			cur.MaxFPS = s.AvgFPS
		}
	}
	for _, g := range groups {
		g.SegmentLengthS = int(1 + g.TotalDurationS/4)
	}
	return groups
}

// computeFPS implements spec.md section 4.4's FPS determination for one
// SourceGroup, applied per-group since a SourceGroup is the spec's unit of
// segmentation (GLOSSARY): target_fps defaults to 60 if the group's
// observed max source fps >= 50 or force_upgrade is set, else 30; max_fps
// defaults to 2x target_fps but never below the observed max; a
// user-supplied maxfps only ever raises max_fps; a user-supplied targetfps
// overrides target_fps but is clamped to <= max_fps.
func computeFPS(g *job.SourceGroup, j *job.Job) {
	observedMax := g.MaxFPS

	targetFPS := 30.0
	if observedMax >= 50 || j.ForceUpgrade {
		targetFPS = 60.0
	}

	maxFPS := 2 * targetFPS
	if maxFPS < observedMax {
		maxFPS = observedMax
	}
	if j.UserMaxFPS > 0 && float64(j.UserMaxFPS) > maxFPS {
		maxFPS = float64(j.UserMaxFPS)
	}
	if j.UserTargetFPS > 0 {
		targetFPS = float64(j.UserTargetFPS)
	}
	if targetFPS > maxFPS {
		targetFPS = maxFPS
	}

	g.MaxFPS = maxFPS
	g.TargetFPS = targetFPS
}

func sameLayout(a, b *job.Source) bool {
	if a.Directory != b.Directory {
		return false
	}
	if a.StreamCount != b.StreamCount {
		return false
	}
	if len(a.CodecPerStream) != len(b.CodecPerStream) {
		return false
	}
	for i := range a.CodecPerStream {
		if a.CodecPerStream[i] != b.CodecPerStream[i] {
			return false
		}
		if a.ChannelsPerStream[i] != b.ChannelsPerStream[i] {
			return false
		}
	}
	return true
}

// sizeFactorFor interpolates the per-source disk-space multiplier of
// spec.md section 4.5 step 4: 100x at <=45 Mbit/s, 20x at >=180 Mbit/s,
// linear in between.
func sizeFactorFor(bitrateBPS int64) float64 {
	const (
		lowBPS   = 45_000_000.0
		highBPS  = 180_000_000.0
		lowFactor  = 100.0
		highFactor = 20.0
	)
	b := float64(bitrateBPS)
	if b <= lowBPS {
		return lowFactor
	}
	if b >= highBPS {
		return highFactor
	}
	frac := (b - lowBPS) / (highBPS - lowBPS)
	return lowFactor + frac*(highFactor-lowFactor)
}

// checkDiskBudget implements spec.md section 4.5 step 4.
func (p *Planner) checkDiskBudget(j *job.Job) error {
	required := map[string]float64{} // directory -> required bytes

	for _, s := range j.Sources {
		dir := s.Directory
		if j.TempDir != "" {
			dir = j.TempDir
		}
		sourceBytes := float64(s.BitrateBPS) * s.DurationS / 8
		required[dir] += sourceBytes * sizeFactorFor(s.BitrateBPS)
	}

	dirs := make([]string, 0, len(required))
	for d := range required {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		stat, err := diskUsage(dir)
		if err != nil {
			return fmt.Errorf("planner: disk usage for %q: %w", dir, err)
		}
		if required[dir] > float64(stat.Free) {
			return fmt.Errorf("planner: insufficient free space in %q: need %.0f bytes, have %d", dir, required[dir], stat.Free)
		}
	}
	return nil
}

func diskUsage(dir string) (*disk.UsageStat, error) {
	if _, err := os.Stat(dir); err != nil {
		dir = filepath.Dir(dir)
	}
	return disk.Usage(dir)
}
