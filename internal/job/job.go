// Package job holds the data model shared by the Planner, Orchestrator and
// Watchdog: Source, SourceGroup and Job, plus the pure filename-template
// functions that make every temporary artifact path a function of
// (gid, main pid, slot).
package job

import (
	"github.com/lithammer/shortuuid/v4"
)

// Source is an input video path with probe-derived attributes. Immutable
// once the Planner has probed it.
type Source struct {
	Path             string
	Directory        string
	DurationS        float64
	AvgFPS           float64
	BitrateBPS       int64
	StreamCount      int
	ChannelsPerStream []int
	CodecPerStream    []string
	CodecTypePerStream []string // "video" | "audio" | "subtitle" | ...
}

// SourceGroup is a maximal contiguous run of Sources sharing codec layout,
// channel count, and (absent a global temp dir) directory.
type SourceGroup struct {
	ID              int
	Directory       string
	TotalDurationS  float64
	MaxFPS          float64 // computed ceiling for the up-pass, per spec.md section 4.4
	TargetFPS       float64 // computed target for the down-pass, per spec.md section 4.4
	SegmentLengthS  int     // floor(1 + total_duration/4), per spec.md section 4.4
	SourceIDs       []int

	Templates Templates
}

// Job is the validated, immutable description of one transcoding run.
type Job struct {
	RunID         string // short-uuid, log correlation only — see SPEC_FULL.md section 3
	MainPID       int
	OutputPath    string
	TempDir       string // optional; empty means "use each source's own directory"
	SplitVoice    bool
	ForceUpgrade  bool
	UserMaxFPS    int // 0 means "not set"
	UserTargetFPS int // 0 means "not set"
	SourceGroups  []*SourceGroup
	Sources       []*Source

	// dropdups is the accumulated drop+dup frame counter observed across
	// every SourceGroup's interpolation stages, for the whole job.
	// Monotonically non-decreasing, write-once-per-stage (spec.md section 5;
	// SPEC_FULL.md section 9 resolves the scope as job-wide, not per-group:
	// the final assemble stage runs once across every group, so the filter
	// decision it feeds must see drop/dup frames observed anywhere in the
	// job, not just in the group that happened to produce them).
	dropdups uint64
}

// AddDropdups advances the job's monotonic dropdups counter.
func (j *Job) AddDropdups(delta uint64) {
	j.dropdups += delta
}

// Dropdups returns the current accumulated drop+dup frame count across every
// SourceGroup's interpolation stages.
func (j *Job) Dropdups() uint64 {
	return j.dropdups
}

// New creates an empty Job stamped with the current process id and a fresh
// run id. Planner.Plan populates the rest.
func New(mainPID int) *Job {
	return &Job{
		RunID:   shortuuid.New(),
		MainPID: mainPID,
	}
}
