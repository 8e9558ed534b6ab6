// Package ffmpeg resolves the ffmpeg/ffprobe binaries, runs the preflight
// capability check, and exposes the small set of facilities the Orchestrator
// and Planner need (binary paths, detected skills, input/output path
// validation) as one
// object threaded explicitly through the pipeline — the Job context object
// of spec.md section 9's design note, scoped to the encoder toolchain.
//
// Grounded on the teacher's internal/ffmpeg.go: binary resolution via
// exec.LookPath, an input/output Validator pair, and a Skills() accessor are
// all kept; the process/parse sub-wiring is dropped in favor of this
// module's own internal/supervisor and internal/ffmpeg/progress packages,
// which implement a materially different contract (one-shot stage workers,
// not a long-lived reconnecting stream).
package ffmpeg

import (
	"fmt"
	"os/exec"

	"github.com/kestrelwave/frameforge/internal/ffmpeg/skills"
	"github.com/kestrelwave/frameforge/internal/ffmpeg/validator"
)

// Toolchain resolves and preflight-checks the external ffmpeg/ffprobe
// binaries once at startup.
type Toolchain struct {
	FFmpegPath  string
	FFprobePath string
	Skills      skills.Skills

	validatorIn  validator.Validator
	validatorOut validator.Validator
}

// Config configures Resolve.
type Config struct {
	FFmpegBinary  string // defaults to "ffmpeg"
	FFprobeBinary string // defaults to "ffprobe"
	AllowInput    []string
	BlockInput    []string
	AllowOutput   []string
	BlockOutput   []string
}

// Resolve looks up both binaries on PATH, runs the skills preflight check,
// and builds the path validators. Any failure here is a pre-flight error
// (spec.md section 7, exit 3) that must occur before any child is spawned.
func Resolve(cfg Config) (*Toolchain, error) {
	ffmpegBin := cfg.FFmpegBinary
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	ffprobeBin := cfg.FFprobeBinary
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(ffmpegBin)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: binary %q not found: %w", ffmpegBin, err)
	}
	ffprobePath, err := exec.LookPath(ffprobeBin)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: binary %q not found: %w", ffprobeBin, err)
	}

	sk, err := skills.New(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: skills probe: %w", err)
	}
	if err := sk.Check(); err != nil {
		return nil, err
	}

	vIn, err := validator.New(cfg.AllowInput, cfg.BlockInput)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: input validator: %w", err)
	}
	vOut, err := validator.New(cfg.AllowOutput, cfg.BlockOutput)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: output validator: %w", err)
	}

	return &Toolchain{
		FFmpegPath:   ffmpegPath,
		FFprobePath:  ffprobePath,
		Skills:       sk,
		validatorIn:  vIn,
		validatorOut: vOut,
	}, nil
}

// ValidateInput reports whether path is an eligible -i argument.
func (t *Toolchain) ValidateInput(path string) bool {
	return t.validatorIn.IsValid(path)
}

// ValidateOutput reports whether path is an eligible -o argument.
func (t *Toolchain) ValidateOutput(path string) bool {
	return t.validatorOut.IsValid(path)
}

// InputRejectReason explains why path failed ValidateInput. Empty if path is
// valid.
func (t *Toolchain) InputRejectReason(path string) string {
	return t.validatorIn.Reason(path)
}

// OutputRejectReason explains why path failed ValidateOutput. Empty if path
// is valid.
func (t *Toolchain) OutputRejectReason(path string) string {
	return t.validatorOut.Reason(path)
}
