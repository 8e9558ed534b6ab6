// Package filter builds ffmpeg filter-graphs with a typed, labeled builder
// instead of string concatenation, per spec.md section 9's design note:
// "build filter graphs with an explicit typed builder (labels in, decim,
// middle, interp, out) and render once per stage; do not build argv by
// concatenation in several places."
//
// Grounded on AsmirZukic-go_encoder/command/video/video_builder.go's
// fluent-builder shape (chained Set/Add methods, a single BuildArgs/String
// render step at the end), adapted from a flat CPU/GPU filter list to the
// spec's five named stages.
package filter

import (
	"fmt"
	"strings"
)

// Stage is one of the five labeled points in the interpolation filter
// graph (spec.md section 9).
type Stage string

const (
	StageIn     Stage = "in"
	StageDecim  Stage = "decim"
	StageMiddle Stage = "middle"
	StageInterp Stage = "interp"
	StageOut    Stage = "out"
)

var stageOrder = []Stage{StageIn, StageDecim, StageMiddle, StageInterp, StageOut}

// Graph accumulates filters for each labeled stage and renders them, in
// stage order, as a single comma-joined -vf argument.
type Graph struct {
	stages map[Stage][]string
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{stages: make(map[Stage][]string)}
}

// Add appends one filter expression to a named stage and returns the Graph
// for chaining.
func (g *Graph) Add(stage Stage, expr string) *Graph {
	if expr == "" {
		return g
	}
	g.stages[stage] = append(g.stages[stage], expr)
	return g
}

// In appends a common-prefix filter (even dimensions, full-range scaling).
func (g *Graph) In(expr string) *Graph { return g.Add(StageIn, expr) }

// Decimate appends the mpdecimate filter for this stage, parameterised per
// spec.md section 4.4.
func (g *Graph) Decimate(max int, frac float64) *Graph {
	return g.Add(StageDecim, fmt.Sprintf("mpdecimate=max=%d:frac=%.4f", max, frac))
}

// Middle appends a filter that runs between decimation and interpolation
// (currently unused by any stage but named so a future stage has a home
// without re-shaping the graph).
func (g *Graph) Middle(expr string) *Graph { return g.Add(StageMiddle, expr) }

// Interp appends the interpolation filter proper.
func (g *Graph) Interp(expr string) *Graph { return g.Add(StageInterp, expr) }

// Out appends a final output-scaling filter.
func (g *Graph) Out(expr string) *Graph { return g.Add(StageOut, expr) }

// Render joins every stage's filters, in fixed stage order, into one -vf
// string. An empty Graph renders to "".
func (g *Graph) Render() string {
	var parts []string
	for _, st := range stageOrder {
		parts = append(parts, g.stages[st]...)
	}
	return strings.Join(parts, ",")
}

// MixerUp returns the up-pass interpolation filter expression (source→iup).
// hq selects the high-quality libplacebo-family mixer used when
// source_fps > target_max_fps; the no-mixer variant is a bare fps filter.
// alt selects the classic motion-compensated minterpolate family instead.
func MixerUp(hq, alt bool, targetMaxFPS float64) string {
	switch {
	case alt:
		return fmt.Sprintf("minterpolate=fps=%.4f:mi_mode=dup", targetMaxFPS)
	case hq:
		return fmt.Sprintf("libplacebo=fps=%.4f:frame_mixer=mitchell", targetMaxFPS)
	default:
		return fmt.Sprintf("fps=%.4f:round=near", targetMaxFPS)
	}
}

// MixerDown returns the down-pass interpolation filter expression
// (iup→idn), always high-quality unless alt selects the classic family.
func MixerDown(alt bool, targetFPS float64) string {
	if alt {
		return fmt.Sprintf("minterpolate=fps=%.4f:mi_mode=bidir:mc_mode=aobmc:vsbmc=1", targetFPS)
	}
	return fmt.Sprintf("libplacebo=fps=%.4f:frame_mixer=mitchell", targetFPS)
}

// AssembleFilter returns the final-assemble filter expression. hq is chosen
// by the caller from the job-wide dropdups carry (SPEC_FULL.md section 9).
func AssembleFilter(hq bool, targetFPS float64) string {
	base := fmt.Sprintf("fps=%.4f:round=near", targetFPS)
	if !hq {
		return base
	}
	return fmt.Sprintf("libplacebo=fps=%.4f:frame_mixer=mitchell,%s", targetFPS, base)
}

// EvenDimensions is the common "in" prefix enforcing even width/height.
const EvenDimensions = "scale=trunc(iw/2)*2:trunc(ih/2)*2:flags=lanczos:in_range=pc:out_range=pc"

// OutputScale is the common "out" suffix preserving full chroma and
// accurate rounding.
const OutputScale = "scale=out_color_matrix=bt709:out_range=pc,format=yuv444p"
