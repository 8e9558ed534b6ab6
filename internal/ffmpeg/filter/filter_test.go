package filter

import (
	"strings"
	"testing"
)

func TestGraph_RenderOrdersByStage(t *testing.T) {
	g := New()
	g.Out("out-filter")
	g.Interp("interp-filter")
	g.In("in-filter")
	g.Decimate(10, 0.5)

	got := g.Render()
	want := "in-filter,mpdecimate=max=10:frac=0.5000,interp-filter,out-filter"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestGraph_Render_Empty(t *testing.T) {
	if got := New().Render(); got != "" {
		t.Errorf("Render() on empty graph = %q, want empty string", got)
	}
}

func TestGraph_Add_SkipsEmptyExpression(t *testing.T) {
	g := New()
	g.In("")
	g.Out("scale")
	if got := g.Render(); got != "scale" {
		t.Errorf("Render() = %q, want %q", got, "scale")
	}
}

func TestMixerUp(t *testing.T) {
	tests := []struct {
		name string
		hq   bool
		alt  bool
		want string
	}{
		{"alt wins over hq", true, true, "minterpolate=fps=60.0000:mi_mode=dup"},
		{"hq without alt", true, false, "libplacebo=fps=60.0000:frame_mixer=mitchell"},
		{"neither", false, false, "fps=60.0000:round=near"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MixerUp(tt.hq, tt.alt, 60)
			if got != tt.want {
				t.Errorf("MixerUp(%v,%v,60) = %q, want %q", tt.hq, tt.alt, got, tt.want)
			}
		})
	}
}

func TestMixerDown(t *testing.T) {
	if got := MixerDown(true, 30); !strings.HasPrefix(got, "minterpolate=") {
		t.Errorf("MixerDown(alt=true) = %q, want minterpolate family", got)
	}
	if got := MixerDown(false, 30); !strings.HasPrefix(got, "libplacebo=") {
		t.Errorf("MixerDown(alt=false) = %q, want libplacebo family", got)
	}
}

func TestAssembleFilter(t *testing.T) {
	if got := AssembleFilter(false, 30); got != "fps=30.0000:round=near" {
		t.Errorf("AssembleFilter(false, 30) = %q", got)
	}
	got := AssembleFilter(true, 30)
	if !strings.Contains(got, "libplacebo=") || !strings.Contains(got, "fps=30.0000:round=near") {
		t.Errorf("AssembleFilter(true, 30) = %q, want both libplacebo and fps stages", got)
	}
}
