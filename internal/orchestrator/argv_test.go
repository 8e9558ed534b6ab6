package orchestrator

import (
	"strings"
	"testing"

	"github.com/kestrelwave/frameforge/internal/job"
)

func TestStartFlags(t *testing.T) {
	got := startFlags()
	want := []string{"-hide_banner", "-loglevel", "level+info", "-y"}
	if !equalSlices(got, want) {
		t.Errorf("startFlags() = %v, want %v", got, want)
	}
}

func TestInputInitFlags_SetsColorspace(t *testing.T) {
	got := inputInitFlags()
	if !containsArg(got, "-colorspace", "bt709") {
		t.Errorf("inputInitFlags() = %v, missing -colorspace bt709", got)
	}
	if !containsArg(got, "-color_range", "pc") {
		t.Errorf("inputInitFlags() = %v, missing -color_range pc", got)
	}
}

func TestConcatInputFlags(t *testing.T) {
	got := concatInputFlags()
	want := []string{"-f", "concat", "-safe", "0"}
	if !equalSlices(got, want) {
		t.Errorf("concatInputFlags() = %v, want %v", got, want)
	}
}

func TestFormatFlags_PixFmtIsYUV444p(t *testing.T) {
	got := formatFlags()
	if !containsArg(got, "-pix_fmt", "yuv444p") {
		t.Errorf("formatFlags() = %v, missing -pix_fmt yuv444p", got)
	}
	if !containsArg(got, "-f", "matroska") {
		t.Errorf("formatFlags() = %v, missing -f matroska", got)
	}
}

func TestInterpCodecFlags(t *testing.T) {
	got := interpCodecFlags()
	if !containsArg(got, "-codec:v", "utvideo") {
		t.Errorf("interpCodecFlags() = %v, want utvideo codec", got)
	}
}

func TestFinalCodecFlags_UsesNVENC(t *testing.T) {
	got := finalCodecFlags()
	if !containsArg(got, "-codec:v", "h264_nvenc") {
		t.Errorf("finalCodecFlags() = %v, missing h264_nvenc", got)
	}
	if !containsArg(got, "-profile:v", "high444p") {
		t.Errorf("finalCodecFlags() = %v, missing high444p profile", got)
	}
}

func TestProgressFlags(t *testing.T) {
	got := progressFlags("/tmp/progress.txt")
	want := []string{"-progress", "/tmp/progress.txt"}
	if !equalSlices(got, want) {
		t.Errorf("progressFlags() = %v, want %v", got, want)
	}
}

func TestAudioMapArgs_StereoOnly(t *testing.T) {
	got := audioMapArgs(2, true)
	if !containsArg(got, "-ac:1", "2") {
		t.Errorf("audioMapArgs(2, true) = %v, expected stereo track 1", got)
	}
	if containsArg(got, "-ac:0", "6") {
		t.Errorf("audioMapArgs(2, true) = %v, should not add a surround track", got)
	}
	if !containsArg(got, "-guess_layout_max", "0") {
		t.Errorf("audioMapArgs(2, true) = %v, expected -guess_layout_max 0 for a concrete layout", got)
	}
}

func TestAudioMapArgs_SurroundAddsSecondTrack(t *testing.T) {
	got := audioMapArgs(6, true)
	if !containsArg(got, "-ac:0", "6") {
		t.Errorf("audioMapArgs(6, true) = %v, expected a 5.1 track 0", got)
	}
	if !containsArg(got, "-metadata:s:a:0", "title=Surround") {
		t.Errorf("audioMapArgs(6, true) = %v, expected Surround metadata", got)
	}
}

func TestAudioMapArgs_NoConcreteLayoutSkipsGuessLayoutMax(t *testing.T) {
	got := audioMapArgs(0, false)
	if containsArg(got, "-guess_layout_max", "0") {
		t.Errorf("audioMapArgs(0, false) = %v, should not guess a layout that was never detected", got)
	}
}

func TestListFileContents(t *testing.T) {
	sources := []*job.Source{
		{Path: "/in/a.mp4"},
		{Path: "/in/b.mp4"},
		{Path: "/in/c.mp4"},
	}
	got := listFileContents(sources, []int{0, 2})
	want := "file '/in/a.mp4'\nfile '/in/c.mp4'\n"
	if got != want {
		t.Errorf("listFileContents() = %q, want %q", got, want)
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsArg(argv []string, flag, value string) bool {
	for i := 0; i < len(argv)-1; i++ {
		if argv[i] == flag && argv[i+1] == value {
			return true
		}
	}
	return false
}

func TestListFileContents_EmptyIDs(t *testing.T) {
	sources := []*job.Source{{Path: "/in/a.mp4"}}
	got := listFileContents(sources, nil)
	if !strings.HasPrefix(got, "") || got != "" {
		t.Errorf("listFileContents(nil) = %q, want empty string", got)
	}
}
