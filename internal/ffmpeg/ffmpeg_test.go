package ffmpeg

import (
	"testing"

	"github.com/kestrelwave/frameforge/internal/ffmpeg/validator"
)

func TestResolve_MissingBinary(t *testing.T) {
	_, err := Resolve(Config{FFmpegBinary: "frameforge-definitely-not-a-real-binary"})
	if err == nil {
		t.Error("expected an error when the ffmpeg binary cannot be found on PATH")
	}
}

func TestToolchain_ValidateInputOutput(t *testing.T) {
	vIn, err := validator.New([]string{`\.mp4$`}, nil)
	if err != nil {
		t.Fatalf("validator.New: %v", err)
	}
	vOut, err := validator.New(nil, []string{`\.tmp$`})
	if err != nil {
		t.Fatalf("validator.New: %v", err)
	}
	tc := &Toolchain{validatorIn: vIn, validatorOut: vOut}

	if !tc.ValidateInput("/in/video.mp4") {
		t.Error("ValidateInput(\"/in/video.mp4\") = false, want true")
	}
	if tc.ValidateInput("/in/video.mkv") {
		t.Error("ValidateInput(\"/in/video.mkv\") = true, want false (not allow-listed)")
	}
	if !tc.ValidateOutput("/out/video.mkv") {
		t.Error("ValidateOutput(\"/out/video.mkv\") = false, want true")
	}
	if tc.ValidateOutput("/out/video.tmp") {
		t.Error("ValidateOutput(\"/out/video.tmp\") = true, want false (block-listed)")
	}
}
