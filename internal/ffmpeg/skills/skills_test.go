package skills

import "testing"

func TestParseVersion(t *testing.T) {
	data := []byte(`ffmpeg version 6.1.1-static https://johnvansickle.com/ffmpeg/
built with gcc 12 (Debian 12.2.0-14)
configuration: --enable-gpl --enable-version3
libavutil      58. 29.100
`)
	f := parseVersion(data)
	if f.Version != "6.1.1-static" {
		t.Errorf("Version = %q, want 6.1.1-static", f.Version)
	}
	if f.Compiler != "gcc 12 (Debian 12.2.0-14)" {
		t.Errorf("Compiler = %q", f.Compiler)
	}
	if f.Configuration != "--enable-gpl --enable-version3" {
		t.Errorf("Configuration = %q", f.Configuration)
	}
}

func TestParseFilters(t *testing.T) {
	data := []byte(` ... mpdecimate        V->V       Remove near-duplicate frames.
 T.C minterpolate      V->V       Frame rate conversion using motion interpolation.
 ... scale             V->V       Scale the input video size and/or convert the image format.
`)
	filters := parseFilters(data)
	if len(filters) != 3 {
		t.Fatalf("parsed %d filters, want 3", len(filters))
	}
	if filters[0].Id != "mpdecimate" {
		t.Errorf("filters[0].Id = %q, want mpdecimate", filters[0].Id)
	}
	if filters[1].Id != "minterpolate" {
		t.Errorf("filters[1].Id = %q, want minterpolate", filters[1].Id)
	}
}

func TestParseCodecs(t *testing.T) {
	data := []byte(` DEV.LS h264                 H.264 / AVC / MPEG-4 AVC (decoders: h264 h264_v4l2m2m ) (encoders: h264_nvenc )
 D.A.L. aac                  AAC (Advanced Audio Coding)
`)
	codecs := parseCodecs(data)
	if len(codecs.Video) != 1 {
		t.Fatalf("parsed %d video codecs, want 1", len(codecs.Video))
	}
	v := codecs.Video[0]
	if v.Id != "h264" {
		t.Errorf("Id = %q, want h264", v.Id)
	}
	found := false
	for _, e := range v.Encoders {
		if e == "h264_nvenc" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected h264_nvenc among encoders, got %v", v.Encoders)
	}
	if len(codecs.Audio) != 1 || codecs.Audio[0].Id != "aac" {
		t.Errorf("audio codecs = %v, want one entry aac", codecs.Audio)
	}
}

func TestParseHWAccels(t *testing.T) {
	data := []byte(`Hardware acceleration methods:
vdpau
cuda
vaapi
`)
	accels := parseHWAccels(data)
	if len(accels) != 3 {
		t.Fatalf("parsed %d hwaccels, want 3", len(accels))
	}
	if accels[1].Id != "cuda" {
		t.Errorf("accels[1].Id = %q, want cuda", accels[1].Id)
	}
}

func TestSkills_HasFilterAndEncoder(t *testing.T) {
	s := Skills{Filters: []Filter{{Id: "mpdecimate"}, {Id: "scale"}}}
	s.Codecs.Video = []Codec{{Id: "h264", Encoders: []string{"h264_nvenc", "libx264"}}}

	if !s.HasFilter("mpdecimate") {
		t.Error("expected mpdecimate to be detected")
	}
	if s.HasFilter("minterpolate") {
		t.Error("did not expect minterpolate to be detected")
	}
	if !s.HasVideoEncoder("h264_nvenc") {
		t.Error("expected h264_nvenc to be detected")
	}
	if s.HasVideoEncoder("utvideo") {
		t.Error("did not expect utvideo to be detected")
	}
}

func TestSkills_Check(t *testing.T) {
	full := Skills{
		Filters: []Filter{{Id: "mpdecimate"}, {Id: "minterpolate"}, {Id: "scale"}, {Id: "fps"}},
	}
	full.Codecs.Video = []Codec{
		{Id: "utvideo", Encoders: []string{"utvideo"}},
		{Id: "h264", Encoders: []string{"h264_nvenc"}},
	}
	if err := full.Check(); err != nil {
		t.Errorf("Check() on a complete Skills returned %v", err)
	}

	partial := Skills{Filters: []Filter{{Id: "scale"}}}
	if err := partial.Check(); err == nil {
		t.Error("Check() on an incomplete Skills should return an error")
	}
}
