package orchestrator

import "github.com/kestrelwave/frameforge/internal/job"

// The flag groups below are fixed and bit-exact per spec.md section 6
// ("External encoder argv groups"). Keeping them as named functions instead
// of inlined string concatenation is the typed-argv discipline spec.md
// section 9 asks for generally, applied here to the flag groups that are
// not filter-graph strings.

func startFlags() []string {
	return []string{"-hide_banner", "-loglevel", "level+info", "-y"}
}

func inputInitFlags() []string {
	return []string{"-loglevel", "level+warning", "-nostats", "-colorspace", "bt709", "-color_range", "pc"}
}

func concatInputFlags() []string {
	return []string{"-f", "concat", "-safe", "0"}
}

func formatFlags() []string {
	return []string{"-colorspace", "bt709", "-color_range", "pc", "-pix_fmt", "yuv444p", "-f", "matroska", "-write_crc32", "0"}
}

func interpCodecFlags() []string {
	return []string{"-codec:v", "utvideo", "-pred", "median"}
}

func finalCodecFlags() []string {
	return []string{
		"-codec:v", "h264_nvenc",
		"-preset:v", "p7",
		"-tune:v", "hq",
		"-profile:v", "high444p",
		"-level:v", "5.2",
		"-rc:v", "vbr",
		"-rgb_mode", "yuv444",
		"-cq", "4",
		"-qmin", "1",
		"-qmax", "16",
		"-temporal_aq", "1",
		"-b_adapt", "0",
		"-b_ref_mode", "0",
		"-zerolatency", "1",
		"-multipass", "2",
		"-forced-idr", "1",
	}
}

// progressFlags appends ffmpeg's -progress wiring for path, writing the
// key=value frames the Watchdog tails (spec.md section 6).
func progressFlags(path string) []string {
	return []string{"-progress", path}
}

// audioMapArgs implements spec.md section 6's audio mapping rule: the main
// audio stream is always re-encoded to PCM s24le and mapped as stereo
// track 1; when the detected channel layout exceeds stereo, a second,
// 5.1-tagged track is additionally mapped as track 0 with Surround
// metadata. -guess_layout_max 0 is appended only once a concrete layout was
// detected (channels > 0).
func audioMapArgs(mainChannels int, hasConcreteLayout bool) []string {
	args := []string{
		"-map", "0:a:0",
		"-c:a:1", "pcm_s24le",
		"-ac:1", "2",
	}
	if mainChannels > 2 {
		args = append(args,
			"-map", "0:a:0",
			"-c:a:0", "pcm_s24le",
			"-ac:0", "6",
			"-metadata:s:a:0", "title=Surround",
		)
	}
	if hasConcreteLayout {
		args = append(args, "-guess_layout_max", "0")
	}
	return args
}

// listFileContents renders a concat demuxer list file (spec.md section
// 4.4's concat input group) for the sources of one SourceGroup.
func listFileContents(sources []*job.Source, ids []int) string {
	out := ""
	for _, id := range ids {
		out += "file '" + sources[id].Path + "'\n"
	}
	return out
}
