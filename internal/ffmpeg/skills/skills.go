// Package skills probes an ffmpeg binary's actual capabilities and checks
// them against what this job's stage argv groups require, so a missing
// codec or filter surfaces as a pre-flight error (spec.md section 7, exit 3)
// before any child is ever spawned.
//
// Grounded on the teacher's internal/ffmpeg/skills.go: the version/filter/
// codec/hwaccel scrapers are kept close to verbatim (same regexps, same
// -codecs/-filters/-hwaccels invocations), with a new Check layer added on
// top for the preflight contract SPEC_FULL.md section 4.6 describes.
package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Codec is one entry of `ffmpeg -codecs`.
type Codec struct {
	Id       string
	Name     string
	Encoders []string
	Decoders []string
}

// Filter is one entry of `ffmpeg -filters`.
type Filter struct {
	Id   string
	Name string
}

// HWAccel is one entry of `ffmpeg -hwaccels`.
type HWAccel struct {
	Id   string
	Name string
}

type ffmpegInfo struct {
	Version       string
	Compiler      string
	Configuration string
}

// Skills is the detected capability set of one ffmpeg binary.
type Skills struct {
	FFmpeg   ffmpegInfo
	Filters  []Filter
	HWAccels []HWAccel
	Codecs   struct {
		Audio    []Codec
		Video    []Codec
		Subtitle []Codec
	}
}

// RequiredFilters are the filters Check insists on. Check requires every one
// of them, whichever interpolation branch a job ends up using; the
// libplacebo mixer of the default branch is not among them and is not
// checked.
var RequiredFilters = []string{"mpdecimate", "minterpolate", "scale", "fps"}

// RequiredVideoEncoders are the codecs named verbatim in the fixed argv
// groups of spec.md section 6.
var RequiredVideoEncoders = []string{"utvideo", "h264_nvenc"}

// New probes binary and returns its detected Skills.
func New(binary string) (Skills, error) {
	s := Skills{}

	ff, err := getVersion(binary)
	if err != nil {
		return Skills{}, fmt.Errorf("skills: can't run %s -version: %w", binary, err)
	}
	if ff.Version == "" {
		return Skills{}, fmt.Errorf("skills: can't parse %s version output", binary)
	}
	s.FFmpeg = ff
	s.Filters = getFilters(binary)
	s.HWAccels = getHWAccels(binary)
	s.Codecs = getCodecs(binary)

	return s, nil
}

// HasFilter reports whether id is among the detected filters.
func (s Skills) HasFilter(id string) bool {
	for _, f := range s.Filters {
		if f.Id == id {
			return true
		}
	}
	return false
}

// HasVideoEncoder reports whether a video codec with an encoder named id is
// available.
func (s Skills) HasVideoEncoder(id string) bool {
	for _, c := range s.Codecs.Video {
		for _, enc := range c.Encoders {
			if enc == id {
				return true
			}
		}
	}
	return false
}

// Check validates that every filter in RequiredFilters and every encoder in
// RequiredVideoEncoders is present, returning one error naming all missing
// capabilities at once so the operator sees the full shortfall in a single
// pre-flight failure rather than discovering it one stage at a time.
func (s Skills) Check() error {
	var missing []string
	for _, f := range RequiredFilters {
		if !s.HasFilter(f) {
			missing = append(missing, "filter:"+f)
		}
	}
	for _, c := range RequiredVideoEncoders {
		if !s.HasVideoEncoder(c) {
			missing = append(missing, "encoder:"+c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("skills: ffmpeg build is missing required capabilities: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getVersion(binary string) (ffmpegInfo, error) {
	cmd := exec.Command(binary, "-version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return ffmpegInfo{}, err
	}
	return parseVersion(out), nil
}

func parseVersion(data []byte) ffmpegInfo {
	f := ffmpegInfo{}
	reVersion := regexp.MustCompile(`^ffmpeg version (\S+)`)
	reCompiler := regexp.MustCompile(`(?m)^\s*built with (.*)$`)
	reConfiguration := regexp.MustCompile(`(?m)^\s*configuration: (.*)$`)

	if m := reVersion.FindSubmatch(data); m != nil {
		f.Version = string(m[1])
	}
	if m := reCompiler.FindSubmatch(data); m != nil {
		f.Compiler = string(m[1])
	}
	if m := reConfiguration.FindSubmatch(data); m != nil {
		f.Configuration = string(m[1])
	}
	return f
}

func getFilters(binary string) []Filter {
	cmd := exec.Command(binary, "-filters")
	stdout, _ := cmd.Output()
	return parseFilters(stdout)
}

func parseFilters(data []byte) []Filter {
	var filters []Filter
	re := regexp.MustCompile(`^\s[TSC.]{3} ([0-9A-Za-z_]+)\s+(?:.*?)\s+(.*)?$`)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if m := re.FindStringSubmatch(line); m != nil {
			filters = append(filters, Filter{Id: m[1], Name: m[2]})
		}
	}
	return filters
}

func getCodecs(binary string) struct {
	Audio    []Codec
	Video    []Codec
	Subtitle []Codec
} {
	cmd := exec.Command(binary, "-codecs")
	stdout, _ := cmd.Output()
	return parseCodecs(stdout)
}

func parseCodecs(data []byte) struct {
	Audio    []Codec
	Video    []Codec
	Subtitle []Codec
} {
	codecs := struct {
		Audio    []Codec
		Video    []Codec
		Subtitle []Codec
	}{}
	re := regexp.MustCompile(`^\s([D.])([E.])([VAS]).{3} ([0-9A-Za-z_]+)\s+(.*?)(?:\(decoders:([^\)]+)\))?\s?(?:\(encoders:([^\)]+)\))?$`)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		c := Codec{Id: m[4], Name: strings.TrimSpace(m[5])}
		if m[1] == "D" {
			if len(m[6]) == 0 {
				c.Decoders = []string{m[4]}
			} else {
				c.Decoders = strings.Split(strings.TrimSpace(m[6]), " ")
			}
		}
		if m[2] == "E" {
			if len(m[7]) == 0 {
				c.Encoders = []string{m[4]}
			} else {
				c.Encoders = strings.Split(strings.TrimSpace(m[7]), " ")
			}
		}
		switch m[3] {
		case "V":
			codecs.Video = append(codecs.Video, c)
		case "A":
			codecs.Audio = append(codecs.Audio, c)
		case "S":
			codecs.Subtitle = append(codecs.Subtitle, c)
		}
	}
	return codecs
}

func getHWAccels(binary string) []HWAccel {
	cmd := exec.Command(binary, "-hwaccels")
	stdout, _ := cmd.Output()
	return parseHWAccels(stdout)
}

func parseHWAccels(data []byte) []HWAccel {
	var accels []HWAccel
	re := regexp.MustCompile(`^[A-Za-z0-9]+$`)
	start := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "Hardware acceleration methods:" {
			start = true
			continue
		}
		if !start || !re.MatchString(line) {
			continue
		}
		id := strings.TrimSpace(line)
		accels = append(accels, HWAccel{Id: id, Name: id})
	}
	return accels
}
