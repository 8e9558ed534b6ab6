// Package config layers an optional YAML file beneath CLI flags (flags win
// when explicitly set), matching the teacher's internal/config.Load/Default
// split and the spec's CLI table (spec.md section 6).
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FFmpegConfig names the external binaries and the skills preflight
// behavior.
type FFmpegConfig struct {
	Binary       string   `yaml:"binary"`
	ProbeBinary  string   `yaml:"probe_binary"`
	AllowInputs  []string `yaml:"allow_inputs"`
	BlockInputs  []string `yaml:"block_inputs"`
	AllowOutputs []string `yaml:"allow_outputs"`
	BlockOutputs []string `yaml:"block_outputs"`
}

// Job is the YAML-loadable subset of a job description; everything else
// (inputs, output, per-run flags) only ever comes from the CLI per spec.md
// section 6, since a config file only conveys installation-wide defaults
// like which ffmpeg binary to use.
type Job struct {
	FFmpeg    FFmpegConfig `yaml:"ffmpeg"`
	TempDir   string       `yaml:"tempdir"`
	MaxFPS    int          `yaml:"maxfps"`
	TargetFPS int          `yaml:"targetfps"`
}

// Default returns the built-in defaults, used when no config file is given.
func Default() *Job {
	return &Job{
		FFmpeg: FFmpegConfig{
			Binary:      "ffmpeg",
			ProbeBinary: "ffprobe",
		},
	}
}

// Load reads path as YAML and layers it over Default(); a missing file is
// not an error (the defaults apply), matching the teacher's Load().
func Load(path string) (*Job, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.FFmpeg.Binary == "" {
		cfg.FFmpeg.Binary = "ffmpeg"
	}
	if cfg.FFmpeg.ProbeBinary == "" {
		cfg.FFmpeg.ProbeBinary = "ffprobe"
	}
	return cfg, nil
}
