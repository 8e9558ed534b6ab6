package config

import (
	"flag"
	"fmt"
	"os"
)

// CLI is the parsed command line, per spec.md section 6's CLI table.
type CLI struct {
	Inputs       []string
	Output       string
	TempDir      string
	SplitAudio   bool
	Upgrade      bool
	MaxFPS       int
	TargetFPS    int
	ConfigPath   string
	Debug        bool
	LockDebug    bool
	ShowVersion  bool
	ShowHelp     bool
}

type repeatedFlag struct{ values *[]string }

func (r repeatedFlag) String() string { return "" }
func (r repeatedFlag) Set(v string) error {
	*r.values = append(*r.values, v)
	return nil
}

// ParseArgs parses argv (excluding the program name) into a CLI, in the
// teacher-pack's `flag.NewFlagSet` + custom Usage style
// (AsmirZukic-go_encoder/config/flags.go).
func ParseArgs(argv []string) (*CLI, error) {
	fs := flag.NewFlagSet("frameforge", flag.ContinueOnError)
	fs.Usage = printUsage

	c := &CLI{MaxFPS: -1, TargetFPS: -1}

	fs.Var(repeatedFlag{&c.Inputs}, "i", "input file (repeatable, at least one required)")
	fs.StringVar(&c.Output, "o", "", "output file, must end in .mkv, must not exist")
	fs.StringVar(&c.TempDir, "t", "", "single temp dir; otherwise per-input dir is used")
	fs.StringVar(&c.TempDir, "tempdir", "", "alias of -t")
	fs.BoolVar(&c.SplitAudio, "s", false, "route second audio stream into a sibling .wav")
	fs.BoolVar(&c.SplitAudio, "splitaudio", false, "alias of -s")
	fs.BoolVar(&c.Upgrade, "u", false, "force 60 fps target")
	fs.BoolVar(&c.Upgrade, "upgrade", false, "alias of -u")
	fs.IntVar(&c.MaxFPS, "maxfps", -1, "maximum fps override")
	fs.IntVar(&c.TargetFPS, "targetfps", -1, "target fps override")
	fs.StringVar(&c.ConfigPath, "config", "", "path to YAML config file")
	fs.BoolVar(&c.Debug, "D", false, "enable debug logging and retain temporaries")
	fs.BoolVar(&c.Debug, "debug", false, "alias of -D")
	fs.BoolVar(&c.LockDebug, "lock-debug", false, "log registry lock acquisitions")
	fs.BoolVar(&c.ShowVersion, "V", false, "print version and exit")
	fs.BoolVar(&c.ShowHelp, "h", false, "print usage and exit")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	return c, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `frameforge - batch interpolating video transcoder

USAGE:
  frameforge -i FILE [-i FILE...] -o OUTPUT.mkv [OPTIONS]

REQUIRED:
  -i PATH        input file (repeatable)
  -o PATH        output file, must end in .mkv, must not exist

OPTIONS:
  -t, --tempdir PATH   single temp dir; otherwise per-input dir is used
  -s, --splitaudio     route second audio stream into a sibling .wav
  -u, --upgrade        force 60 fps target
  --maxfps N           integer max-fps override
  --targetfps N        integer target-fps override
  --config PATH        YAML config file
  -D, --debug          debug logging, retain temporaries
  --lock-debug         log registry lock acquisitions
  -V                   print version
  -h                   this help

`)
}
