package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePaths implements spec.md section 4.5 step 1: input files must
// exist and be non-empty, the output path must be absent and end in .mkv,
// and no input may equal the output.
func (c *CLI) ValidatePaths() error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("config: at least one -i input is required")
	}
	if c.Output == "" {
		return fmt.Errorf("config: -o output is required")
	}
	if strings.ToLower(filepath.Ext(c.Output)) != ".mkv" {
		return fmt.Errorf("config: output %q must end in .mkv", c.Output)
	}
	if _, err := os.Stat(c.Output); err == nil {
		return fmt.Errorf("config: output %q already exists", c.Output)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("config: stat output %q: %w", c.Output, err)
	}

	for _, in := range c.Inputs {
		fi, err := os.Stat(in)
		if err != nil {
			return fmt.Errorf("config: input %q: %w", in, err)
		}
		if fi.Size() == 0 {
			return fmt.Errorf("config: input %q is empty", in)
		}
		absIn, err1 := filepath.Abs(in)
		absOut, err2 := filepath.Abs(c.Output)
		if err1 == nil && err2 == nil && absIn == absOut {
			return fmt.Errorf("config: input %q must not equal output", in)
		}
	}
	return nil
}

// EffectiveMaxFPS and EffectiveTargetFPS silently ignore a below-1 CLI
// value, treating it as "not set" (SPEC_FULL.md section 9's resolution of
// the open question on this point).
func (c *CLI) EffectiveMaxFPS() (int, bool) {
	if c.MaxFPS < 1 {
		return 0, false
	}
	return c.MaxFPS, true
}

func (c *CLI) EffectiveTargetFPS() (int, bool) {
	if c.TargetFPS < 1 {
		return 0, false
	}
	return c.TargetFPS, true
}
