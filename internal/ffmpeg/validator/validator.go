// Package validator provides allow/block regexp-based validation of ffmpeg
// input/output addresses, adapted from the teacher's
// internal/ffmpeg.Validator (kept: the allow/block regexp matching rule
// itself, used during Planner validation per spec.md section 4.5 step 1).
// Unlike the teacher, which only ever surfaces a bare bool, this Validator
// also reports *which* rule fired: the Planner's §7 error taxonomy needs to
// tell a user "/mnt/scratch/in.mkv: blocked by pattern ^/mnt/scratch/" apart
// from "no allow pattern matched .mp4", since the fix for each is different
// (move the file vs. adjust allow_inputs in the config file).
package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator reports whether a string is eligible as an input or output
// address, and why not.
type Validator interface {
	IsValid(text string) bool

	// Reason explains a rejection: the block pattern that matched, or that
	// no allow pattern matched. Returns "" if text is valid.
	Reason(text string) string
}

type validator struct {
	allow []*regexp.Regexp
	block []*regexp.Regexp
}

// New creates a Validator. Empty expressions are ignored.
func New(allow, block []string) (Validator, error) {
	v := &validator{}

	for _, exp := range allow {
		exp = strings.TrimSpace(exp)
		if exp == "" {
			continue
		}
		re, err := regexp.Compile(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid allow expression %q: %w", exp, err)
		}
		v.allow = append(v.allow, re)
	}

	for _, exp := range block {
		exp = strings.TrimSpace(exp)
		if exp == "" {
			continue
		}
		re, err := regexp.Compile(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid block expression %q: %w", exp, err)
		}
		v.block = append(v.block, re)
	}

	return v, nil
}

func (v *validator) IsValid(text string) bool {
	return v.Reason(text) == ""
}

func (v *validator) Reason(text string) string {
	for _, e := range v.block {
		if e.MatchString(text) {
			return fmt.Sprintf("blocked by pattern %q", e.String())
		}
	}
	if len(v.allow) == 0 {
		return ""
	}
	for _, e := range v.allow {
		if e.MatchString(text) {
			return ""
		}
	}
	return "no allow pattern matched"
}
