package config

import "testing"

func TestParseArgs_Required(t *testing.T) {
	cli, err := ParseArgs([]string{"-i", "a.mp4", "-i", "b.mp4", "-o", "out.mkv"})
	if err != nil {
		t.Fatalf("ParseArgs returned error: %v", err)
	}
	if len(cli.Inputs) != 2 || cli.Inputs[0] != "a.mp4" || cli.Inputs[1] != "b.mp4" {
		t.Errorf("Inputs = %v, want [a.mp4 b.mp4]", cli.Inputs)
	}
	if cli.Output != "out.mkv" {
		t.Errorf("Output = %q, want out.mkv", cli.Output)
	}
	if cli.MaxFPS != -1 || cli.TargetFPS != -1 {
		t.Errorf("MaxFPS/TargetFPS defaults = %d/%d, want -1/-1", cli.MaxFPS, cli.TargetFPS)
	}
}

func TestParseArgs_AliasesAndOverrides(t *testing.T) {
	cli, err := ParseArgs([]string{
		"-i", "a.mp4", "-o", "out.mkv",
		"--tempdir", "/scratch",
		"--splitaudio",
		"--upgrade",
		"--maxfps", "120",
		"--targetfps", "60",
		"--debug",
		"--lock-debug",
	})
	if err != nil {
		t.Fatalf("ParseArgs returned error: %v", err)
	}
	if cli.TempDir != "/scratch" {
		t.Errorf("TempDir = %q, want /scratch", cli.TempDir)
	}
	if !cli.SplitAudio || !cli.Upgrade || !cli.Debug || !cli.LockDebug {
		t.Errorf("bool flags not all set: %+v", cli)
	}
	if cli.MaxFPS != 120 || cli.TargetFPS != 60 {
		t.Errorf("MaxFPS/TargetFPS = %d/%d, want 120/60", cli.MaxFPS, cli.TargetFPS)
	}
}

func TestParseArgs_VersionAndHelp(t *testing.T) {
	cli, err := ParseArgs([]string{"-V"})
	if err != nil {
		t.Fatalf("ParseArgs returned error: %v", err)
	}
	if !cli.ShowVersion {
		t.Error("expected ShowVersion true")
	}

	cli, err = ParseArgs([]string{"-h"})
	if err != nil {
		t.Fatalf("ParseArgs returned error: %v", err)
	}
	if !cli.ShowHelp {
		t.Error("expected ShowHelp true")
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	if _, err := ParseArgs([]string{"--nonexistent"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}
