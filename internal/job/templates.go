package job

import (
	"fmt"
	"path/filepath"
)

// Templates holds every temporary artifact path derived for one
// SourceGroup. Each field is a pure function of (gid, main pid, slot) —
// calling BuildTemplates twice with the same inputs yields identical paths,
// which is what lets a cleanly completed run assert "no file matching any
// of its temporary templates" remains on disk.
type Templates struct {
	Cat  string    // concatenation output (single .mkv)
	Lst  string    // concat demuxer list file
	Tmp  [4]string // segment files
	Iup  [4]string // up-interpolated intermediates
	Idn  [4]string // down-interpolated intermediates
	Prgu [4]string // per-worker up-pass progress files
	Prgd [4]string // per-worker down-pass progress files
}

// BuildTemplates expands the file-name templates for one SourceGroup. dir
// is the group's chosen temp directory (either the job-wide --tempdir or
// the group's own source directory).
func BuildTemplates(dir string, gid, mainPID int) Templates {
	name := func(suffix string) string {
		return filepath.Join(dir, fmt.Sprintf(".ff_%d_g%d_%s", mainPID, gid, suffix))
	}
	t := Templates{
		Cat: name("cat.mkv"),
		Lst: name("list.txt"),
	}
	for i := 0; i < 4; i++ {
		t.Tmp[i] = name(fmt.Sprintf("seg%d.mkv", i))
		t.Iup[i] = name(fmt.Sprintf("iup%d.mkv", i))
		t.Idn[i] = name(fmt.Sprintf("idn%d.mkv", i))
		t.Prgu[i] = name(fmt.Sprintf("prgu%d.txt", i))
		t.Prgd[i] = name(fmt.Sprintf("prgd%d.txt", i))
	}
	return t
}

// AllPaths returns every temporary path named by these templates, used by
// the cleanup policy to assert none remain after a successful run.
func (t Templates) AllPaths() []string {
	paths := []string{t.Cat, t.Lst}
	for i := 0; i < 4; i++ {
		paths = append(paths, t.Tmp[i], t.Iup[i], t.Idn[i], t.Prgu[i], t.Prgd[i])
	}
	return paths
}
