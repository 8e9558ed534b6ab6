package registry

import "testing"

func TestAdd_DuplicatePID(t *testing.T) {
	r := New()
	if _, err := r.Add(100, 0, []string{"ffmpeg"}); err != nil {
		t.Fatalf("first Add returned error: %v", err)
	}
	if _, err := r.Add(100, 0, []string{"ffmpeg"}); err == nil {
		t.Error("expected duplicate pid error on second Add")
	}
}

func TestSetStatus_UnknownPID(t *testing.T) {
	r := New()
	if err := r.SetStatus(999, Running); err == nil {
		t.Error("expected error setting status of unknown pid")
	}
}

func TestRemove_RefusesBeforeReaped(t *testing.T) {
	r := New()
	r.Add(100, 0, nil)
	if ok := r.Remove(100, true); ok {
		t.Error("Remove should refuse a non-reaped record")
	}
	r.SetStatus(100, Reaped)
	if ok := r.Remove(100, true); !ok {
		t.Error("Remove should succeed once status is Reaped")
	}
}

func TestRemove_IdempotentOnceGone(t *testing.T) {
	r := New()
	if ok := r.Remove(123, true); !ok {
		t.Error("Remove on an unknown pid should be idempotent (true)")
	}
}

func TestGetStatus_ReapingFlagShortCircuits(t *testing.T) {
	r := New()
	rec, _ := r.Add(100, 0, nil)
	r.SetStatus(100, Running)
	rec.MarkReaping()

	st, err := r.GetStatus(100)
	if err != nil {
		t.Fatalf("GetStatus returned error: %v", err)
	}
	if st != Reaped {
		t.Errorf("GetStatus() = %v, want Reaped once reapedFlag is set", st)
	}
}

func TestActiveCount(t *testing.T) {
	r := New()
	r.Add(1, 0, nil)
	r.Add(2, 0, nil)
	r.SetStatus(1, Running)
	r.SetStatus(2, Running)
	if got := r.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount() = %d, want 2", got)
	}
	r.SetStatus(2, Reaped)
	if got := r.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount() after reaping one = %d, want 1", got)
	}
}

func TestRaiseDeath_NeverLowers(t *testing.T) {
	r := New()
	r.RaiseDeath(3)
	r.RaiseDeath(1)
	if got := r.ReadDeath(); got != 3 {
		t.Errorf("ReadDeath() = %d, want 3 (monotonic)", got)
	}
	r.RaiseDeath(5)
	if got := r.ReadDeath(); got != 5 {
		t.Errorf("ReadDeath() = %d, want 5", got)
	}
}

func TestMarkRestart_ShallRestart(t *testing.T) {
	r := New()
	r.Add(1, 0, nil)
	if r.ShallRestart(1) {
		t.Error("ShallRestart should default to false")
	}
	r.MarkRestart(1)
	if !r.ShallRestart(1) {
		t.Error("ShallRestart should be true after MarkRestart")
	}
}

func TestChildRecord_StdoutStderrAppend(t *testing.T) {
	rec := &ChildRecord{PID: 1}
	rec.AppendStdout("line one")
	rec.AppendStdout("line two")
	rec.AppendStderr("uh oh")

	out := rec.Stdout()
	if len(out) != 2 || out[0] != "line one" || out[1] != "line two" {
		t.Errorf("Stdout() = %v", out)
	}
	errLines := rec.Stderr()
	if len(errLines) != 1 || errLines[0] != "uh oh" {
		t.Errorf("Stderr() = %v", errLines)
	}
}

func TestChildRecord_SetExitAndExit(t *testing.T) {
	rec := &ChildRecord{PID: 1}
	rec.SetExit(1, "Exited with error 1")
	code, msg := rec.Exit()
	if code != 1 || msg != "Exited with error 1" {
		t.Errorf("Exit() = %d, %q", code, msg)
	}
}

func TestSnapshotPIDs_Sorted(t *testing.T) {
	r := New()
	r.Add(30, 0, nil)
	r.Add(10, 0, nil)
	r.Add(20, 0, nil)

	pids := r.SnapshotPIDs()
	want := []int{10, 20, 30}
	if len(pids) != len(want) {
		t.Fatalf("SnapshotPIDs() = %v, want %v", pids, want)
	}
	for i := range want {
		if pids[i] != want[i] {
			t.Errorf("SnapshotPIDs()[%d] = %d, want %d", i, pids[i], want[i])
		}
	}
}
