package validator

import "testing"

func TestIsValid_NoLists(t *testing.T) {
	v, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !v.IsValid("/tmp/anything.mkv") {
		t.Error("expected no lists to allow everything")
	}
}

func TestIsValid_BlockTakesPriority(t *testing.T) {
	v, err := New([]string{".*"}, []string{`^/mnt/forbidden/`})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if v.IsValid("/mnt/forbidden/video.mkv") {
		t.Error("blocked path should never be valid, even if also allowed")
	}
	if !v.IsValid("/home/user/video.mkv") {
		t.Error("unblocked, allowed path should be valid")
	}
}

func TestIsValid_AllowListRequiresMatch(t *testing.T) {
	v, err := New([]string{`\.mkv$`}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"matches allow", "/data/in.mkv", true},
		{"does not match allow", "/data/in.mp4", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.IsValid(tt.path); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNew_BadRegexp(t *testing.T) {
	if _, err := New([]string{"("}, nil); err == nil {
		t.Error("expected error for unparseable regexp")
	}
}

func TestNew_SkipsEmptyExpressions(t *testing.T) {
	v, err := New([]string{""}, []string{""})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !v.IsValid("/anything") {
		t.Error("empty expressions should be skipped, not compiled into blockers")
	}
}

func TestReason_NamesTheFailingRule(t *testing.T) {
	v, err := New([]string{`\.mkv$`}, []string{`^/mnt/forbidden/`})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := v.Reason("/data/in.mkv"); got != "" {
		t.Errorf("Reason(valid) = %q, want empty", got)
	}
	if got := v.Reason("/mnt/forbidden/in.mkv"); got == "" {
		t.Error("Reason(blocked) = empty, want a reason naming the block pattern")
	}
	if got := v.Reason("/data/in.mp4"); got == "" {
		t.Error("Reason(not allowed) = empty, want a reason naming the missing allow match")
	}
}
