package deps

import (
	"testing"

	"optipress/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	statuses := CheckBinaries([]Requirement{
		{Name: "shell", Command: "sh", Description: "present on any test host"},
		{Name: "absent", Command: "definitely-not-a-real-binary-12345"},
		{Name: "unconfigured", Command: "  ", Optional: true},
	})

	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Errorf("expected sh to be available: %+v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Errorf("expected absent binary to report detail: %+v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Errorf("unexpected unconfigured status: %+v", statuses[2])
	}
}

func TestRequirementsFollowEnabledFormats(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFormats("webp"))

	reqs := Requirements(cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Optional {
		t.Error("webp encoder must be required when webp is enabled")
	}
	if !reqs[1].Optional {
		t.Error("avif encoder must be optional when avif is disabled")
	}
}

func TestMissingRequired(t *testing.T) {
	missing := MissingRequired([]Status{
		{Name: "a", Optional: false, Available: false},
		{Name: "b", Optional: true, Available: false},
		{Name: "c", Optional: false, Available: true},
	})
	if len(missing) != 1 || missing[0] != "a" {
		t.Fatalf("missing = %v, want [a]", missing)
	}
}
