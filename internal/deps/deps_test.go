package deps_test

import (
	"testing"

	"relic/internal/deps"
	"relic/internal/testsupport"
)

func TestRequirementsEmptyWhenBackgroundRemovalDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.ImageProcessing.BackgroundRemoval.Enabled = false

	if reqs := deps.Requirements(cfg); len(reqs) != 0 {
		t.Fatalf("expected no requirements, got %d", len(reqs))
	}
}

func TestRequirementsIncludeBackgroundRemovalTool(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackgroundRemoval("rembg"))

	reqs := deps.Requirements(cfg)
	if len(reqs) != 1 {
		t.Fatalf("expected one requirement, got %d", len(reqs))
	}
	if reqs[0].Command != "rembg" {
		t.Fatalf("expected rembg command, got %q", reqs[0].Command)
	}
	if !reqs[0].Optional {
		t.Fatal("background removal tool should be optional")
	}
}

func TestCheckBinariesReportsMissing(t *testing.T) {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "missing tool", Command: "definitely-not-a-real-binary-name"},
		{Name: "unconfigured", Command: ""},
	})
	if len(statuses) != 2 {
		t.Fatalf("expected two statuses, got %d", len(statuses))
	}
	if statuses[0].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if statuses[1].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %q", statuses[1].Detail)
	}
}

func TestCheckBinariesFindsStubbedTool(t *testing.T) {
	testsupport.NewConfig(t, testsupport.WithStubbedBinaries("fakeseg"))

	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "segmentation", Command: "fakeseg", Optional: true},
	})
	if len(statuses) != 1 || !statuses[0].Available {
		t.Fatalf("expected stubbed binary to be available, got %+v", statuses)
	}
}
