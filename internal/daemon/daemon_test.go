package daemon_test

import (
	"context"
	"testing"

	"relic/internal/daemon"
	"relic/internal/testsupport"
	"relic/internal/workflow"
)

func TestStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManager(cfg, store, nil, workflow.WithTestMode(true))

	first, err := daemon.New(cfg, store, nil, manager)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, nil, manager)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}

func TestStopReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManager(cfg, store, nil, workflow.WithTestMode(true))

	d, err := daemon.New(cfg, store, nil, manager)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
	if d.Running() {
		t.Fatal("daemon still running after Stop")
	}

	again, err := daemon.New(cfg, store, nil, manager)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := again.Start(context.Background()); err != nil {
		t.Fatalf("restart after Stop: %v", err)
	}
	again.Stop()
}
