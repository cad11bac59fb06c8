package tasks

import (
	"testing"
	"time"

	"github.com/danshapiro/attractor/internal/attractor/engine"
)

func waitForTerminal(t *testing.T, task *Task) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, _, _ := task.snapshotStatus()
		if status != StatusRunning {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %s did not finish in time", task.ID)
}

func TestManagerStartAndGetCompleted(t *testing.T) {
	m := NewManager(2)
	defer m.Close()

	registry := engine.NewDefaultRegistry(&engine.CodergenHandler{}, &engine.ToolHandler{})
	id := m.Start(RunInputs{
		Source:   `digraph G { start [shape=Mdiamond]; a [shape=box]; end [shape=Msquare]; start -> a; a -> end }`,
		LogsRoot: t.TempDir(),
		Registry: registry,
	})

	task := m.Get(id)
	if task == nil {
		t.Fatalf("Get(%q) = nil", id)
	}
	waitForTerminal(t, task)

	status, result, _ := task.snapshotStatus()
	if status != StatusCompleted {
		t.Fatalf("status = %v, want completed", status)
	}
	if result == nil {
		t.Fatalf("result is nil")
	}

	events := task.EventsSnapshot()
	if len(events) == 0 {
		t.Fatalf("expected at least one event")
	}
	last := events[len(events)-1]
	if last.Kind != "progress" || last.Data["percent"] != 100 {
		t.Errorf("last event = %+v, want final 100%% progress", last)
	}
}

func TestManagerStartMalformedSourceFails(t *testing.T) {
	m := NewManager(1)
	defer m.Close()

	registry := engine.NewDefaultRegistry(&engine.CodergenHandler{}, &engine.ToolHandler{})
	id := m.Start(RunInputs{
		Source:   `not a digraph at all`,
		LogsRoot: t.TempDir(),
		Registry: registry,
	})
	task := m.Get(id)
	waitForTerminal(t, task)

	status, _, errMsg := task.snapshotStatus()
	if status != StatusFailed {
		t.Fatalf("status = %v, want failed", status)
	}
	if errMsg == "" {
		t.Errorf("expected a non-empty error message")
	}
}

func TestManagerListReverseChronological(t *testing.T) {
	m := NewManager(2)
	defer m.Close()

	registry := engine.NewDefaultRegistry(&engine.CodergenHandler{}, &engine.ToolHandler{})
	src := `digraph G { start [shape=Mdiamond]; end [shape=Msquare]; start -> end }`

	var ids []string
	for i := 0; i < 3; i++ {
		id := m.Start(RunInputs{Source: src, LogsRoot: t.TempDir(), Registry: registry})
		ids = append(ids, id)
		waitForTerminal(t, m.Get(id))
	}

	page, total := m.List(0, 10)
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(page) != 3 {
		t.Fatalf("len(page) = %d, want 3", len(page))
	}
	if page[0].ID != ids[2] {
		t.Errorf("page[0].ID = %q, want most recent id %q", page[0].ID, ids[2])
	}
}

func TestManagerGetUnknownID(t *testing.T) {
	m := NewManager(1)
	defer m.Close()
	if m.Get("does-not-exist") != nil {
		t.Errorf("Get(unknown) should return nil")
	}
}
