// Package tasks wraps an engine run behind an event-stream-friendly facade
// with task identity, status, and an in-memory result (spec §4.7).
package tasks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/danshapiro/attractor/internal/attractor/dot"
	"github.com/danshapiro/attractor/internal/attractor/engine"
	"github.com/danshapiro/attractor/internal/attractor/runtime"
)

// Status is a Task's external lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event is one entry in a Task's append-only event log.
type Event struct {
	Kind string
	Data map[string]any
}

// Task is the external handle for one engine run (spec §3).
type Task struct {
	mu     sync.Mutex
	ID     string
	Status Status
	Events []Event
	Result *runtime.Outcome
	Error  string
}

func (t *Task) appendEvent(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Events = append(t.Events, ev)
}

// EventsSnapshot returns a defensive copy of the event log so a concurrent
// reader never observes a torn write (spec §5).
func (t *Task) EventsSnapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.Events))
	copy(out, t.Events)
	return out
}

func (t *Task) snapshotStatus() (Status, *runtime.Outcome, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Status, t.Result, t.Error
}

func (t *Task) setCompleted(outcome runtime.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = StatusCompleted
	r := outcome
	t.Result = &r
}

func (t *Task) setFailed(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = StatusFailed
	t.Error = message
}

// ProgressStep names one entry in the closed node-id -> progress mapping
// the embedding application supplies (spec §4.7).
type ProgressStep struct {
	Name    string
	Percent int
}

// RunInputs describes everything a single run needs: the graph source, the
// caller-supplied context seed values, a logs root, and the registry to
// dispatch handlers through.
type RunInputs struct {
	Source      string
	Inputs      map[string]any
	LogsRoot    string
	Registry    *engine.HandlerRegistry
	ProgressMap map[string]ProgressStep
}

type job struct {
	task   *Task
	inputs RunInputs
}

// Manager owns the process-wide task table and a bounded worker pool
// (SPEC_FULL.md §4.7).
type Manager struct {
	mu    sync.Mutex
	tasks map[string]*Task
	order []string
	jobs  chan job
	wg    sync.WaitGroup
}

// NewManager starts workerCount goroutines draining a buffered job queue.
// workerCount defaults to 4 if non-positive (spec §4.7 "target concurrency:
// small, e.g. 4").
func NewManager(workerCount int) *Manager {
	if workerCount <= 0 {
		workerCount = 4
	}
	m := &Manager{
		tasks: map[string]*Task{},
		jobs:  make(chan job, 64),
	}
	for i := 0; i < workerCount; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for j := range m.jobs {
		m.execute(j.task, j.inputs)
	}
}

// Start allocates a task id, registers it in the running state, and
// enqueues its engine run on the worker pool. It returns immediately.
func (m *Manager) Start(inputs RunInputs) string {
	id := ulid.Make().String()
	t := &Task{ID: id, Status: StatusRunning}

	m.mu.Lock()
	m.tasks[id] = t
	m.order = append(m.order, id)
	m.mu.Unlock()

	m.jobs <- job{task: t, inputs: inputs}
	return id
}

func (m *Manager) execute(t *Task, inputs RunInputs) {
	defer func() {
		if r := recover(); r != nil {
			t.appendEvent(Event{Kind: "error", Data: map[string]any{"message": fmt.Sprintf("panic: %v", r)}})
			t.setFailed(fmt.Sprintf("panic: %v", r))
		}
	}()

	g, err := dot.Parse(inputs.Source)
	if err != nil {
		t.appendEvent(Event{Kind: "error", Data: map[string]any{"message": err.Error()}})
		t.setFailed(err.Error())
		return
	}

	ctx := runtime.NewContext()
	ctx.ApplyUpdates(inputs.Inputs)

	sink := func(kind string, data map[string]any) {
		t.appendEvent(Event{Kind: kind, Data: data})
		if kind != "StageCompleted" {
			return
		}
		nodeID, _ := data["node_id"].(string)
		if step, ok := inputs.ProgressMap[nodeID]; ok {
			t.appendEvent(Event{Kind: "progress", Data: map[string]any{
				"step":    step.Name,
				"percent": step.Percent,
			}})
		}
	}

	eng := engine.New(g, inputs.Registry, inputs.LogsRoot, sink)
	outcome, err := eng.Run(ctx)
	if err != nil {
		t.appendEvent(Event{Kind: "error", Data: map[string]any{"message": err.Error()}})
		t.setFailed(err.Error())
		return
	}

	t.appendEvent(Event{Kind: "progress", Data: map[string]any{"step": "done", "percent": 100}})
	t.setCompleted(outcome)
}

// Get returns the task for id, or nil if unknown.
func (m *Manager) Get(id string) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

// List returns a reverse-chronological page of tasks, relying on ULIDs
// being lexically sortable by creation time, plus the total task count.
func (m *Manager) List(page, size int) ([]*Task, int) {
	m.mu.Lock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	m.mu.Unlock()

	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	total := len(ids)
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = total
	}
	start := page * size
	if start >= total {
		return nil, total
	}
	end := start + size
	if end > total {
		end = total
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Task, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, m.tasks[id])
	}
	return out, total
}

// Close stops accepting new work and waits for in-flight runs to finish.
func (m *Manager) Close() {
	close(m.jobs)
	m.wg.Wait()
}
