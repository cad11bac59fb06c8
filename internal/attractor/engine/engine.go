// Package engine implements the graph traversal described in spec §4.5: it
// walks a parsed Graph from its entry node, dispatching each visited node to
// a registered Handler, merging Outcome context updates, persisting
// per-stage artifacts, emitting lifecycle events, and enforcing goal-gate
// semantics at the terminal node.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danshapiro/attractor/internal/attractor/model"
	"github.com/danshapiro/attractor/internal/attractor/runtime"
)

// Sentinel errors for the structural error kinds in spec §7.
// ErrGraphInvalid and ErrStageFailNoRoute are wrapped by the errors that
// escape engine.Run rather than being captured into a FAIL Outcome.
// ErrSourceMalformed is not returned by engine.Run or by dot.Parse, which
// reports a malformed header with its own unwrapped error.
var (
	ErrGraphInvalid     = errors.New("engine: graph invalid")
	ErrSourceMalformed  = errors.New("engine: source malformed")
	ErrStageFailNoRoute = errors.New("engine: stage failed with no route")
)

// EventSink receives lifecycle events. kind is one of StageStarted,
// StageCompleted, PipelineCompleted, PipelineFailed (spec §6).
type EventSink func(kind string, data map[string]any)

// Engine drives one run of a Graph to completion.
type Engine struct {
	Graph    *model.Graph
	Registry *HandlerRegistry
	LogsRoot string
	Sink     EventSink

	// Warnings accumulates non-fatal diagnostics raised during a run,
	// mirroring the teacher's Engine.Warn convention.
	Warnings []string
}

// New builds an Engine ready to run g.
func New(g *model.Graph, registry *HandlerRegistry, logsRoot string, sink EventSink) *Engine {
	if sink == nil {
		sink = func(string, map[string]any) {}
	}
	return &Engine{Graph: g, Registry: registry, LogsRoot: logsRoot, Sink: sink}
}

// Warn records a non-fatal diagnostic.
func (e *Engine) Warn(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

func (e *Engine) emit(kind string, data map[string]any) {
	e.Sink(kind, data)
}

// Run executes the engine's traversal algorithm (spec §4.5) against ctx,
// which the caller owns and seeds with any run inputs before calling Run.
func (e *Engine) Run(ctx *runtime.Context) (runtime.Outcome, error) {
	entry, ok := e.Graph.EntryNode()
	if !ok {
		return runtime.Outcome{}, fmt.Errorf("%w: no entry node in graph %q", ErrGraphInvalid, e.Graph.Name)
	}

	ctx.Set("graph.goal", e.Graph.Goal)
	ctx.Set("graph.label", e.Graph.Label)

	outcomes := map[string]runtime.Outcome{}
	current := entry.ID
	stageCount := 0
	var lastOutcome runtime.Outcome

	for {
		if e.Graph.IsTerminal(current) {
			if gateFailure, reason := e.enforceGoalGate(outcomes); reason != "" {
				e.writeFinal(gateFailure, current, stageCount)
				e.emit("PipelineFailed", map[string]any{"current_node": current, "failure_reason": reason})
				return gateFailure, nil
			}
			result := lastOutcome
			if stageCount == 0 {
				result = runtime.Outcome{Status: runtime.StatusSuccess}
			}
			e.writeFinal(result, current, stageCount)
			e.emit("PipelineCompleted", map[string]any{"current_node": current})
			return result, nil
		}

		node := e.Graph.Node(current)
		if node == nil {
			return runtime.Outcome{}, fmt.Errorf("%w: node %q referenced but not declared", ErrGraphInvalid, current)
		}

		handler := e.Registry.Resolve(node)
		e.emit("StageStarted", map[string]any{"node_id": node.ID, "label": node.DisplayName()})

		nodeDir := filepath.Join(e.LogsRoot, node.ID)
		outcome, err := handler.Execute(node, &Execution{
			Graph:    e.Graph,
			Context:  ctx,
			LogsRoot: e.LogsRoot,
			NodeDir:  nodeDir,
			Engine:   e,
		})
		if err != nil {
			return runtime.Outcome{}, fmt.Errorf("engine: stage %q: %w", node.ID, err)
		}
		outcome.Status = runtime.ParseStageStatus(string(outcome.Status))
		outcomes[node.ID] = outcome
		lastOutcome = outcome
		stageCount++

		ctx.ApplyUpdates(outcome.ContextUpdates)
		ctx.Set("outcome", string(outcome.Status))
		if outcome.PreferredLabel != "" {
			ctx.Set("preferred_label", outcome.PreferredLabel)
		}

		e.writeStatusIfAbsent(nodeDir, outcome)
		e.emit("StageCompleted", map[string]any{"node_id": node.ID, "outcome": string(outcome.Status), "notes": outcome.Notes})

		if outcome.Status == runtime.StatusFail {
			next := SelectFailEdge(node, outcome, ctx, e.Graph)
			if next == nil {
				reason := outcome.FailureReason
				if reason == "" {
					reason = "no failure reason given"
				}
				err := fmt.Errorf("%w: stage %q failed: %s", ErrStageFailNoRoute, node.ID, reason)
				e.writeFinal(runtime.Outcome{Status: runtime.StatusFail, FailureReason: reason}, node.ID, stageCount)
				e.emit("PipelineFailed", map[string]any{"node_id": node.ID, "failure_reason": reason})
				return runtime.Outcome{}, err
			}
			current = next.To
			continue
		}

		next := SelectEdge(node, outcome, ctx, e.Graph)
		if next == nil {
			e.writeFinal(outcome, node.ID, stageCount)
			e.emit("PipelineCompleted", map[string]any{"current_node": node.ID})
			return outcome, nil
		}
		current = next.To
	}
}

// enforceGoalGate implements spec §4.5's goal-gate check: any recorded
// outcome whose node has a truthy goal_gate attr must be SUCCESS or
// PARTIAL_SUCCESS, or the overall result is FAIL. The node iteration order
// is the graph's declared node order so that, on multiple violations, the
// reported reason is deterministic.
func (e *Engine) enforceGoalGate(outcomes map[string]runtime.Outcome) (runtime.Outcome, string) {
	for _, node := range e.Graph.Nodes() {
		if !node.AttrBool("goal_gate") {
			continue
		}
		outcome, ran := outcomes[node.ID]
		if !ran {
			continue
		}
		if outcome.Status != runtime.StatusSuccess && outcome.Status != runtime.StatusPartialSuccess {
			reason := outcome.FailureReason
			if reason == "" {
				reason = string(outcome.Status)
			}
			msg := fmt.Sprintf("Goal gate unsatisfied at node '%s': %s", node.ID, reason)
			return runtime.Outcome{Status: runtime.StatusFail, FailureReason: msg}, msg
		}
	}
	return runtime.Outcome{}, ""
}

// writeStatusIfAbsent implements spec §6: the engine writes status.json
// only if the handler has not already written one and status != FAIL.
// Codergen handlers always write their own status.json (including on
// FAIL), so this fallback mostly exists for handler types, like tool and
// the no-op stage handlers, that never write one themselves.
func (e *Engine) writeStatusIfAbsent(nodeDir string, outcome runtime.Outcome) {
	if outcome.Status == runtime.StatusFail {
		return
	}
	path := filepath.Join(nodeDir, "status.json")
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := os.MkdirAll(nodeDir, 0o755); err != nil {
		e.Warn("create log dir %q: %v", nodeDir, err)
		return
	}
	b, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		e.Warn("marshal status.json for %q: %v", nodeDir, err)
		return
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		e.Warn("write status.json for %q: %v", nodeDir, err)
	}
}

// writeFinal writes the run-summary audit artifact (SPEC_FULL.md §4.5).
func (e *Engine) writeFinal(outcome runtime.Outcome, currentNode string, stageCount int) {
	fo := &runtime.FinalOutcome{
		Status:        outcome.Status,
		CurrentNode:   currentNode,
		StageCount:    stageCount,
		FailureReason: outcome.FailureReason,
	}
	path := filepath.Join(e.LogsRoot, "final.json")
	if b, err := json.Marshal(fo); err == nil {
		fo.Checksum = checksum(b)
	}
	if err := fo.Save(path); err != nil {
		e.Warn("write final.json: %v", err)
	}
}
