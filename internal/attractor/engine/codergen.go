package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danshapiro/attractor/internal/attractor/model"
	"github.com/danshapiro/attractor/internal/attractor/runtime"
)

// CodergenBackend invokes an LLM-backed stage. A string return is a textual
// response; a runtime.Outcome return is passed through verbatim.
type CodergenBackend func(node *model.Node, prompt string, ctx *runtime.Context) (any, error)

// CodergenHandler renders a node's prompt template, invokes the configured
// backend (if any), and persists prompt/response artifacts (spec §4.4).
type CodergenHandler struct {
	Backend CodergenBackend
	Policy  ArtifactPolicy
}

func (h *CodergenHandler) Execute(node *model.Node, exec *Execution) (runtime.Outcome, error) {
	goal := exec.Context.GetString("graph.goal")
	if goal == "" {
		goal = exec.Graph.Goal
	}
	prompt := strings.ReplaceAll(node.Prompt, "$goal", goal)

	if err := writeArtifact(exec.NodeDir, "prompt.md", []byte(prompt), h.Policy); err != nil {
		return runtime.Outcome{}, fmt.Errorf("engine: write prompt.md for %q: %w", node.ID, err)
	}

	if h.Backend == nil {
		response := simulatedResponse(node, prompt)
		return h.finishWithResponse(node, exec, response)
	}

	result, err := h.Backend(node, prompt, exec.Context)
	if err != nil {
		return h.writeStatus(node, exec, runtime.Outcome{
			Status:        runtime.StatusFail,
			FailureReason: err.Error(),
		})
	}

	switch v := result.(type) {
	case runtime.Outcome:
		return h.writeStatus(node, exec, v)
	case string:
		return h.finishWithResponse(node, exec, v)
	default:
		return h.finishWithResponse(node, exec, fmt.Sprint(v))
	}
}

func (h *CodergenHandler) finishWithResponse(node *model.Node, exec *Execution, response string) (runtime.Outcome, error) {
	if err := writeArtifact(exec.NodeDir, "response.md", []byte(response), h.Policy); err != nil {
		return runtime.Outcome{}, fmt.Errorf("engine: write response.md for %q: %w", node.ID, err)
	}
	truncated := response
	if len(truncated) > 200 {
		truncated = truncated[:200]
	}
	outcome := runtime.Outcome{
		Status: runtime.StatusSuccess,
		ContextUpdates: map[string]any{
			"last_stage":    node.ID,
			"last_response": truncated,
		},
	}
	return h.writeStatus(node, exec, outcome)
}

// writeStatus persists status.json unconditionally, including on FAIL.
// Spec §6 and §9 open question 3: codergen handlers always write their own
// status.json, unlike other handler types which rely on the engine's
// writeStatusIfAbsent fallback.
func (h *CodergenHandler) writeStatus(node *model.Node, exec *Execution, outcome runtime.Outcome) (runtime.Outcome, error) {
	b, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return runtime.Outcome{}, fmt.Errorf("engine: marshal status.json for %q: %w", node.ID, err)
	}
	if err := writeArtifact(exec.NodeDir, "status.json", b, h.Policy); err != nil {
		return runtime.Outcome{}, fmt.Errorf("engine: write status.json for %q: %w", node.ID, err)
	}
	return outcome, nil
}

func simulatedResponse(node *model.Node, prompt string) string {
	return fmt.Sprintf("[simulated response for stage %q]\n%s", node.ID, prompt)
}
