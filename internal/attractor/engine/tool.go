package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/danshapiro/attractor/internal/attractor/model"
	"github.com/danshapiro/attractor/internal/attractor/runtime"
)

// ToolExecutor runs a named tool against the current node/context/graph and
// returns its Outcome (spec §6).
type ToolExecutor func(name string, node *model.Node, ctx *runtime.Context, g *model.Graph, logsRoot string) (runtime.Outcome, error)

// ToolHandler dispatches to a registered ToolExecutor by name, falling back
// to running node.attrs["tool_command"] as a subprocess (spec §4.4).
type ToolHandler struct {
	Executors      map[string]ToolExecutor
	TimeoutSeconds int
	Policy         ArtifactPolicy
}

func (h *ToolHandler) Execute(node *model.Node, ex *Execution) (runtime.Outcome, error) {
	name := node.AttrString("tool")

	if executor, ok := h.Executors[name]; ok && name != "" {
		outcome, err := executor(name, node, ex.Context, ex.Graph, ex.LogsRoot)
		if err != nil {
			return runtime.Outcome{Status: runtime.StatusFail, FailureReason: err.Error()}, nil
		}
		return outcome, nil
	}

	command := node.AttrString("tool_command")
	if command == "" {
		return runtime.Outcome{
			Status:        runtime.StatusFail,
			FailureReason: fmt.Sprintf("tool handler: no executor registered and no tool_command set on node %q", node.ID),
		}, nil
	}

	return h.runCommand(ex, command)
}

func (h *ToolHandler) runCommand(ex *Execution, command string) (runtime.Outcome, error) {
	timeout := h.TimeoutSeconds
	if timeout <= 0 {
		timeout = 300
	}
	workDir := ex.Context.GetString("work_dir")

	cctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(cctx, "bash", "-c", command)
	if workDir != "" {
		cmd.Dir = workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	output := stdout.String() + stderr.String()

	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return runtime.Outcome{
			Status:        runtime.StatusFail,
			FailureReason: "Tool timed out",
			ContextUpdates: map[string]any{
				"tool.output": output,
			},
		}, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return runtime.Outcome{
				Status:        runtime.StatusFail,
				FailureReason: fmt.Sprintf("tool exited with status %d", exitErr.ExitCode()),
				ContextUpdates: map[string]any{
					"tool.output": output,
				},
			}, nil
		}
		return runtime.Outcome{
			Status:        runtime.StatusFail,
			FailureReason: runErr.Error(),
			ContextUpdates: map[string]any{
				"tool.output": output,
			},
		}, nil
	}

	return runtime.Outcome{
		Status: runtime.StatusSuccess,
		ContextUpdates: map[string]any{
			"tool.output": output,
		},
	}, nil
}
