package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/kvit-s/kvit-agent/internal/security"
)

const noOutputPlaceholder = "(command produced no output)"

// ExecuteCommandTool runs validated shell commands under the call context.
type ExecuteCommandTool struct {
	logger *zap.Logger
}

func NewExecuteCommandTool(logger *zap.Logger) *ExecuteCommandTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecuteCommandTool{logger: logger}
}

func (t *ExecuteCommandTool) Name() string { return "execute_command" }

func (t *ExecuteCommandTool) Description() string {
	return "Execute a shell command and return its combined output"
}

func (t *ExecuteCommandTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "Shell command to execute",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ExecuteCommandTool) Call(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Command string `json:"command"`
	}
	if err := decodeInput(t.Name(), input, &args); err != nil {
		return "", err
	}
	if args.Command == "" {
		return "", &MissingFieldError{Tool: t.Name(), Field: "command"}
	}

	command, err := security.ValidateCommand(args.Command)
	if err != nil {
		return "", fmt.Errorf("validate command: %w", err)
	}

	cmd := shellCommand(ctx, command.String())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return "", fmt.Errorf("execute command: %w", runErr)
		}
		// A non-zero exit is a tool outcome, not a tool failure. The
		// model sees the output and decides what to do with it.
		t.logger.Warn("command exited non-zero",
			zap.String("command", command.String()),
			zap.Int("exit_code", exitErr.ExitCode()))
	}

	output := joinStreams(stdout.String(), stderr.String())
	if output == "" {
		output = noOutputPlaceholder
	}

	t.logger.Info("command executed",
		zap.String("command", command.String()),
		zap.Int("output_bytes", len(output)))
	return output, nil
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

func joinStreams(stdout, stderr string) string {
	switch {
	case stdout != "" && stderr != "":
		return stdout + "\n" + stderr
	case stderr != "":
		return stderr
	default:
		return stdout
	}
}
