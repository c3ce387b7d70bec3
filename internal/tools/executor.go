package tools

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/kvit-s/kvit-agent/internal/fileio"
	"github.com/kvit-s/kvit-agent/internal/llm"
)

// Executor is the single entry point for model-requested tool calls.
// Every dispatch goes through input validation; there is no path from a
// raw model string to the filesystem or shell.
type Executor struct {
	registry *Registry
	logger   *zap.Logger
}

// NewExecutor builds an executor with the standard four tools enabled.
func NewExecutor(files *fileio.Processor, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if files == nil {
		files = fileio.NewProcessor(logger)
	}

	registry := NewRegistry()
	registry.Enable(NewReadFileTool(files, logger))
	registry.Enable(NewWriteFileTool(files, logger))
	registry.Enable(NewExecuteCommandTool(logger))
	registry.Enable(NewListFilesTool(logger))

	return &Executor{registry: registry, logger: logger}
}

// Registry exposes the underlying registry, mainly for tests.
func (e *Executor) Registry() *Registry { return e.registry }

// Specs returns the API tool manifest.
func (e *Executor) Specs() []llm.ToolSpec { return e.registry.Specs() }

// Execute dispatches one tool call and returns its textual result.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage) (string, error) {
	tool := e.registry.Get(name)
	if tool == nil {
		return "", &UnknownToolError{Name: name}
	}

	start := time.Now()
	result, err := tool.Call(ctx, input)
	elapsed := time.Since(start)

	if err != nil {
		e.logger.Warn("tool call failed",
			zap.String("tool", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", err
	}
	e.logger.Info("tool call completed",
		zap.String("tool", name),
		zap.Duration("elapsed", elapsed),
		zap.Int("result_bytes", len(result)))
	return result, nil
}
