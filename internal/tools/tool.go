// Package tools implements the sandboxed tools the model may invoke and
// the executor that dispatches validated calls to them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is the interface all agent tools implement.
type Tool interface {
	// Name returns the tool identifier (e.g., "read_file")
	Name() string

	// Description returns a human-readable description for the model
	Description() string

	// InputSchema returns the JSON schema for the tool's input object
	InputSchema() map[string]any

	// Call executes the tool with the given raw JSON input
	Call(ctx context.Context, input json.RawMessage) (string, error)
}

// MissingFieldError reports a required input field that was absent or empty.
type MissingFieldError struct {
	Tool  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Tool, e.Field)
}

// UnknownToolError reports a dispatch to a tool that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

func decodeInput(tool string, raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: decode input: %w", tool, err)
	}
	return nil
}
