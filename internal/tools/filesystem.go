package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kvit-s/kvit-agent/internal/fileio"
	"github.com/kvit-s/kvit-agent/internal/security"
)

const (
	// maxReadResultBytes caps what read_file hands back to the model,
	// regardless of which I/O tier produced the content.
	maxReadResultBytes = 10 * 1024 * 1024
	// maxWriteContentBytes caps the write_file payload.
	maxWriteContentBytes = 50 * 1024 * 1024
	// maxDiffSourceBytes is the largest overwritten file worth diffing.
	maxDiffSourceBytes = 1024 * 1024
)

// ReadFileTool reads a validated file through the tiered processor.
type ReadFileTool struct {
	files  *fileio.Processor
	logger *zap.Logger
}

func NewReadFileTool(files *fileio.Processor, logger *zap.Logger) *ReadFileTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadFileTool{files: files, logger: logger}
}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file at the given absolute path"
}

func (t *ReadFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Absolute path of the file to read",
			},
		},
		"required": []string{"file_path"},
	}
}

func (t *ReadFileTool) Call(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		FilePath string `json:"file_path"`
	}
	if err := decodeInput(t.Name(), input, &args); err != nil {
		return "", err
	}
	if args.FilePath == "" {
		return "", &MissingFieldError{Tool: t.Name(), Field: "file_path"}
	}

	path, err := security.ValidatePath(args.FilePath)
	if err != nil {
		return "", fmt.Errorf("validate path: %w", err)
	}
	if err := security.CheckFilePermissions(path); err != nil {
		return "", err
	}

	content, err := t.files.Read(path.String())
	if err != nil {
		return "", err
	}
	if len(content) > maxReadResultBytes {
		return "", fmt.Errorf("file content too large: %d bytes, limit is %d", len(content), maxReadResultBytes)
	}

	t.logger.Info("file read",
		zap.String("path", path.String()),
		zap.Int("bytes", len(content)))
	return content, nil
}

// WriteFileTool writes validated content through the tiered processor.
type WriteFileTool struct {
	files  *fileio.Processor
	logger *zap.Logger
}

func NewWriteFileTool(files *fileio.Processor, logger *zap.Logger) *WriteFileTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WriteFileTool{files: files, logger: logger}
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write content to a file at the given absolute path, creating parent directories as needed"
}

func (t *WriteFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Absolute path of the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write",
			},
		},
		"required": []string{"file_path", "content"},
	}
}

func (t *WriteFileTool) Call(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		FilePath string  `json:"file_path"`
		Content  *string `json:"content"`
	}
	if err := decodeInput(t.Name(), input, &args); err != nil {
		return "", err
	}
	if args.FilePath == "" {
		return "", &MissingFieldError{Tool: t.Name(), Field: "file_path"}
	}
	if args.Content == nil {
		return "", &MissingFieldError{Tool: t.Name(), Field: "content"}
	}
	if len(*args.Content) > maxWriteContentBytes {
		return "", fmt.Errorf("content too large: %d bytes, limit is %d", len(*args.Content), maxWriteContentBytes)
	}

	path, err := security.ValidatePath(args.FilePath)
	if err != nil {
		return "", fmt.Errorf("validate path: %w", err)
	}
	if err := security.CheckFilePermissions(path); err != nil {
		return "", err
	}

	t.logOverwriteDiff(path.String(), *args.Content)

	if dir := filepath.Dir(path.String()); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := t.files.Write(path.String(), *args.Content); err != nil {
		return "", err
	}

	t.logger.Info("file written",
		zap.String("path", path.String()),
		zap.Int("bytes", len(*args.Content)))
	return fmt.Sprintf("Successfully wrote to file: %s", path), nil
}

// logOverwriteDiff records what an overwrite changed, at debug level only
// and only for files small enough to diff cheaply.
func (t *WriteFileTool) logOverwriteDiff(path, newContent string) {
	if !t.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > maxDiffSourceBytes {
		return
	}
	old, err := os.ReadFile(path)
	if err != nil {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(old)),
		B:        difflib.SplitLines(newContent),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	})
	if err != nil || diff == "" {
		return
	}
	t.logger.Debug("overwriting file", zap.String("path", path), zap.String("diff", diff))
}
