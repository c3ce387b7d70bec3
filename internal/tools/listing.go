package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/kvit-s/kvit-agent/internal/security"
)

const (
	// maxListResults bounds the glob output handed to the model.
	maxListResults = 1000

	noFilesPlaceholder = "(no files found)"
)

// ListFilesTool globs for files under a validated base directory.
type ListFilesTool struct {
	logger *zap.Logger
}

func NewListFilesTool(logger *zap.Logger) *ListFilesTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListFilesTool{logger: logger}
}

func (t *ListFilesTool) Name() string { return "list_files" }

func (t *ListFilesTool) Description() string {
	return "List files matching a glob pattern (supports **), optionally under a base directory"
}

func (t *ListFilesTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern, e.g. *.go or src/**/*.rs",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Base directory, defaults to the working directory",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *ListFilesTool) Call(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := decodeInput(t.Name(), input, &args); err != nil {
		return "", err
	}
	if args.Pattern == "" {
		return "", &MissingFieldError{Tool: t.Name(), Field: "pattern"}
	}

	pattern, err := security.ValidateGlobPattern(args.Pattern)
	if err != nil {
		return "", fmt.Errorf("validate pattern: %w", err)
	}

	// An absolute pattern stands on its own; a relative one expands under
	// the validated base directory.
	var full string
	if filepath.IsAbs(pattern.String()) {
		prefix, _ := doublestar.SplitPattern(pattern.String())
		if _, err := security.ValidatePath(prefix); err != nil {
			return "", fmt.Errorf("validate pattern prefix: %w", err)
		}
		full = pattern.String()
	} else {
		base := args.Path
		if base == "" {
			base, err = os.Getwd()
			if err != nil {
				return "", fmt.Errorf("resolve working directory: %w", err)
			}
		}
		basePath, err := security.ValidatePath(base)
		if err != nil {
			return "", fmt.Errorf("validate base path: %w", err)
		}
		full = filepath.Join(basePath.String(), pattern.String())
	}

	matches, err := doublestar.FilepathGlob(full)
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	if len(matches) > maxListResults {
		t.logger.Warn("glob results capped",
			zap.String("pattern", pattern.String()),
			zap.Int("matches", len(matches)),
			zap.Int("kept", maxListResults))
		matches = matches[:maxListResults]
	}
	if len(matches) == 0 {
		return noFilesPlaceholder, nil
	}

	t.logger.Info("files listed",
		zap.String("pattern", pattern.String()),
		zap.Int("matches", len(matches)))
	return strings.Join(matches, "\n"), nil
}
