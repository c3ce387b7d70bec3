package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kvit-s/kvit-agent/internal/fileio"
)

func newTestExecutor() *Executor {
	return NewExecutor(fileio.NewProcessor(nil), nil)
}

func callTool(t *testing.T, e *Executor, name, input string) (string, error) {
	t.Helper()
	return e.Execute(context.Background(), name, json.RawMessage(input))
}

func TestSpecsManifest(t *testing.T) {
	e := newTestExecutor()
	specs := e.Specs()
	if len(specs) != 4 {
		t.Fatalf("manifest has %d tools, want 4", len(specs))
	}

	// Sorted order is part of the contract.
	want := []string{"execute_command", "list_files", "read_file", "write_file"}
	for i, spec := range specs {
		if spec.Name != want[i] {
			t.Errorf("specs[%d] = %s, want %s", i, spec.Name, want[i])
		}
		if spec.InputSchema["type"] != "object" {
			t.Errorf("%s schema is not an object", spec.Name)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	e := newTestExecutor()
	_, err := callTool(t, e, "delete_everything", `{}`)
	var unknownErr *UnknownToolError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("error = %v, want *UnknownToolError", err)
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	e := newTestExecutor()
	path := filepath.Join(t.TempDir(), "note.txt")

	input, _ := json.Marshal(map[string]string{
		"file_path": path,
		"content":   "hello tools",
	})
	out, err := e.Execute(context.Background(), "write_file", input)
	if err != nil {
		t.Fatalf("write_file: %v", err)
	}
	want := fmt.Sprintf("Successfully wrote to file: %s", path)
	if out != want {
		t.Errorf("write_file output = %q, want %q", out, want)
	}

	readInput, _ := json.Marshal(map[string]string{"file_path": path})
	got, err := e.Execute(context.Background(), "read_file", readInput)
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if got != "hello tools" {
		t.Errorf("read_file = %q", got)
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	e := newTestExecutor()
	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")

	input, _ := json.Marshal(map[string]string{"file_path": path, "content": "deep"})
	if _, err := e.Execute(context.Background(), "write_file", input); err != nil {
		t.Fatalf("write_file: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestMissingRequiredFields(t *testing.T) {
	e := newTestExecutor()
	cases := []struct {
		tool  string
		input string
		field string
	}{
		{"read_file", `{}`, "file_path"},
		{"write_file", `{"file_path": "/tmp/x.txt"}`, "content"},
		{"write_file", `{"content": "x"}`, "file_path"},
		{"execute_command", `{}`, "command"},
		{"list_files", `{}`, "pattern"},
	}
	for _, tc := range cases {
		_, err := callTool(t, e, tc.tool, tc.input)
		var missing *MissingFieldError
		if !errors.As(err, &missing) {
			t.Errorf("%s(%s): error = %v, want *MissingFieldError", tc.tool, tc.input, err)
			continue
		}
		if missing.Field != tc.field {
			t.Errorf("%s: missing field = %q, want %q", tc.tool, missing.Field, tc.field)
		}
	}
}

func TestReadFileRejectsTraversal(t *testing.T) {
	e := newTestExecutor()
	input := `{"file_path": "/tmp/../etc/passwd"}`
	if _, err := callTool(t, e, "read_file", input); err == nil {
		t.Error("traversal path accepted")
	}
}

func TestExecuteCommand(t *testing.T) {
	e := newTestExecutor()

	out, err := callTool(t, e, "execute_command", `{"command": "echo hello"}`)
	if err != nil {
		t.Fatalf("execute_command: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("output = %q, want hello", out)
	}
}

func TestExecuteCommandNoOutput(t *testing.T) {
	e := newTestExecutor()

	out, err := callTool(t, e, "execute_command", `{"command": "true"}`)
	if err != nil {
		t.Fatalf("execute_command: %v", err)
	}
	if out != "(command produced no output)" {
		t.Errorf("output = %q", out)
	}
}

func TestExecuteCommandNonZeroExitIsNotFailure(t *testing.T) {
	e := newTestExecutor()

	out, err := callTool(t, e, "execute_command", `{"command": "ls /nonexistent-path-for-test"}`)
	if err != nil {
		t.Fatalf("non-zero exit should not be an error, got: %v", err)
	}
	if out == "" || out == "(command produced no output)" {
		t.Errorf("expected stderr in output, got %q", out)
	}
}

func TestExecuteCommandRejectsBlocked(t *testing.T) {
	e := newTestExecutor()
	if _, err := callTool(t, e, "execute_command", `{"command": "sudo rm -rf /tmp/x"}`); err == nil {
		t.Error("blocked command accepted")
	}
}

func TestListFilesFiltersByPattern(t *testing.T) {
	e := newTestExecutor()
	dir := t.TempDir()
	for _, name := range []string{"a.rs", "b.rs", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	input, _ := json.Marshal(map[string]string{"pattern": "*.rs", "path": dir})
	out, err := e.Execute(context.Background(), "list_files", input)
	if err != nil {
		t.Fatalf("list_files: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("matched %d files, want 2: %q", len(lines), out)
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, ".rs") {
			t.Errorf("unexpected match %q", line)
		}
	}
}

func TestListFilesAbsolutePattern(t *testing.T) {
	e := newTestExecutor()
	dir := t.TempDir()
	for _, name := range []string{"a.rs", "b.rs", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// An absolute pattern matches directly, without a base path.
	input, _ := json.Marshal(map[string]string{"pattern": filepath.Join(dir, "*.rs")})
	out, err := e.Execute(context.Background(), "list_files", input)
	if err != nil {
		t.Fatalf("list_files: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("matched %d files, want 2: %q", len(lines), out)
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, ".rs") {
			t.Errorf("unexpected match %q", line)
		}
	}
}

func TestListFilesAbsolutePatternOutsideSandbox(t *testing.T) {
	e := newTestExecutor()

	input, _ := json.Marshal(map[string]string{"pattern": "/etc/*.conf"})
	if _, err := e.Execute(context.Background(), "list_files", input); err == nil {
		t.Error("absolute pattern outside allowed directories accepted")
	}
}

func TestListFilesNoMatches(t *testing.T) {
	e := newTestExecutor()
	dir := t.TempDir()

	input, _ := json.Marshal(map[string]string{"pattern": "*.nomatch", "path": dir})
	out, err := e.Execute(context.Background(), "list_files", input)
	if err != nil {
		t.Fatalf("list_files: %v", err)
	}
	if out != "(no files found)" {
		t.Errorf("output = %q", out)
	}
}

func TestListFilesDoubleStar(t *testing.T) {
	e := newTestExecutor()
	dir := t.TempDir()
	sub := filepath.Join(dir, "src", "inner")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "deep.go"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	input, _ := json.Marshal(map[string]string{"pattern": "**/*.go", "path": dir})
	out, err := e.Execute(context.Background(), "list_files", input)
	if err != nil {
		t.Fatalf("list_files: %v", err)
	}
	if !strings.Contains(out, "deep.go") {
		t.Errorf("recursive glob missed nested file: %q", out)
	}
}
