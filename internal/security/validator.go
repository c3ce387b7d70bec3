// Package security validates untrusted tool inputs before they touch the
// filesystem, the shell, or the API. Each validator returns a wrapper type
// whose only constructor is the validator itself, so downstream code cannot
// be handed an unchecked value.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxCommandLength = 1000
	maxPipes         = 2
	maxRedirects     = 2
	maxGlobStars     = 10
	minKeyLength     = 30
	maxKeyLength     = 100

	// MaxCheckedFileSize is the largest regular file the permission check
	// will let a tool open.
	MaxCheckedFileSize = 100 * 1024 * 1024
)

// Substrings that disqualify a command outright, matched case-insensitively.
var blockedCommands = []string{
	"rm -rf /",
	"sudo rm",
	"format",
	"del /f",
	"shutdown",
	"reboot",
	"halt",
	"poweroff",
	"mkfs",
	"fdisk",
	"dd if=",
}

// Characters never allowed in a path.
var dangerousPathChars = []rune{'\x00', '<', '>', '|', '"', '\n', '\r'}

// ValidatedPath is an absolute, canonical path inside the sandbox.
type ValidatedPath struct {
	path string
}

func (p ValidatedPath) String() string { return p.path }

// ValidatedCommand is a shell command that passed the safety checks.
type ValidatedCommand struct {
	command string
}

func (c ValidatedCommand) String() string { return c.command }

// ValidatedPattern is a glob pattern that passed the safety checks.
type ValidatedPattern struct {
	pattern string
}

func (p ValidatedPattern) String() string { return p.pattern }

// ValidatedKey is an API key with a plausible shape. String is deliberately
// absent so the key does not leak through casual formatting; use Reveal at
// the single point the transport needs it.
type ValidatedKey struct {
	key string
}

func (k ValidatedKey) Reveal() string { return k.key }

// ValidatePath checks raw against the sandbox rules and returns its
// canonical absolute form. Symlinks in existing ancestors are resolved
// before the containment check, so a link cannot smuggle the path outside
// the allowed roots.
func ValidatePath(raw string) (ValidatedPath, error) {
	if raw == "" {
		return ValidatedPath{}, fmt.Errorf("path is empty")
	}
	for _, r := range raw {
		if r < 0x20 {
			return ValidatedPath{}, fmt.Errorf("path contains control character")
		}
		for _, bad := range dangerousPathChars {
			if r == bad {
				return ValidatedPath{}, fmt.Errorf("path contains forbidden character %q", bad)
			}
		}
	}
	for _, part := range strings.Split(filepath.ToSlash(raw), "/") {
		if part == ".." {
			return ValidatedPath{}, fmt.Errorf("path contains parent traversal: %s", raw)
		}
	}
	if !filepath.IsAbs(raw) {
		return ValidatedPath{}, fmt.Errorf("path must be absolute: %s", raw)
	}

	canonical, err := canonicalize(filepath.Clean(raw))
	if err != nil {
		return ValidatedPath{}, fmt.Errorf("canonicalize %s: %w", raw, err)
	}

	roots, err := allowedRoots()
	if err != nil {
		return ValidatedPath{}, err
	}
	for _, root := range roots {
		if contains(root, canonical) {
			return ValidatedPath{path: canonical}, nil
		}
	}
	return ValidatedPath{}, fmt.Errorf("path outside allowed directories: %s", raw)
}

// ValidateCommand applies the length, pipe, redirect, and deny-list rules.
func ValidateCommand(raw string) (ValidatedCommand, error) {
	if strings.TrimSpace(raw) == "" {
		return ValidatedCommand{}, fmt.Errorf("command is empty")
	}
	if len(raw) > maxCommandLength {
		return ValidatedCommand{}, fmt.Errorf("command exceeds %d characters", maxCommandLength)
	}
	if n := strings.Count(raw, "|"); n > maxPipes {
		return ValidatedCommand{}, fmt.Errorf("command has %d pipes, limit is %d", n, maxPipes)
	}
	if n := strings.Count(raw, ">") + strings.Count(raw, "<"); n > maxRedirects {
		return ValidatedCommand{}, fmt.Errorf("command has %d redirects, limit is %d", n, maxRedirects)
	}
	lower := strings.ToLower(raw)
	for _, blocked := range blockedCommands {
		if strings.Contains(lower, blocked) {
			return ValidatedCommand{}, fmt.Errorf("command contains blocked operation %q", blocked)
		}
	}
	return ValidatedCommand{command: raw}, nil
}

// ValidateGlobPattern rejects traversal, NUL bytes, and star explosions.
func ValidateGlobPattern(raw string) (ValidatedPattern, error) {
	if raw == "" {
		return ValidatedPattern{}, fmt.Errorf("glob pattern is empty")
	}
	if strings.Contains(raw, "..") {
		return ValidatedPattern{}, fmt.Errorf("glob pattern contains parent traversal")
	}
	if strings.ContainsRune(raw, '\x00') {
		return ValidatedPattern{}, fmt.Errorf("glob pattern contains NUL byte")
	}
	if n := strings.Count(raw, "*"); n > maxGlobStars {
		return ValidatedPattern{}, fmt.Errorf("glob pattern has %d wildcards, limit is %d", n, maxGlobStars)
	}
	return ValidatedPattern{pattern: raw}, nil
}

// ValidateAPIKey checks the key prefix and length window.
func ValidateAPIKey(raw string) (ValidatedKey, error) {
	if !strings.HasPrefix(raw, "sk-ant-") {
		return ValidatedKey{}, fmt.Errorf("API key must start with sk-ant-")
	}
	if len(raw) < minKeyLength || len(raw) > maxKeyLength {
		return ValidatedKey{}, fmt.Errorf("API key length %d outside [%d, %d]", len(raw), minKeyLength, maxKeyLength)
	}
	return ValidatedKey{key: raw}, nil
}

// CheckFilePermissions verifies a validated path is safe to open. A missing
// file passes, since write targets do not exist yet. Symlinks are rejected
// even inside the sandbox, and regular files above the size cap are refused.
func CheckFilePermissions(p ValidatedPath) error {
	info, err := os.Lstat(p.String())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", p, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to follow symlink: %s", p)
	}
	if info.Mode().IsRegular() && info.Size() > MaxCheckedFileSize {
		return fmt.Errorf("file too large: %s is %d bytes, limit is %d", p, info.Size(), MaxCheckedFileSize)
	}
	return nil
}

// canonicalize resolves symlinks along the longest existing prefix of path
// and rejoins the remainder, so not-yet-created targets still canonicalize.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	prefix := path
	var suffix string
	for {
		parent := filepath.Dir(prefix)
		if parent == prefix {
			return path, nil
		}
		suffix = filepath.Join(filepath.Base(prefix), suffix)
		prefix = parent
		resolved, err = filepath.EvalSymlinks(prefix)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
	}
}

func allowedRoots() ([]string, error) {
	var roots []string
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	roots = append(roots, cwd)
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, home)
	}
	roots = append(roots, "/tmp", "/var/tmp")

	for i, root := range roots {
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			roots[i] = resolved
		}
	}
	return roots, nil
}

func contains(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
