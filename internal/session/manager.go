// Package session persists finished conversations as JSONL transcripts.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kvit-s/kvit-agent/internal/llm"
)

// scanBufferSize bounds a single transcript line.
const scanBufferSize = 10 * 1024 * 1024

// Metadata is the first line of every transcript file.
type Metadata struct {
	CreatedAt time.Time `json:"created_at"`
	Version   string    `json:"version"`
	Model     string    `json:"model"`
}

// Info describes a stored session.
type Info struct {
	Name     string
	Path     string
	Modified time.Time
}

// Manager stores transcripts under a base directory,
// ~/.kvit-agent/sessions by default.
type Manager struct {
	baseDir string
}

func NewManager() (*Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return NewManagerAt(filepath.Join(home, ".kvit-agent", "sessions"))
}

func NewManagerAt(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory %s: %w", baseDir, err)
	}
	return &Manager{baseDir: baseDir}, nil
}

// GenerateName returns a date-prefixed unique session name.
func (m *Manager) GenerateName() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s", time.Now().Format("2006-01-02"), suffix)
}

func (m *Manager) pathFor(name string) string {
	return filepath.Join(m.baseDir, name+".jsonl")
}

// Save writes the metadata header followed by one message per line.
// The file is written to a temp name and renamed, so a crash cannot
// leave a half-written transcript behind.
func (m *Manager) Save(name string, meta Metadata, messages []llm.Message) error {
	lock, err := acquireDirLock(m.baseDir)
	if err != nil {
		return err
	}
	defer lock.release()

	tmp, err := os.CreateTemp(m.baseDir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp transcript: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	if err := enc.Encode(meta); err != nil {
		tmp.Close()
		return fmt.Errorf("encode metadata: %w", err)
	}
	for i, msg := range messages {
		if err := enc.Encode(msg); err != nil {
			tmp.Close()
			return fmt.Errorf("encode message %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close transcript: %w", err)
	}

	final := m.pathFor(name)
	if err := os.Rename(tmpName, final); err != nil {
		return fmt.Errorf("rename transcript to %s: %w", final, err)
	}
	return nil
}

// Load reads a transcript back.
func (m *Manager) Load(name string) (Metadata, []llm.Message, error) {
	var meta Metadata

	f, err := os.Open(m.pathFor(name))
	if err != nil {
		return meta, nil, fmt.Errorf("open session %s: %w", name, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), scanBufferSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return meta, nil, fmt.Errorf("read session %s: %w", name, err)
		}
		return meta, nil, fmt.Errorf("session %s is empty", name)
	}
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return meta, nil, fmt.Errorf("parse session %s metadata: %w", name, err)
	}

	var messages []llm.Message
	line := 1
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var msg llm.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return meta, nil, fmt.Errorf("parse session %s line %d: %w", name, line, err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return meta, nil, fmt.Errorf("read session %s: %w", name, err)
	}
	return meta, messages, nil
}

// List returns stored sessions, most recent first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read session directory: %w", err)
	}

	var sessions []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		sessions = append(sessions, Info{
			Name:     strings.TrimSuffix(entry.Name(), ".jsonl"),
			Path:     filepath.Join(m.baseDir, entry.Name()),
			Modified: fi.ModTime(),
		})
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Modified.After(sessions[j].Modified)
	})
	return sessions, nil
}
