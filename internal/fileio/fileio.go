// Package fileio reads and writes files with size-tiered strategies so a
// single huge file cannot stall or exhaust the agent.
package fileio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Config tunes the tier boundaries. The defaults match the tool contract;
// tests shrink them to exercise every tier cheaply.
type Config struct {
	// LargeFileThreshold separates whole-file reads from buffered reads.
	LargeFileThreshold int
	// MediumFileLimit separates buffered reads from chunked reads.
	MediumFileLimit int
	// BufferSize is the bufio buffer for the middle tier.
	BufferSize int
	// ChunkSize is the unit of chunked reads and writes.
	ChunkSize int
	// MaxChunkedBytes caps how much of a very large file is returned.
	MaxChunkedBytes int
}

func DefaultConfig() Config {
	return Config{
		LargeFileThreshold: 1024 * 1024,
		MediumFileLimit:    50 * 1024 * 1024,
		BufferSize:         64 * 1024,
		ChunkSize:          8 * 1024,
		MaxChunkedBytes:    10 * 1024 * 1024,
	}
}

// DecodeError reports a file whose bytes are not valid UTF-8.
type DecodeError struct {
	Path string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("file contains invalid UTF-8: %s", e.Path)
}

// Processor dispatches file operations by size tier.
type Processor struct {
	cfg    Config
	logger *zap.Logger
}

func NewProcessor(logger *zap.Logger) *Processor {
	return NewProcessorWithConfig(DefaultConfig(), logger)
}

func NewProcessorWithConfig(cfg Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{cfg: cfg, logger: logger}
}

// Read returns the file content as a string, picking a strategy from the
// file size. Files beyond MediumFileLimit are truncated at MaxChunkedBytes;
// truncation is logged, not an error.
func (p *Processor) Read(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	size := int(info.Size())

	var raw []byte
	switch {
	case size == 0:
		return "", nil
	case size <= p.cfg.LargeFileThreshold:
		raw, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	case size <= p.cfg.MediumFileLimit:
		raw, err = p.readBuffered(path, size)
		if err != nil {
			return "", err
		}
	default:
		raw, err = p.readChunked(path, size)
		if err != nil {
			return "", err
		}
	}

	if !utf8.Valid(raw) {
		return "", &DecodeError{Path: path}
	}
	return string(raw), nil
}

func (p *Processor) readBuffered(path string, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 0, size)
	reader := bufio.NewReaderSize(f, p.cfg.BufferSize)
	chunk := make([]byte, p.cfg.BufferSize)
	for {
		n, err := reader.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
}

func (p *Processor) readChunked(path string, size int) ([]byte, error) {
	p.logger.Warn("reading very large file in chunks",
		zap.String("path", path), zap.Int("size", size))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 0, p.cfg.MaxChunkedBytes)
	chunk := make([]byte, p.cfg.ChunkSize)
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			if len(buf)+n >= p.cfg.MaxChunkedBytes {
				buf = append(buf, chunk[:p.cfg.MaxChunkedBytes-len(buf)]...)
				p.logger.Warn("file truncated",
					zap.String("path", path),
					zap.Int("kept", len(buf)),
					zap.Int("size", size))
				return buf, nil
			}
			buf = append(buf, chunk[:n]...)
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read chunk from %s: %w", path, err)
		}
	}
}

// Write stores content, whole-file for small payloads and chunked with
// parent-directory creation for large ones.
func (p *Processor) Write(path, content string) error {
	if len(content) <= p.cfg.LargeFileThreshold {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}
	return p.writeChunked(path, content)
}

func (p *Processor) writeChunked(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, p.cfg.BufferSize)
	data := []byte(content)
	for off := 0; off < len(data); off += p.cfg.ChunkSize {
		end := off + p.cfg.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[off:end]); err != nil {
			return fmt.Errorf("write chunk to %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

// ProcessLines streams the file line by line through fn. The first handler
// error aborts the scan and is returned wrapped with the path.
func (p *Processor) ProcessLines(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, p.cfg.BufferSize), p.cfg.MaxChunkedBytes)
	lineCount := 0
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return fmt.Errorf("process line %d of %s: %w", lineCount+1, path, err)
		}
		lineCount++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	p.logger.Debug("processed file lines",
		zap.String("path", path), zap.Int("lines", lineCount))
	return nil
}
