package session

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFileName = ".kvit-agent.lock"

// dirLock holds an exclusive flock on the session directory so two agent
// processes cannot interleave transcript writes.
type dirLock struct {
	file *os.File
	path string
}

func acquireDirLock(dir string) (*dirLock, error) {
	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create session lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("session directory %q is in use by another instance", dir)
	}

	// PID for debugging a stuck lock.
	f.Truncate(0)
	f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	return &dirLock{file: f, path: path}, nil
}

func (l *dirLock) release() {
	if l.file == nil {
		return
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
}
