package joinlist

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps the join list in a text file, one login per line. The read-check-append
// sequence runs under mu, so concurrent requests for the same new login write it once. Other
// processes appending to the same file are not coordinated with.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store for path. The file is created on first Add.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Add appends login if it is not already listed.
func (s *FileStore) Add(ctx context.Context, login string) (bool, error) {
	l, err := NormalizeLogin(login)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("read join list: %w", err)
	}
	for _, existing := range parseLines(data) {
		if strings.EqualFold(existing, l) {
			return false, nil
		}
	}

	entry := l + "\n"
	// a file edited by hand may lack the trailing newline
	if len(data) > 0 && data[len(data)-1] != '\n' {
		entry = "\n" + entry
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("open join list: %w", err)
	}
	if _, err := f.WriteString(entry); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("append join list: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close join list: %w", err)
	}
	return true, nil
}

// List returns all logins in file order. A missing file is an empty list.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read join list: %w", err)
	}
	return parseLines(data), nil
}

// Ping checks that the file's directory exists so a later Add can create the file.
func (s *FileStore) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("join list dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("join list dir %s is not a directory", dir)
	}
	return nil
}

// parseLines splits data into trimmed, non-empty lines.
func parseLines(data []byte) []string {
	out := []string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}
