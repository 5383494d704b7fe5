package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"igarchive/pkg/jsonval"
)

// Manager owns the archive output tree
type Manager struct {
	root string
}

// NewManager creates the output root if needed
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{root: root}, nil
}

// Root returns the output root
func (m *Manager) Root() string {
	return m.root
}

// Path joins elements onto the output root
func (m *Manager) Path(elem ...string) string {
	return filepath.Join(append([]string{m.root}, elem...)...)
}

// EnsureDir creates dir and its parents; existing directories are fine
func (m *Manager) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether path is present. Directory existence is the
// archive's "already downloaded" marker.
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteJSON writes v indented, preserving member order
func (m *Manager) WriteJSON(path string, v jsonval.Value) error {
	return m.writeAtomic(path, v.Pretty())
}

// WriteText writes a UTF-8 text file
func (m *Manager) WriteText(path, text string) error {
	return m.writeAtomic(path, []byte(text))
}

func (m *Manager) writeAtomic(path string, data []byte) error {
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// WriteStream copies r into dir/name through a temporary file and returns
// the number of bytes written. A partial download never leaves name behind.
func (m *Manager) WriteStream(dir, name string, r io.Reader) (int64, error) {
	filename := filepath.Join(dir, name)
	tempFile := filename + ".part"

	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to save asset data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return n, nil
}

var (
	unsafeName     = regexp.MustCompile(`[^a-zA-Z0-9 _-]`)
	unsafeFileName = regexp.MustCompile(`[^a-zA-Z0-9._ -]+`)
)

const maxNameLength = 100

// SanitizeName maps a label (query name, highlight title) to a directory or
// file stem: anything outside [A-Za-z0-9 _-] becomes '_', capped at 100 chars.
func SanitizeName(name string) string {
	safe := unsafeName.ReplaceAllString(name, "_")
	if len(safe) > maxNameLength {
		safe = safe[:maxNameLength]
	}
	if safe == "" {
		return "unnamed"
	}
	return safe
}

// SanitizeFileName keeps the extension dot and strips any directory part
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	safe := strings.Trim(unsafeFileName.ReplaceAllString(name, "_"), " .")
	if len(safe) > maxNameLength {
		ext := filepath.Ext(safe)
		if len(ext) > 10 {
			ext = ""
		}
		safe = safe[:maxNameLength-len(ext)] + ext
	}
	if safe == "" || safe == "_" {
		return ""
	}
	return safe
}
