package files

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// Manager provides the file operations used to publish a run's outputs:
// writing into a private staging directory and swapping it into place.
type Manager struct {
	fs afero.Fs
}

// NewManager creates a new file manager instance over fs
func NewManager(fs afero.Fs) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Manager{fs: fs}
}

// Fs returns the underlying filesystem
func (m *Manager) Fs() afero.Fs {
	return m.fs
}

// FileExists checks if a file or directory exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := m.fs.Stat(path)
	return err == nil
}

// CreateDirectory creates a directory with all parent directories
func (m *Manager) CreateDirectory(path string) error {
	return m.fs.MkdirAll(path, 0755)
}

// Create opens path for writing, creating its parent directory
func (m *Manager) Create(path string) (afero.File, error) {
	if err := m.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := m.fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}
	return f, nil
}

// WriteFile writes data to path, creating its parent directory
func (m *Manager) WriteFile(path string, data []byte) error {
	if err := m.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return afero.WriteFile(m.fs, path, data, 0644)
}

// CopyFile copies a file from source to destination
func (m *Manager) CopyFile(src, dst string) error {
	srcFile, err := m.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := m.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	return nil
}

// StagingDir returns the staging directory used by run runID under root
func StagingDir(root, runID string) string {
	return filepath.Join(root, ".staging-"+runID)
}

// PreviousDir returns the directory that holds the replaced output while a
// swap is in progress
func PreviousDir(root, runID string) string {
	return filepath.Join(root, ".previous-"+runID)
}

// Stage creates an empty staging directory for runID under root.
// A leftover staging directory from a crashed run with the same ID is removed first.
func (m *Manager) Stage(root, runID string) (string, error) {
	dir := StagingDir(root, runID)
	if err := m.fs.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	return dir, nil
}

// Discard removes a staging directory. Errors are logged, not returned,
// since Discard runs on failure paths.
func (m *Manager) Discard(dir string) {
	if err := m.fs.RemoveAll(dir); err != nil {
		slog.Warn("Failed to remove staging directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()))
	}
}

// Swap atomically replaces target with staged. The existing target, if any,
// is renamed aside first and restored when the final rename fails, so readers
// see either the old outputs or the new ones.
func (m *Manager) Swap(staged, target, runID string) error {
	sw, err := m.BeginSwap(staged, target, runID)
	if err != nil {
		return err
	}
	sw.Commit()
	return nil
}

// PendingSwap is a swap whose replaced outputs are still kept aside in the
// previous directory. It ends with exactly one of Commit or Rollback.
type PendingSwap struct {
	m         *Manager
	target    string
	previous  string
	runID     string
	hadTarget bool
}

// BeginSwap moves staged into place at target and keeps the replaced outputs
// aside so the swap can still be rolled back
func (m *Manager) BeginSwap(staged, target, runID string) (*PendingSwap, error) {
	sw := &PendingSwap{
		m:         m,
		target:    target,
		previous:  PreviousDir(filepath.Dir(target), runID),
		runID:     runID,
		hadTarget: m.FileExists(target),
	}

	if sw.hadTarget {
		if err := m.fs.RemoveAll(sw.previous); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", sw.previous, err)
		}
		if err := m.fs.Rename(target, sw.previous); err != nil {
			return nil, fmt.Errorf("failed to move current outputs aside: %w", err)
		}
	}

	if err := m.fs.Rename(staged, target); err != nil {
		sw.restore()
		return nil, fmt.Errorf("failed to publish staged outputs: %w", err)
	}
	return sw, nil
}

// Commit drops the replaced outputs
func (s *PendingSwap) Commit() {
	if s.hadTarget {
		if err := s.m.fs.RemoveAll(s.previous); err != nil {
			slog.Warn("Failed to remove previous outputs",
				slog.String("dir", s.previous),
				slog.String("error", err.Error()))
		}
	}
	slog.Info("Outputs published",
		slog.String("target", s.target),
		slog.String("run_id", s.runID))
}

// Rollback removes the new outputs and moves the replaced ones back to target
func (s *PendingSwap) Rollback() error {
	if err := s.m.fs.RemoveAll(s.target); err != nil {
		return fmt.Errorf("failed to remove new outputs: %w", err)
	}
	return s.restore()
}

func (s *PendingSwap) restore() error {
	if !s.hadTarget {
		return nil
	}
	if err := s.m.fs.Rename(s.previous, s.target); err != nil {
		slog.Error("Failed to restore previous outputs",
			slog.String("previous", s.previous),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to restore previous outputs: %w", err)
	}
	return nil
}
