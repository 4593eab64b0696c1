// Package backup snapshots the mount table before mutation. Backups are
// numbered incrementally and never overwritten or pruned.
package backup

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/kriansa/uamount/internal/log"
)

// Manager creates numbered backup copies of files
type Manager struct {
	fs afero.Fs
}

// NewManager creates a backup Manager over fs
func NewManager(fs afero.Fs) *Manager {
	return &Manager{fs: fs}
}

// Snapshot copies path to the first unused "<path>_BAK<N>" name, starting
// at N=1, and returns the backup path. An existing backup is never
// overwritten. A source that does not exist yet means there is nothing
// to back up; the empty path is returned.
func (m *Manager) Snapshot(path string) (string, error) {
	contents, err := afero.ReadFile(m.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("skipping backup, source does not exist", "path", path)
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	mode := os.FileMode(0644)
	if info, err := m.fs.Stat(path); err == nil {
		mode = info.Mode()
	}

	for n := 1; ; n++ {
		backupPath := fmt.Sprintf("%s_BAK%d", path, n)

		exists, err := afero.Exists(m.fs, backupPath)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", backupPath, err)
		}
		if exists {
			continue
		}

		if err := afero.WriteFile(m.fs, backupPath, contents, mode); err != nil {
			return "", fmt.Errorf("write backup %s: %w", backupPath, err)
		}

		log.Debug("created backup", "path", backupPath)
		return backupPath, nil
	}
}
