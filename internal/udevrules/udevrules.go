// Package udevrules manages the per-device udev rule files that trigger
// mounting and unmounting when a managed device appears or disappears.
package udevrules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kriansa/uamount/internal/log"
)

// namespace tags rule files created by this tool so they are
// distinguishable from other rules in the same directory
const namespace = "uamount"

var (
	// ErrExists is returned when a rule file is already present
	ErrExists = errors.New("rule file already exists")
	// ErrNotFound is returned when the expected rule file is missing
	ErrNotFound = errors.New("rule file not found")
	// ErrMismatch is returned when a rule file does not reference the
	// expected filesystem UUID
	ErrMismatch = errors.New("rule file references a different device")
)

// Store manages rule files under a single rules directory
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a Store for the rules directory dir
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// Dir returns the rules directory
func (s *Store) Dir() string {
	return s.dir
}

// RulePath returns the deterministic rule file path for a priority and
// label. Lower priorities load earlier in udev.
func (s *Store) RulePath(priority int, label string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d-%s-%s.rules", priority, namespace, label))
}

// Exists reports whether a rule file is present at path
func (s *Store) Exists(path string) (bool, error) {
	_, err := s.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// Write creates the rule file at path for the given filesystem UUID. The
// file holds two rules: mount on device add, unmount on device remove.
// Both match on the UUID so they can never fire for another device.
func (s *Store) Write(path, uuid string) error {
	log.Debug("writing rule file", "path", path, "uuid", uuid)

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create rules directory: %w", err)
	}

	if err := afero.WriteFile(s.fs, path, []byte(Body(uuid)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Body returns the rule file contents for a filesystem UUID
func Body(uuid string) string {
	return fmt.Sprintf(
		"ACTION==\"add\", ENV{ID_FS_UUID}==\"%s\", RUN+=\"/usr/bin/mount -U %s\"\n"+
			"ACTION==\"remove\", ENV{ID_FS_UUID}==\"%s\", RUN+=\"/usr/bin/umount /dev/%%k\"\n",
		uuid, uuid, uuid)
}

// ValidateOwnership checks that every rule in the file at path matches
// the given UUID. A rule file that references any other UUID belongs to
// a different device and must never be deleted on its behalf.
func (s *Store) ValidateOwnership(path, uuid string) error {
	contents, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	matches := 0
	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ref, ok := ruleUUID(line)
		if !ok {
			continue
		}
		if ref != uuid {
			return fmt.Errorf("%w: %s matches %q, expected %q", ErrMismatch, path, ref, uuid)
		}
		matches++
	}

	if matches == 0 {
		return fmt.Errorf("%w: %s has no matching rules for %q", ErrMismatch, path, uuid)
	}
	return nil
}

// Delete removes the rule file at path
func (s *Store) Delete(path string) error {
	log.Debug("deleting rule file", "path", path)

	if err := s.fs.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// ruleUUID extracts the UUID a rule line matches on
func ruleUUID(line string) (string, bool) {
	const marker = `ENV{ID_FS_UUID}=="`

	_, rest, ok := strings.Cut(line, marker)
	if !ok {
		return "", false
	}
	uuid, _, ok := strings.Cut(rest, `"`)
	if !ok || uuid == "" {
		return "", false
	}
	return uuid, true
}
