package fstab

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/kriansa/uamount/internal/log"
)

// ErrNotFound is returned when no entry matches the requested UUID
var ErrNotFound = errors.New("mount table entry not found")

// Store reads and writes a mount table file
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore creates a Store for the mount table at path
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Path returns the mount table file path
func (s *Store) Path() string {
	return s.path
}

// FindByUUID returns the entry whose UUID field equals uuid exactly.
// Matching is on the whole first field, so a UUID that happens to be a
// prefix of another never matches it. Returns ErrNotFound if absent.
func (s *Store) FindByUUID(uuid string) (Entry, error) {
	lines, err := s.readLines()
	if err != nil {
		return Entry{}, err
	}

	for _, line := range lines {
		entry, ok := ParseLine(line)
		if ok && entry.UUID == uuid {
			return entry, nil
		}
	}

	return Entry{}, ErrNotFound
}

// Append adds a new entry at the end of the table
func (s *Store) Append(entry Entry) error {
	log.Debug("appending mount table entry", "path", s.path, "uuid", entry.UUID)

	contents, err := afero.ReadFile(s.fs, s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	out := string(contents)
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	out += entry.String() + "\n"

	if err := s.writeFile(out); err != nil {
		return err
	}
	return nil
}

// RemoveByUUID rewrites the table without the line matching uuid. All
// other lines, including comments, are preserved untouched. Returns
// ErrNotFound if no line matches.
func (s *Store) RemoveByUUID(uuid string) error {
	log.Debug("removing mount table entry", "path", s.path, "uuid", uuid)

	contents, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	trailingNewline := strings.HasSuffix(string(contents), "\n")
	lines := strings.Split(strings.TrimSuffix(string(contents), "\n"), "\n")

	kept := make([]string, 0, len(lines))
	removed := false
	for _, line := range lines {
		entry, ok := ParseLine(line)
		if ok && entry.UUID == uuid {
			removed = true
			continue
		}
		kept = append(kept, line)
	}

	if !removed {
		return ErrNotFound
	}

	out := strings.Join(kept, "\n")
	if trailingNewline && out != "" {
		out += "\n"
	}

	return s.writeFile(out)
}

func (s *Store) readLines() ([]string, error) {
	contents, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	return strings.Split(strings.TrimSuffix(string(contents), "\n"), "\n"), nil
}

func (s *Store) writeFile(contents string) error {
	mode := os.FileMode(0644)
	if info, err := s.fs.Stat(s.path); err == nil {
		mode = info.Mode()
	}

	if err := afero.WriteFile(s.fs, s.path, []byte(contents), mode); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
