// Package fstab reads and mutates the system mount table, keyed by
// filesystem UUID. It only ever appends whole lines or deletes whole
// lines; everything else in the file is preserved byte for byte.
package fstab

import (
	"fmt"
	"strconv"
	"strings"
)

// uuidPrefix is the spec-field prefix used for entries managed by this tool
const uuidPrefix = "UUID="

// Entry represents a single mount table record
type Entry struct {
	// UUID is the filesystem UUID, without the "UUID=" prefix
	UUID string
	// MountPoint is the mount destination directory
	MountPoint string
	// FSType is the filesystem type field (managed entries use "auto")
	FSType string
	// Options is the comma-separated mount options field
	Options string
	// Dump is the dump(8) flag
	Dump int
	// Pass is the fsck order flag
	Pass int
}

// NewEntry builds the mount table record used for managed devices:
// type autodetection, not mounted at boot.
func NewEntry(uuid, mountPoint string) Entry {
	return Entry{
		UUID:       uuid,
		MountPoint: mountPoint,
		FSType:     "auto",
		Options:    "defaults,noauto",
		Dump:       0,
		Pass:       0,
	}
}

// String serializes the entry as a single mount table line, without a
// trailing newline.
func (e Entry) String() string {
	return fmt.Sprintf("%s%s %s %s %s %d %d",
		uuidPrefix, e.UUID, e.MountPoint, e.FSType, e.Options, e.Dump, e.Pass)
}

// ParseLine parses a single mount table line. It returns false for blank
// lines, comments, lines with too few fields, and entries not keyed by
// UUID — those are lines this tool does not manage.
func ParseLine(line string) (Entry, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Entry{}, false
	}

	fields := strings.Fields(trimmed)
	if len(fields) < 4 {
		return Entry{}, false
	}

	uuid, ok := strings.CutPrefix(fields[0], uuidPrefix)
	if !ok || uuid == "" {
		return Entry{}, false
	}

	entry := Entry{
		UUID:       uuid,
		MountPoint: fields[1],
		FSType:     fields[2],
		Options:    fields[3],
	}

	if len(fields) > 4 {
		if dump, err := strconv.Atoi(fields[4]); err == nil {
			entry.Dump = dump
		}
	}
	if len(fields) > 5 {
		if pass, err := strconv.Atoi(fields[5]); err == nil {
			entry.Pass = pass
		}
	}

	return entry, true
}
