package reconciler

import "errors"

var (
	// ErrDuplicateEntry is returned when the mount table already holds a
	// record for the device being added
	ErrDuplicateEntry = errors.New("device already present in mount table")

	// ErrTargetNotEmpty is returned when the requested mount directory
	// exists and contains files
	ErrTargetNotEmpty = errors.New("mount directory is not empty")
)
