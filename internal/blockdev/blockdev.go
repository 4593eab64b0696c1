package blockdev

import "errors"

// ErrNoUUID is returned when a block device exposes no filesystem UUID,
// e.g. when it is unformatted
var ErrNoUUID = errors.New("device has no filesystem UUID")

// Resolver resolves a block device path to its filesystem UUID, the
// stable identity used to key both configuration stores
type Resolver interface {
	// Resolve returns the filesystem UUID for the device at devicePath.
	// Returns ErrNoUUID when the device exposes none.
	Resolve(devicePath string) (string, error)
}

// NewResolver creates a Resolver based on the specified backend
func NewResolver(backend string) (Resolver, error) {
	switch backend {
	case "blkid":
		return NewBlkidResolver(), nil
	case "dbus":
		return NewDBusResolver()
	default:
		return nil, errors.New("unknown resolver backend: " + backend + " (use 'blkid' or 'dbus')")
	}
}
