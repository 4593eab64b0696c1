// Package procmounts reports the kernel's current mount state, used to
// decide whether a managed device must be unmounted before its mount
// directory can be removed.
package procmounts

// Entry represents an entry in /proc/mounts
type Entry struct {
	Device     string
	MountPoint string
	FSType     string
	Options    string
}
