package mount

// Mounter defines the interface for unmounting and mount-state checks.
// Mounting itself is udev's job once the rules are installed; this tool
// only unmounts when tearing a device down.
type Mounter interface {
	// Unmount unmounts the target directory
	Unmount(target string) error
	// IsMounted checks if the target is mounted
	IsMounted(target string) (bool, error)
	// GetMountPoint returns the mount point for a source device
	// Returns empty string if not mounted
	GetMountPoint(source string) (string, error)
}
