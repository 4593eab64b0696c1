package mount

import (
	"fmt"
	"path/filepath"
	"syscall"

	"github.com/kriansa/uamount/internal/log"
	"github.com/kriansa/uamount/internal/procmounts"
)

// SyscallMounter implements Mounter using Linux syscalls
type SyscallMounter struct{}

// NewSyscallMounter creates a new syscall-based mounter
func NewSyscallMounter() *SyscallMounter {
	return &SyscallMounter{}
}

// Unmount unmounts the target directory
func (m *SyscallMounter) Unmount(target string) error {
	log.Debug("unmounting", "target", target)

	if err := syscall.Unmount(target, 0); err != nil {
		return fmt.Errorf("unmount %s: %w", target, err)
	}

	log.Debug("unmounted successfully", "target", target)
	return nil
}

// IsMounted checks if the target is mounted
func (m *SyscallMounter) IsMounted(target string) (bool, error) {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false, fmt.Errorf("get absolute path: %w", err)
	}

	mounts, err := procmounts.Parse()
	if err != nil {
		return false, fmt.Errorf("unable to parse mounts: %w", err)
	}

	for _, mount := range mounts {
		if mount.MountPoint == absTarget {
			return true, nil
		}
	}

	return false, nil
}

// GetMountPoint returns the mount point for a source device
func (m *SyscallMounter) GetMountPoint(source string) (string, error) {
	// Resolve source to absolute path
	absSource, err := filepath.EvalSymlinks(source)
	if err != nil {
		// If we can't resolve, try with original path
		absSource = source
	}

	mounts, err := procmounts.Parse()
	if err != nil {
		return "", fmt.Errorf("unable to parse mounts: %w", err)
	}

	for _, mount := range mounts {
		// Check both the original path and resolved path
		if mount.Device == source || mount.Device == absSource {
			return mount.MountPoint, nil
		}
	}

	return "", nil
}
