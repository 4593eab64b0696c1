package blockdev

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kriansa/uamount/internal/log"
)

// blkidCommand runs blkid for a device. It is a package-level variable so
// tests can replace it with a stub.
var blkidCommand = func(devicePath string) ([]byte, error) {
	return exec.Command("blkid", "-s", "UUID", "-o", "value", devicePath).Output()
}

// BlkidResolver resolves device identities using the blkid CLI
type BlkidResolver struct{}

// NewBlkidResolver creates a new blkid-based resolver
func NewBlkidResolver() *BlkidResolver {
	return &BlkidResolver{}
}

// Resolve queries blkid for the filesystem UUID of devicePath
func (r *BlkidResolver) Resolve(devicePath string) (string, error) {
	log.Debug("resolving device identity", "device", devicePath, "backend", "blkid")

	output, err := blkidCommand(devicePath)
	if err != nil {
		// blkid exits 2 when the requested tag is not found
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 2 {
			return "", fmt.Errorf("%s: %w", devicePath, ErrNoUUID)
		}
		return "", fmt.Errorf("blkid %s: %w", devicePath, err)
	}

	uuid := strings.TrimSpace(string(output))
	if uuid == "" {
		return "", fmt.Errorf("%s: %w", devicePath, ErrNoUUID)
	}

	log.Debug("device identity resolved", "device", devicePath, "uuid", uuid)
	return uuid, nil
}
