// Package udev asks the device-event dispatcher to re-read its rule
// files after they change on disk.
package udev

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/kriansa/uamount/internal/log"
)

// Reloader triggers a rule reload in the device-event dispatcher
type Reloader interface {
	// Reload asks the dispatcher to re-read its rule files
	Reload() error
}

// UdevadmReloader implements Reloader using the udevadm CLI
type UdevadmReloader struct{}

// NewUdevadmReloader creates a new udevadm-based reloader
func NewUdevadmReloader() *UdevadmReloader {
	return &UdevadmReloader{}
}

// Reload runs "udevadm control --reload"
func (r *UdevadmReloader) Reload() error {
	log.Debug("reloading udev rules")

	args := []string{"control", "--reload"}
	output, err := exec.Command("udevadm", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("udevadm %s: %w (output: %q)", strings.Join(args, " "), err, string(output))
	}
	return nil
}
