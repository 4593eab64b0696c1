package reconciler

import (
	"fmt"
	"strings"

	"github.com/kriansa/uamount/internal/fstab"
)

// pendingChange describes a not-yet-applied mutation of both stores. It
// only exists between planning and confirmation; nothing is written
// until the operator accepts it.
type pendingChange struct {
	action     string // "add" or "remove"
	entry      fstab.Entry
	tablePath  string
	rulePath   string
	mountPoint string
	createdDir bool
}

// summary renders the pending change for the confirmation prompt
func (p pendingChange) summary() string {
	var b strings.Builder

	switch p.action {
	case "add":
		fmt.Fprintf(&b, "About to configure automounting for UUID %s:\n", p.entry.UUID)
		fmt.Fprintf(&b, "  append to %s:\n    %s\n", p.tablePath, p.entry)
		fmt.Fprintf(&b, "  create rule file %s\n", p.rulePath)
		if p.createdDir {
			fmt.Fprintf(&b, "  mount directory %s was created for this change\n", p.mountPoint)
		}
	case "remove":
		fmt.Fprintf(&b, "About to remove automounting for UUID %s:\n", p.entry.UUID)
		fmt.Fprintf(&b, "  remove from %s:\n    %s\n", p.tablePath, p.entry)
		fmt.Fprintf(&b, "  delete rule file %s\n", p.rulePath)
	}

	b.WriteString("Proceed?")
	return b.String()
}
