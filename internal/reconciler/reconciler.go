// Package reconciler holds the cross-store logic: given a device and an
// intent (mount target present = add, absent = remove), it computes the
// paired mutation of the mount table and the udev rule store, checks the
// two stores for conflicting state, and applies the mutation behind a
// backup and an operator confirmation.
package reconciler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kriansa/uamount/internal/backup"
	"github.com/kriansa/uamount/internal/blockdev"
	"github.com/kriansa/uamount/internal/fstab"
	"github.com/kriansa/uamount/internal/log"
	"github.com/kriansa/uamount/internal/mount"
	"github.com/kriansa/uamount/internal/prompt"
	"github.com/kriansa/uamount/internal/udev"
	"github.com/kriansa/uamount/internal/udevrules"
	"github.com/kriansa/uamount/internal/validation"
)

// Config carries every behavior toggle the reconciler consults. It is
// built once by the CLI layer and passed in explicitly.
type Config struct {
	// FstabPath is the mount table file
	FstabPath string
	// RuleDir is the udev rules directory
	RuleDir string
	// MediaDir is the base directory bare target names resolve under
	MediaDir string
	// User optionally scopes bare target names under MediaDir/User
	User string
	// RuleLabel overrides the rule file label; empty means use the UUID
	RuleLabel string
	// RulePriority is the udev rule priority
	RulePriority int
	// Backup snapshots the mount table before mutating it
	Backup bool
	// ReloadRules triggers a udev reload after a successful change
	ReloadRules bool
	// RemoveMountPoint offers to delete the mount directory on removal
	RemoveMountPoint bool
}

// Result reports the outcome of one reconciliation run
type Result struct {
	// UUID is the resolved device identity
	UUID string
	// Cancelled is true when the operator declined the change
	Cancelled bool
	// MountPoint is the mount directory the change refers to
	MountPoint string
	// RulePath is the rule file the change refers to
	RulePath string
	// BackupPath is the mount table backup, when backups are enabled
	BackupPath string
	// Warnings holds non-fatal problems hit after the stores were updated
	Warnings []string
}

// Reconciler applies paired mutations to the mount table and rule store
type Reconciler struct {
	fs       afero.Fs
	cfg      Config
	table    *fstab.Store
	rules    *udevrules.Store
	backups  *backup.Manager
	resolver blockdev.Resolver
	prompter prompt.Prompter
	mounter  mount.Mounter
	reloader udev.Reloader
}

// New creates a Reconciler. The stores are built from the paths in cfg
// on top of fs.
func New(
	fs afero.Fs,
	cfg Config,
	resolver blockdev.Resolver,
	prompter prompt.Prompter,
	mounter mount.Mounter,
	reloader udev.Reloader,
) *Reconciler {
	return &Reconciler{
		fs:       fs,
		cfg:      cfg,
		table:    fstab.NewStore(fs, cfg.FstabPath),
		rules:    udevrules.NewStore(fs, cfg.RuleDir),
		backups:  backup.NewManager(fs),
		resolver: resolver,
		prompter: prompter,
		mounter:  mounter,
		reloader: reloader,
	}
}

// Add configures persistent automounting for the device at devicePath,
// mounted at target. A bare target name is placed under the media base
// directory; a target containing a path separator is used as-is.
func (r *Reconciler) Add(devicePath, target string) (*Result, error) {
	uuid, err := r.resolver.Resolve(devicePath)
	if err != nil {
		return nil, fmt.Errorf("resolve device identity: %w", err)
	}

	label := r.ruleLabel(uuid)
	if err := validation.ValidateLabel(label); err != nil {
		return nil, fmt.Errorf("invalid rule label %q: %w", label, err)
	}
	if err := validation.ValidatePriority(r.cfg.RulePriority); err != nil {
		return nil, err
	}

	mountPoint, err := r.normalizeTarget(target)
	if err != nil {
		return nil, err
	}

	// Both stores must agree the device is unmanaged before anything
	// is written
	if existing, err := r.table.FindByUUID(uuid); err == nil {
		return nil, fmt.Errorf("%w: %s is already configured to mount at %s",
			ErrDuplicateEntry, uuid, existing.MountPoint)
	} else if !errors.Is(err, fstab.ErrNotFound) {
		return nil, fmt.Errorf("check mount table: %w", err)
	}

	rulePath := r.rules.RulePath(r.cfg.RulePriority, label)
	ruleExists, err := r.rules.Exists(rulePath)
	if err != nil {
		return nil, fmt.Errorf("check rule store: %w", err)
	}
	if ruleExists {
		return nil, fmt.Errorf("%w: %s", udevrules.ErrExists, rulePath)
	}

	createdDir, err := r.prepareMountPoint(mountPoint)
	if err != nil {
		return nil, err
	}

	entry := fstab.NewEntry(uuid, mountPoint)
	change := pendingChange{
		action:     "add",
		entry:      entry,
		tablePath:  r.table.Path(),
		rulePath:   rulePath,
		mountPoint: mountPoint,
		createdDir: createdDir,
	}

	accepted, err := r.prompter.Confirm(change.summary())
	if err != nil || !accepted {
		// Undo the speculative directory creation, then exit with the
		// stores untouched
		if createdDir {
			if rmErr := r.fs.Remove(mountPoint); rmErr != nil {
				log.Warn("failed to remove created mount directory", "path", mountPoint, "error", rmErr)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("confirm change: %w", err)
		}
		log.Info("cancelled by operator; no changes made")
		return &Result{UUID: uuid, Cancelled: true}, nil
	}

	result := &Result{UUID: uuid, MountPoint: mountPoint, RulePath: rulePath}

	if r.cfg.Backup {
		backupPath, err := r.backups.Snapshot(r.table.Path())
		if err != nil {
			return nil, fmt.Errorf("backup mount table: %w", err)
		}
		result.BackupPath = backupPath
	}

	if err := r.table.Append(entry); err != nil {
		return nil, fmt.Errorf("update mount table: %w", err)
	}

	if err := r.rules.Write(rulePath, uuid); err != nil {
		// The table was already updated; there is no rollback here, the
		// error message points the operator at the half-applied state
		return nil, fmt.Errorf("write rule file (mount table entry for %s was already added): %w", uuid, err)
	}

	r.reload(result)

	log.Info("device configured", "uuid", uuid, "mount_point", mountPoint, "rule", rulePath)
	return result, nil
}

// Remove tears down the automount configuration for the device at
// devicePath. The rule label and priority must match what was used when
// the device was added; they are not recoverable from the mount table.
func (r *Reconciler) Remove(devicePath string) (*Result, error) {
	uuid, err := r.resolver.Resolve(devicePath)
	if err != nil {
		return nil, fmt.Errorf("resolve device identity: %w", err)
	}

	entry, err := r.table.FindByUUID(uuid)
	if err != nil {
		if errors.Is(err, fstab.ErrNotFound) {
			return nil, fmt.Errorf("%w for UUID %s: device is not managed", fstab.ErrNotFound, uuid)
		}
		return nil, fmt.Errorf("check mount table: %w", err)
	}

	label := r.ruleLabel(uuid)
	rulePath := r.rules.RulePath(r.cfg.RulePriority, label)

	ruleExists, err := r.rules.Exists(rulePath)
	if err != nil {
		return nil, fmt.Errorf("check rule store: %w", err)
	}
	if !ruleExists {
		return nil, fmt.Errorf("%w: %s (was a different label or priority used when adding?)",
			udevrules.ErrNotFound, rulePath)
	}

	// Never delete a rule file that matches another device
	if err := r.rules.ValidateOwnership(rulePath, uuid); err != nil {
		return nil, err
	}

	change := pendingChange{
		action:     "remove",
		entry:      entry,
		tablePath:  r.table.Path(),
		rulePath:   rulePath,
		mountPoint: entry.MountPoint,
	}

	accepted, err := r.prompter.Confirm(change.summary())
	if err != nil {
		return nil, fmt.Errorf("confirm change: %w", err)
	}
	if !accepted {
		log.Info("cancelled by operator; no changes made")
		return &Result{UUID: uuid, Cancelled: true}, nil
	}

	result := &Result{UUID: uuid, MountPoint: entry.MountPoint, RulePath: rulePath}

	if r.cfg.Backup {
		backupPath, err := r.backups.Snapshot(r.table.Path())
		if err != nil {
			return nil, fmt.Errorf("backup mount table: %w", err)
		}
		result.BackupPath = backupPath
	}

	if err := r.table.RemoveByUUID(uuid); err != nil {
		return nil, fmt.Errorf("update mount table: %w", err)
	}

	if err := r.rules.Delete(rulePath); err != nil {
		return nil, fmt.Errorf("delete rule file (mount table entry for %s was already removed): %w", uuid, err)
	}

	if r.cfg.RemoveMountPoint {
		r.removeMountPoint(devicePath, entry.MountPoint, result)
	}

	r.reload(result)

	log.Info("device deconfigured", "uuid", uuid, "mount_point", entry.MountPoint)
	return result, nil
}

// ruleLabel returns the configured label override or, by default, the
// device UUID
func (r *Reconciler) ruleLabel(uuid string) string {
	if r.cfg.RuleLabel != "" {
		return r.cfg.RuleLabel
	}
	return uuid
}

// normalizeTarget resolves the requested target to a canonical absolute
// mount directory
func (r *Reconciler) normalizeTarget(target string) (string, error) {
	if target == "" {
		return "", errors.New("mount target must not be empty")
	}

	if !strings.Contains(target, string(os.PathSeparator)) {
		target = filepath.Join(r.cfg.MediaDir, r.cfg.User, target)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}
	return canonicalPath(abs), nil
}

// canonicalPath resolves symlinks in the longest existing prefix of
// path, so the mount table never records a mount point through a
// symlinked directory. The part of the path that does not exist yet is
// reattached unresolved.
func canonicalPath(path string) string {
	suffix := ""
	for p := path; ; {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(resolved, suffix)
		}

		parent := filepath.Dir(p)
		if parent == p {
			return path
		}
		suffix = filepath.Join(filepath.Base(p), suffix)
		p = parent
	}
}

// prepareMountPoint ensures the mount directory exists and is usable.
// Returns true when this call created it, so a later decline can undo
// the creation.
func (r *Reconciler) prepareMountPoint(path string) (bool, error) {
	info, err := r.fs.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("mount point %s exists but is not a directory", path)
		}

		empty, err := afero.IsEmpty(r.fs, path)
		if err != nil {
			return false, fmt.Errorf("read mount point: %w", err)
		}
		if !empty {
			return false, fmt.Errorf("%w: %s", ErrTargetNotEmpty, path)
		}
		return false, nil
	}

	if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat mount point: %w", err)
	}

	if err := r.fs.MkdirAll(path, 0755); err != nil {
		return false, fmt.Errorf("create mount point: %w", err)
	}
	return true, nil
}

// removeMountPoint offers to delete the mount directory after a
// successful removal. Everything in here is best-effort: declining the
// sub-question, a busy mount, or a non-empty directory only produce
// warnings, never failure.
func (r *Reconciler) removeMountPoint(devicePath, mountPoint string, result *Result) {
	accepted, err := r.prompter.Confirm(fmt.Sprintf("Also remove the mount directory %s?", mountPoint))
	if err != nil {
		r.warn(result, fmt.Sprintf("mount directory %s left in place: %v", mountPoint, err))
		return
	}
	if !accepted {
		log.Debug("mount directory kept", "path", mountPoint)
		return
	}

	// A device mounted somewhere other than its configured mount point
	// is in active use; leave both directories alone
	actual, err := r.mounter.GetMountPoint(devicePath)
	if err != nil {
		r.warn(result, fmt.Sprintf("could not check where %s is mounted: %v", devicePath, err))
		return
	}
	if actual != "" && actual != mountPoint {
		r.warn(result, fmt.Sprintf("%s is mounted at %s; mount directory %s left in place",
			devicePath, actual, mountPoint))
		return
	}

	mounted, err := r.mounter.IsMounted(mountPoint)
	if err != nil {
		r.warn(result, fmt.Sprintf("could not check mount state of %s: %v", mountPoint, err))
		return
	}
	if mounted {
		if err := r.mounter.Unmount(mountPoint); err != nil {
			r.warn(result, fmt.Sprintf("could not unmount %s: %v", mountPoint, err))
			return
		}
	}

	exists, err := afero.DirExists(r.fs, mountPoint)
	if err != nil || !exists {
		return
	}

	empty, err := afero.IsEmpty(r.fs, mountPoint)
	if err != nil {
		r.warn(result, fmt.Sprintf("could not read %s: %v", mountPoint, err))
		return
	}
	if !empty {
		r.warn(result, fmt.Sprintf("mount directory %s is not empty; left in place", mountPoint))
		return
	}

	if err := r.fs.Remove(mountPoint); err != nil {
		r.warn(result, fmt.Sprintf("could not remove mount directory %s: %v", mountPoint, err))
		return
	}

	log.Info("mount directory removed", "path", mountPoint)
}

// reload asks udev to re-read its rules. The stores are already
// consistent at this point, so a failed reload is only a warning.
func (r *Reconciler) reload(result *Result) {
	if !r.cfg.ReloadRules {
		return
	}

	if err := r.reloader.Reload(); err != nil {
		r.warn(result, fmt.Sprintf("udev rule reload failed (configuration is persisted): %v", err))
	}
}

func (r *Reconciler) warn(result *Result, msg string) {
	log.Warn(msg)
	result.Warnings = append(result.Warnings, msg)
}
