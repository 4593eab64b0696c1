package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/kriansa/uamount/internal/validation"
)

const (
	// DefaultConfigPath is the default location for the config file
	DefaultConfigPath = "/etc/uamount.conf"
	// DefaultFstabPath is the system mount table
	DefaultFstabPath = "/etc/fstab"
	// DefaultRuleDir is where udev reads rule files from
	DefaultRuleDir = "/etc/udev/rules.d"
	// DefaultMediaDir is the base directory for bare mount point names
	DefaultMediaDir = "/media"
	// DefaultRulePriority is the default udev rule priority
	DefaultRulePriority = 99
	// DefaultResolver is the default device identity backend
	DefaultResolver = "blkid"
)

// Test-mode store locations, relative to the working directory
const (
	TestFstabPath = "fstab.test"
	TestRuleDir   = "rules.d.test"
)

// Config holds the tool configuration
type Config struct {
	// FstabPath is the mount table file to manage
	FstabPath string `toml:"fstab_path"`
	// RuleDir is the udev rules directory
	RuleDir string `toml:"rule_dir"`
	// MediaDir is the base directory for bare mount point names
	MediaDir string `toml:"media_dir"`
	// Backup enables mount table backups before mutation
	Backup bool `toml:"backup"`
	// ReloadRules triggers a udev rule reload after a successful change
	ReloadRules bool `toml:"reload_rules"`
	// RemoveMountPoint offers to delete the mount directory on removal
	RemoveMountPoint bool `toml:"remove_mount_point"`
	// RulePriority is the udev rule priority (lower loads earlier)
	RulePriority int `toml:"rule_priority"`
	// Resolver is the device identity backend: "blkid" or "dbus"
	Resolver string `toml:"resolver"`
}

// Load loads configuration from a TOML file
// Returns a config with boolean defaults if the file doesn't exist
func Load(path string) (*Config, error) {
	// Booleans default to enabled and priority 0 is valid, so these are
	// preset before decoding rather than patched up afterwards
	cfg := &Config{
		Backup:           true,
		ReloadRules:      true,
		RemoveMountPoint: true,
		RulePriority:     DefaultRulePriority,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Merge merges CLI flags into the config, with CLI flags taking precedence
// over config file values. Zero CLI values are ignored; the no* flags
// only ever disable behavior.
func (c *Config) Merge(fstabPath, ruleDir, mediaDir, resolver string, rulePriority int, noBackup, noReload, keepMountPoint bool) {
	if fstabPath != "" {
		c.FstabPath = fstabPath
	}
	if ruleDir != "" {
		c.RuleDir = ruleDir
	}
	if mediaDir != "" {
		c.MediaDir = mediaDir
	}
	if resolver != "" {
		c.Resolver = resolver
	}
	if rulePriority >= 0 {
		c.RulePriority = rulePriority
	}
	if noBackup {
		c.Backup = false
	}
	if noReload {
		c.ReloadRules = false
	}
	if keepMountPoint {
		c.RemoveMountPoint = false
	}
}

// ApplyDefaults applies default values for any unset fields
func (c *Config) ApplyDefaults() {
	if c.FstabPath == "" {
		c.FstabPath = DefaultFstabPath
	}
	if c.RuleDir == "" {
		c.RuleDir = DefaultRuleDir
	}
	if c.MediaDir == "" {
		c.MediaDir = DefaultMediaDir
	}
	if c.Resolver == "" {
		c.Resolver = DefaultResolver
	}
}

// ApplyTestMode redirects both stores to local paths and disables the
// udev reload, so runs never touch system state
func (c *Config) ApplyTestMode() {
	c.FstabPath = TestFstabPath
	c.RuleDir = TestRuleDir
	c.ReloadRules = false
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Resolver != "blkid" && c.Resolver != "dbus" {
		return fmt.Errorf("resolver must be 'blkid' or 'dbus', got %q", c.Resolver)
	}

	if err := validation.ValidatePriority(c.RulePriority); err != nil {
		return fmt.Errorf("invalid rule priority: %w", err)
	}

	if !filepath.IsAbs(c.MediaDir) {
		return fmt.Errorf("media directory must be an absolute path, got %q", c.MediaDir)
	}

	return nil
}
