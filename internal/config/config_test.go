package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "uamount.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.NoError(t, err)

	// Booleans default to enabled
	assert.True(t, cfg.Backup)
	assert.True(t, cfg.ReloadRules)
	assert.True(t, cfg.RemoveMountPoint)
	assert.Equal(t, DefaultRulePriority, cfg.RulePriority)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
fstab_path = "/tmp/fstab"
rule_dir = "/tmp/rules.d"
media_dir = "/srv/media"
backup = false
rule_priority = 0
resolver = "dbus"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/fstab", cfg.FstabPath)
	assert.Equal(t, "/tmp/rules.d", cfg.RuleDir)
	assert.Equal(t, "/srv/media", cfg.MediaDir)
	assert.False(t, cfg.Backup)
	assert.True(t, cfg.ReloadRules)
	// Priority 0 is valid and must not be replaced by the default
	assert.Equal(t, 0, cfg.RulePriority)
	assert.Equal(t, "dbus", cfg.Resolver)
}

func TestLoadInvalidFile(t *testing.T) {
	path := writeConfig(t, "not toml = = =")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.conf"))
	require.NoError(t, err)
	cfg.FstabPath = "/from/file"

	// CLI flags win over file values; zero values are ignored
	cfg.Merge("/from/cli", "", "", "dbus", 10, true, false, true)

	assert.Equal(t, "/from/cli", cfg.FstabPath)
	assert.Equal(t, "", cfg.RuleDir)
	assert.Equal(t, "dbus", cfg.Resolver)
	assert.Equal(t, 10, cfg.RulePriority)
	assert.False(t, cfg.Backup)
	assert.True(t, cfg.ReloadRules)
	assert.False(t, cfg.RemoveMountPoint)
}

func TestMergeUnsetPriority(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.conf"))
	require.NoError(t, err)

	cfg.Merge("", "", "", "", -1, false, false, false)
	assert.Equal(t, DefaultRulePriority, cfg.RulePriority)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultFstabPath, cfg.FstabPath)
	assert.Equal(t, DefaultRuleDir, cfg.RuleDir)
	assert.Equal(t, DefaultMediaDir, cfg.MediaDir)
	assert.Equal(t, DefaultResolver, cfg.Resolver)
}

func TestApplyTestMode(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.ApplyTestMode()

	assert.Equal(t, TestFstabPath, cfg.FstabPath)
	assert.Equal(t, TestRuleDir, cfg.RuleDir)
	assert.False(t, cfg.ReloadRules)
}

func TestValidate(t *testing.T) {
	valid := &Config{}
	valid.ApplyDefaults()
	assert.NoError(t, valid.Validate())

	badResolver := &Config{}
	badResolver.ApplyDefaults()
	badResolver.Resolver = "sysfs"
	assert.Error(t, badResolver.Validate())

	badPriority := &Config{}
	badPriority.ApplyDefaults()
	badPriority.RulePriority = 100
	assert.Error(t, badPriority.Validate())

	relativeMedia := &Config{}
	relativeMedia.ApplyDefaults()
	relativeMedia.MediaDir = "media"
	assert.Error(t, relativeMedia.Validate())
}
