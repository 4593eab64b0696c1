package backup

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotNumbering(t *testing.T) {
	fs := afero.NewMemMapFs()
	manager := NewManager(fs)

	// Each snapshot sees different contents; every backup must keep the
	// contents it saw, numbered 1..N
	for n := 1; n <= 3; n++ {
		contents := fmt.Sprintf("generation %d\n", n)
		require.NoError(t, afero.WriteFile(fs, "/etc/fstab", []byte(contents), 0644))

		backupPath, err := manager.Snapshot("/etc/fstab")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("/etc/fstab_BAK%d", n), backupPath)
	}

	for n := 1; n <= 3; n++ {
		contents, err := afero.ReadFile(fs, fmt.Sprintf("/etc/fstab_BAK%d", n))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("generation %d\n", n), string(contents))
	}
}

func TestSnapshotSkipsExistingBackups(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/fstab", []byte("current\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/etc/fstab_BAK1", []byte("old backup\n"), 0644))

	backupPath, err := NewManager(fs).Snapshot("/etc/fstab")
	require.NoError(t, err)
	assert.Equal(t, "/etc/fstab_BAK2", backupPath)

	// The pre-existing backup is untouched
	contents, err := afero.ReadFile(fs, "/etc/fstab_BAK1")
	require.NoError(t, err)
	assert.Equal(t, "old backup\n", string(contents))
}

func TestSnapshotMissingSource(t *testing.T) {
	// A table that does not exist yet has nothing worth backing up
	fs := afero.NewMemMapFs()

	backupPath, err := NewManager(fs).Snapshot("/etc/fstab")
	require.NoError(t, err)
	assert.Empty(t, backupPath)

	exists, err := afero.Exists(fs, "/etc/fstab_BAK1")
	require.NoError(t, err)
	assert.False(t, exists)
}
