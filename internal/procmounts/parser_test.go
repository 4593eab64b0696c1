package procmounts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReader(t *testing.T) {
	input := `/dev/sda1 / ext4 rw,relatime 0 0
/dev/sdb1 /media/My\040Drive vfat rw,nosuid 0 0
proc /proc proc rw 0 0
malformed
`

	mounts, err := parseReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, mounts, 3)

	assert.Equal(t, Entry{
		Device:     "/dev/sda1",
		MountPoint: "/",
		FSType:     "ext4",
		Options:    "rw,relatime",
	}, mounts[0])

	// Escaped spaces are decoded
	assert.Equal(t, "/media/My Drive", mounts[1].MountPoint)
}

func TestUnescapeField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`/media/My\040Drive`, "/media/My Drive"},
		{`a\011b`, "a\tb"},
		{`a\012b`, "a\nb"},
		{`a\134b`, `a\b`},
		{"/plain/path", "/plain/path"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, unescapeField(tt.input))
	}
}
