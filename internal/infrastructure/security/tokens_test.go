package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(32)
	require.NoError(t, err)
	b, err := GenerateOpaqueToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, "=")
}

func TestHashTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestDeviceFingerprint(t *testing.T) {
	base := DeviceFingerprint("Mozilla/5.0", "192.168.1.10")

	t.Run("same subnet matches", func(t *testing.T) {
		assert.Equal(t, base, DeviceFingerprint("Mozilla/5.0", "192.168.1.200"))
	})
	t.Run("different subnet differs", func(t *testing.T) {
		assert.NotEqual(t, base, DeviceFingerprint("Mozilla/5.0", "192.168.2.10"))
	})
	t.Run("different user agent differs", func(t *testing.T) {
		assert.NotEqual(t, base, DeviceFingerprint("curl/8.0", "192.168.1.10"))
	})
	t.Run("ipv6 same /48 matches", func(t *testing.T) {
		x := DeviceFingerprint("ua", "2001:db8:1::1")
		y := DeviceFingerprint("ua", "2001:db8:1:ffff::2")
		assert.Equal(t, x, y)
	})
	t.Run("unparseable address still hashes", func(t *testing.T) {
		assert.NotEmpty(t, DeviceFingerprint("ua", "not-an-ip"))
	})
}

func TestGenerateBackupCode(t *testing.T) {
	code, err := GenerateBackupCode()
	require.NoError(t, err)

	assert.Regexp(t, `^[ABCDEFGHJKMNPQRSTUVWXYZ23456789]{4}-[ABCDEFGHJKMNPQRSTUVWXYZ23456789]{4}$`, code)
}

func TestCandidateEncodings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"hyphenated input", "abcd-efgh", []string{"ABCD-EFGH", "ABCDEFGH"}},
		{"raw 8-char input", "abcdefgh", []string{"ABCDEFGH", "ABCD-EFGH"}},
		{"whitespace trimmed", "  ABCD-EFGH  ", []string{"ABCD-EFGH", "ABCDEFGH"}},
		{"short input stays single", "abc", []string{"ABC"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CandidateEncodings(tt.input))
		})
	}
}
