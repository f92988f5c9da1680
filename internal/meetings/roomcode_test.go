package meetings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRoomCodeGenerates(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := NewRoomCode("")
		require.NoError(t, err)
		require.Len(t, code, 8)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
		}
	}
}

func TestNewRoomCodeKeepsExplicit(t *testing.T) {
	code, err := NewRoomCode("12345678")
	require.NoError(t, err)
	require.Equal(t, "12345678", code)
}

func TestNewRoomCodeRejectsInvalid(t *testing.T) {
	for _, bad := range []string{"1234567", "123456789", "1234567a", "abcdefgh", "1234 678"} {
		_, err := NewRoomCode(bad)
		require.Error(t, err, bad)
		require.True(t, IsKind(err, KindValidation), bad)
	}
}
