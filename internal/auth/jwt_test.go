package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()

	token, err := svc.Generate(userID, "Jane Doe", "jane@example.com", "Assessor")
	require.NoError(t, err)

	identity, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, userID, identity.UserID)
	require.Equal(t, "Jane Doe", identity.FullName)
	require.Equal(t, "jane@example.com", identity.Email)
	require.Equal(t, "Assessor", identity.Role)
	require.True(t, identity.HostCapable)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(uuid.New(), "X", "x@example.com", "Participant")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewJWTService("secret", 1).Validate("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIsHostCapable(t *testing.T) {
	cases := []struct {
		role string
		want bool
	}{
		{"Assessor", true},
		{"Admin", true},
		{"Participant", false},
		{"assessor", false}, // claim comparison is exact
		{"", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsHostCapable(tc.role), "role %q", tc.role)
	}
}
