package identity

import (
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestKeyringProvider_LoginLogout(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	p := NewKeyringProvider(ring, testSecret, zerolog.Nop())
	assert.Nil(t, p.CurrentUser())

	token, err := IssueToken(testSecret, "user-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	user, err := p.Login(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "a@example.com", p.CurrentUser().Email)
	assert.Equal(t, "user-1", UserID(p))

	// A second provider over the same keyring restores the session.
	restored := NewKeyringProvider(ring, testSecret, zerolog.Nop())
	require.NotNil(t, restored.CurrentUser())
	assert.Equal(t, "user-1", restored.CurrentUser().ID)

	require.NoError(t, p.Logout())
	require.NoError(t, p.Logout())
	assert.Nil(t, p.CurrentUser())
	assert.Equal(t, "", UserID(p))
}

func TestKeyringProvider_RejectsBadTokens(t *testing.T) {
	p := NewKeyringProvider(keyring.NewArrayKeyring(nil), testSecret, zerolog.Nop())

	wrong, err := IssueToken("other-secret", "user-1", "", time.Hour)
	require.NoError(t, err)
	_, err = p.Login(wrong)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := IssueToken(testSecret, "user-1", "", -time.Minute)
	require.NoError(t, err)
	_, err = p.Login(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := IssueToken(testSecret, "", "", time.Hour)
	require.NoError(t, err)
	_, err = p.Login(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.Login("  ")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, p.CurrentUser())
}

func TestKeyringProvider_UnverifiedWithoutSecret(t *testing.T) {
	p := NewKeyringProvider(keyring.NewArrayKeyring(nil), "", zerolog.Nop())

	token, err := IssueToken("idp-secret", "user-2", "", time.Hour)
	require.NoError(t, err)
	user, err := p.Login(token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", user.ID)

	expired, err := IssueToken("idp-secret", "user-2", "", -time.Minute)
	require.NoError(t, err)
	_, err = p.Login(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestKeyringProvider_RefreshDropsExpiredSession(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	p := NewKeyringProvider(ring, testSecret, zerolog.Nop())

	token, err := IssueToken(testSecret, "user-1", "", time.Hour)
	require.NoError(t, err)
	_, err = p.Login(token)
	require.NoError(t, err)

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.ErrorIs(t, p.Refresh(), ErrInvalidToken)
	assert.Nil(t, p.CurrentUser())
}

func TestStatic(t *testing.T) {
	assert.Equal(t, "", UserID(nil))
	assert.Equal(t, "", UserID(Static{}))
	assert.Equal(t, "u", UserID(Static{User: &User{ID: "u"}}))
}
