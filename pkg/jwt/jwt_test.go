package jwt

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhy3800/MovieWebsite/pkg/errors"
)

const testSecret = "test-secret-key-32-bytes-long!!!"

func newTestManager() *Manager {
	return NewManager(&Config{Secret: testSecret, Issuer: "movie-svc-test"})
}

func TestManager_GenerateAndValidate(t *testing.T) {
	m := newTestManager()

	token, expiresAt, err := m.GenerateToken(7, "alice")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "movie-svc-test", claims.Issuer)
}

func TestManager_ExpiredToken(t *testing.T) {
	m := newTestManager()
	issued := time.Now().Add(-48 * time.Hour)
	m.now = func() time.Time { return issued }

	token, _, err := m.GenerateToken(1, "bob")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, errors.IsError(err, errors.ErrTokenExpired))
}

func TestManager_WrongSecret(t *testing.T) {
	token, _, err := newTestManager().GenerateToken(1, "bob")
	require.NoError(t, err)

	other := NewManager(&Config{Secret: "another-secret-key-32-bytes-long"})
	_, err = other.ValidateToken(token)
	assert.True(t, errors.IsError(err, errors.ErrTokenInvalid))
}

func TestManager_TamperedPayload(t *testing.T) {
	m := newTestManager()
	token, _, err := m.GenerateToken(1, "bob")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "AA"
	_, err = m.ValidateToken(strings.Join(parts, "."))
	assert.Error(t, err)
}

func TestManager_Garbage(t *testing.T) {
	_, err := newTestManager().ValidateToken("not-a-token")
	assert.True(t, errors.IsError(err, errors.ErrTokenInvalid))
}

func TestManager_DefaultExpiry(t *testing.T) {
	assert.Equal(t, DefaultExpiry, newTestManager().GetExpiryTime())
	m := NewManager(&Config{Secret: testSecret, Expiry: time.Hour})
	assert.Equal(t, time.Hour, m.GetExpiryTime())
}

func TestExtractClaims(t *testing.T) {
	token, _, err := newTestManager().GenerateToken(9, "carol")
	require.NoError(t, err)

	claims, err := ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "9", claims["sub"])
	assert.Equal(t, "carol", claims["username"])

	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := enc.EncodeToString([]byte(`{"sub":"1"}`))
	sig := enc.EncodeToString([]byte("sig"))

	bad := map[string]string{
		"empty":          "",
		"two segments":   header + "." + payload,
		"empty sig":      header + "." + payload + ".",
		"padded payload": header + "." + base64.URLEncoding.EncodeToString([]byte(`{"sub":"1"}`)) + "." + sig,
		"null payload":   header + "." + enc.EncodeToString([]byte("null")) + "." + sig,
		"array payload":  header + "." + enc.EncodeToString([]byte(`[1]`)) + "." + sig,
		"garbage header": "!!!." + payload + "." + sig,
		"no alg":         enc.EncodeToString([]byte(`{"typ":"JWT"}`)) + "." + payload + "." + sig,
		"unknown alg":    enc.EncodeToString([]byte(`{"alg":"XX999"}`)) + "." + payload + "." + sig,
	}
	for name, tok := range bad {
		_, err := ExtractClaims(tok)
		assert.True(t, errors.IsError(err, errors.ErrTokenInvalid), name)
	}
}
