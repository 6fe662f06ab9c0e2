package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "market-day-secret"

var testNow = time.Date(2026, 5, 3, 10, 30, 0, 0, time.UTC)

func signToken(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: sub}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func fixedClock() time.Time { return testNow }

func TestStatic(t *testing.T) {
	s := NewStatic("")
	assert.Equal(t, "", s.CurrentUserID())

	var seen []string
	cancel := s.OnChange(func(id string) { seen = append(seen, id) })

	s.Set("u1")
	s.Set("u1")
	s.Set("")
	assert.Equal(t, []string{"u1", ""}, seen, "only changes notify")

	cancel()
	s.Set("u2")
	assert.Len(t, seen, 2, "cancelled subscriber not called")
	assert.Equal(t, "u2", s.CurrentUserID())
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		name    string
		raw     func(t *testing.T) string
		secret  string
		wantSub string
		wantErr error
	}{
		{
			name:    "verified",
			raw:     func(t *testing.T) string { return signToken(t, testSecret, "u1", testNow.Add(time.Hour)) },
			secret:  testSecret,
			wantSub: "u1",
		},
		{
			name:    "wrong secret",
			raw:     func(t *testing.T) string { return signToken(t, "other", "u1", testNow.Add(time.Hour)) },
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "expired verified",
			raw:     func(t *testing.T) string { return signToken(t, testSecret, "u1", testNow.Add(-time.Minute)) },
			secret:  testSecret,
			wantErr: ErrExpiredToken,
		},
		{
			name:    "unverified without secret",
			raw:     func(t *testing.T) string { return signToken(t, "whatever", "u9", testNow.Add(time.Hour)) },
			wantSub: "u9",
		},
		{
			name:    "expired unverified",
			raw:     func(t *testing.T) string { return signToken(t, "whatever", "u9", testNow.Add(-time.Minute)) },
			wantErr: ErrExpiredToken,
		},
		{
			name:    "no expiry",
			raw:     func(t *testing.T) string { return signToken(t, testSecret, "u1", time.Time{}) },
			secret:  testSecret,
			wantSub: "u1",
		},
		{
			name:    "missing subject",
			raw:     func(t *testing.T) string { return signToken(t, testSecret, "", testNow.Add(time.Hour)) },
			secret:  testSecret,
			wantErr: ErrMissingUserID,
		},
		{
			name:    "garbage",
			raw:     func(t *testing.T) string { return "not.a.jwt" },
			wantErr: ErrInvalidToken,
		},
		{
			name:    "empty",
			raw:     func(t *testing.T) string { return "" },
			wantErr: ErrInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var secret []byte
			if tt.secret != "" {
				secret = []byte(tt.secret)
			}
			sub, _, err := ParseToken(tt.raw(t), secret, fixedClock)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, sub)
		})
	}
}

func TestTokenNotifies(t *testing.T) {
	tok := NewToken(testSecret)
	tok.now = fixedClock

	var seen []string
	tok.OnChange(func(id string) { seen = append(seen, id) })

	require.NoError(t, tok.SetToken(signToken(t, testSecret, "u1", testNow.Add(time.Hour))))
	assert.Equal(t, "u1", tok.CurrentUserID())
	assert.NotEmpty(t, tok.AccessToken())

	err := tok.SetToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "", tok.CurrentUserID(), "invalid token signs out")

	require.NoError(t, tok.SetToken(signToken(t, testSecret, "u2", testNow.Add(time.Hour))))
	tok.Clear()

	assert.Equal(t, []string{"u1", "", "u2", ""}, seen)
}

func TestTokenExpiresLazily(t *testing.T) {
	now := testNow
	tok := NewToken(testSecret)
	tok.now = func() time.Time { return now }

	require.NoError(t, tok.SetToken(signToken(t, testSecret, "u1", testNow.Add(time.Minute))))
	assert.Equal(t, "u1", tok.CurrentUserID())

	now = testNow.Add(2 * time.Minute)
	assert.Equal(t, "", tok.CurrentUserID())
	assert.Equal(t, "", tok.AccessToken())
}

func TestFileLoginLogout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg", FileName)
	raw := signToken(t, testSecret, "u1", time.Now().Add(time.Hour))

	f := OpenFile(path, testSecret)
	assert.Equal(t, "", f.CurrentUserID(), "no file means signed out")

	require.NoError(t, f.Login(raw))
	assert.Equal(t, "u1", f.CurrentUserID())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened := OpenFile(path, testSecret)
	assert.Equal(t, "u1", reopened.CurrentUserID(), "token survives restart")

	require.NoError(t, reopened.Logout())
	assert.Equal(t, "", reopened.CurrentUserID())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, reopened.Logout(), "logout is idempotent")
}

func TestFileRejectsBadLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	f := OpenFile(path, testSecret)

	err := f.Login(signToken(t, "wrong", "u1", time.Now().Add(time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing saved")
}

func TestFileIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- nope"), 0600))

	f := OpenFile(path, testSecret)
	assert.Equal(t, "", f.CurrentUserID())
}
