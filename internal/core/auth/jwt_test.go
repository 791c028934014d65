package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTer() *JWTer {
	return &JWTer{Secret: []byte("test-secret"), Issuer: "library", TTL: 15 * time.Minute, RefreshTTL: time.Hour}
}

func TestIssuePairAndParse(t *testing.T) {
	j := newJWTer()
	p, err := j.IssuePair("u1", "admin")
	require.NoError(t, err)
	assert.True(t, p.RefreshExpiresAt.After(p.AccessExpiresAt))

	c, err := j.Parse(p.Access)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UID)
	assert.Equal(t, "admin", c.Role)
	assert.Equal(t, TokenAccess, c.Type)

	rc, err := j.ParseRefresh(p.Refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, rc.Type)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	j := newJWTer()
	p, err := j.IssuePair("u1", "user")
	require.NoError(t, err)

	_, err = j.Parse(p.Refresh)
	assert.True(t, errors.Is(err, ErrWrongTokenType))
	_, err = j.ParseRefresh(p.Access)
	assert.True(t, errors.Is(err, ErrWrongTokenType))
}

func TestParseRejectsExpiredAndForeign(t *testing.T) {
	j := newJWTer()
	past := time.Now().Add(-2 * time.Hour)
	j.Now = func() time.Time { return past }
	tok, err := j.Issue("u1", "user")
	require.NoError(t, err)

	j.Now = nil
	_, err = j.Parse(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	other := newJWTer()
	other.Secret = []byte("another")
	tok, err = other.Issue("u1", "user")
	require.NoError(t, err)
	_, err = j.Parse(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	other = newJWTer()
	other.Issuer = "someone-else"
	tok, err = other.Issue("u1", "user")
	require.NoError(t, err)
	_, err = j.Parse(tok)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = j.Parse("garbage")
	assert.Error(t, err)
}
