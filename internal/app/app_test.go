package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"library-lending/internal/core/config"
	"library-lending/internal/domain"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.DB.Driver = "sqlite"
	c.DB.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	c.DB.MaxOpenConns = 1
	c.DB.LogLevel = "silent"
	c.JWT.Secret = "s"
	c.JWT.Issuer = "library-test"
	c.JWT.AccessTokenTTLMin = 5
	c.JWT.RefreshTokenTTLMin = 60
	c.Library.BookLoansOnDelete = "restrict"
	return c
}

func TestNewWiresServices(t *testing.T) {
	a, err := New(context.Background(), testConfig(), zap.NewNop(), Options{})
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Migrate())

	assert.Nil(t, a.Cache)
	require.NotNil(t, a.Services.Loans)
	assert.Equal(t, domain.DeleteRestrict, a.Services.Books.DeletePolicy())
}

func TestNewRejectsUnknownDeletePolicy(t *testing.T) {
	c := testConfig()
	c.Library.UserLoansOnDelete = "orphan"
	_, err := New(context.Background(), c, zap.NewNop(), Options{})
	assert.ErrorContains(t, err, "user_loans_on_delete")
}
