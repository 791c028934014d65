package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  name: library
  http:
    port: 9090
jwt:
  secret: s3cret
  accesstokenttlmin: 15
db:
  driver: postgres
  dsn: postgres://localhost/library
redis:
  enable: true
  addr: 127.0.0.1:6379
library:
  user_loans_on_delete: restrict
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "library", c.App.Name)
	assert.Equal(t, 9090, c.App.HTTP.Port)
	assert.Equal(t, 5, c.App.HTTP.ReadTimeoutSec)
	assert.Equal(t, "s3cret", c.JWT.Secret)
	assert.Equal(t, 15, c.JWT.AccessTokenTTLMin)
	assert.Equal(t, 7*24*60, c.JWT.RefreshTokenTTLMin)
	assert.Equal(t, "postgres", c.DB.Driver)
	assert.True(t, c.DB.PrepareStmt)
	assert.True(t, c.Redis.Enable)
	assert.Equal(t, 300, c.Redis.BookTTLSec)
	assert.Equal(t, "restrict", c.Library.UserLoansOnDelete)
	assert.Equal(t, "cascade", c.Library.BookLoansOnDelete)
	assert.Equal(t, int64(300), c.Limits.MaxInflight)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "from-env")
	t.Setenv("APP_DB_DRIVER", "mysql")
	c, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.JWT.Secret)
	assert.Equal(t, "mysql", c.DB.Driver)
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  name: x\n"))
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}
