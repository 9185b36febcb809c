package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: deskhub
database:
  path: data/deskhub.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.Auth.HeaderAPIKey)
	assert.Equal(t, 3, cfg.Lock.WaitSeconds)
	assert.Equal(t, 10, cfg.Lock.HoldSeconds)
	assert.Equal(t, "storage/images", cfg.Storage.ImagesPath)
	assert.Equal(t, "08:00", cfg.Reminder.Time)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("DESKHUB_DB_PATH", "/tmp/test.db")
	path := writeConfig(t, `
database:
  path: ${DESKHUB_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	t.Run("MissingDatabasePath", func(t *testing.T) {
		cfg := &Config{}
		assert.Error(t, cfg.Validate())
	})

	t.Run("APIKeyWithoutUser", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{Path: "x.db"},
			Auth: AuthConfig{
				Enabled: true,
				APIKeys: []APIClientKey{{Key: "k", Extra: "e", Name: "broken"}},
			},
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("DuplicateAPIKey", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{Path: "x.db"},
			Auth: AuthConfig{
				Enabled: true,
				APIKeys: []APIClientKey{
					{Key: "k", Extra: "e", UserID: 1},
					{Key: "k", Extra: "e2", UserID: 2},
				},
			},
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("TelegramWithoutToken", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{Path: "x.db"},
			Telegram: TelegramConfig{Enabled: true},
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("Valid", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{Path: "x.db"},
			Auth: AuthConfig{
				Enabled: true,
				APIKeys: []APIClientKey{{Key: "k", Extra: "e", UserID: 7, Name: "cli"}},
			},
		}
		assert.NoError(t, cfg.Validate())
	})
}
