package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "./patients.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout.Duration())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "merge", cfg.Roster.Strategy)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patientdesk.yaml")

	content := `
server:
  addr: ":8080"
  read_timeout: 5s
database:
  path: /var/lib/patientdesk/patients.db
  snapshot_path: /var/lib/patientdesk/patients.snapshot
log:
  level: debug
roster:
  path: ./roster.yaml
  watch: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, gotPath, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, gotPath)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout.Duration(), "defaults fill gaps")
	assert.Equal(t, "/var/lib/patientdesk/patients.snapshot", cfg.Database.SnapshotPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Roster.Watch)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPathErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  read_timeout: soon\n"), 0644))
		_, _, err := LoadFromPath(path)
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = ":9999"
	cfg.Database.SnapshotPath = "/tmp/snap.sqlite"
	require.NoError(t, cfg.Save(path))

	loaded, _, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad strategy", func(c *Config) { c.Roster.Strategy = "wipe" }},
		{"watch without path", func(c *Config) { c.Roster.Watch = true }},
		{"snapshot same as db", func(c *Config) { c.Database.SnapshotPath = c.Database.Path }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PATIENTDESK_ADDR", ":7000")
	t.Setenv("PATIENTDESK_DB", "/data/p.db")
	t.Setenv("PATIENTDESK_ROSTER_WATCH", "true")
	t.Setenv("PATIENTDESK_ROSTER", "/data/roster.json")
	t.Setenv("PATIENTDESK_WRITE_TIMEOUT", "2m")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "/data/p.db", cfg.Database.Path)
	assert.True(t, cfg.Roster.Watch)
	assert.Equal(t, "/data/roster.json", cfg.Roster.Path)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout.Duration())
	assert.Equal(t, "info", cfg.Log.Level, "unset variables keep file values")
}

func TestApplyEnvInvalidBool(t *testing.T) {
	t.Setenv("PATIENTDESK_ROSTER_WATCH", "maybe")

	cfg := DefaultConfig()
	assert.Error(t, cfg.ApplyEnv())
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is fine", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("sets unset variables only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("PATIENTDESK_LOG_LEVEL=debug\nPATIENTDESK_ADDR=:1111\n"), 0644))

		t.Setenv("PATIENTDESK_ADDR", ":2222")
		// Registers cleanup so the value loaded from the file does not leak
		t.Setenv("PATIENTDESK_LOG_LEVEL", "")
		os.Unsetenv("PATIENTDESK_LOG_LEVEL")

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "debug", os.Getenv("PATIENTDESK_LOG_LEVEL"))
		assert.Equal(t, ":2222", os.Getenv("PATIENTDESK_ADDR"))
	})
}

func TestFindConfigPath(t *testing.T) {
	t.Run("explicit env path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))
		t.Setenv(EnvConfigPath, path)

		assert.Equal(t, path, FindConfigPath())
	})

	t.Run("xdg config home", func(t *testing.T) {
		xdg := t.TempDir()
		path := filepath.Join(xdg, AppDirName, "config.yaml")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))

		t.Setenv(EnvConfigPath, "")
		t.Setenv("XDG_CONFIG_HOME", xdg)
		t.Chdir(t.TempDir())

		assert.Equal(t, path, FindConfigPath())
	})
}

func TestSearchPaths(t *testing.T) {
	t.Setenv(EnvConfigPath, "/opt/custom.yaml")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	t.Setenv("HOME", "/home/ana")

	assert.Equal(t, []string{
		"/opt/custom.yaml",
		"patientdesk.yaml",
		"/xdg/patientdesk/config.yaml",
		"/home/ana/.config/patientdesk/config.yaml",
		"/etc/patientdesk/config.yaml",
	}, SearchPaths())

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Len(t, SearchPaths(), 3, "unset variables drop their entry")
}

func TestInstallLocations(t *testing.T) {
	t.Run("xdg dirs", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
		t.Setenv("XDG_DATA_HOME", "/xdg/data")

		assert.Equal(t, "/xdg/config/patientdesk/config.yaml", DefaultConfigPath())
		assert.Equal(t, "/xdg/data/patientdesk", DataDir())

		cfg := InstallConfig()
		assert.Equal(t, "/xdg/data/patientdesk/patients.db", cfg.Database.Path)
		assert.Equal(t, "/xdg/data/patientdesk/patients.snapshot.sqlite", cfg.Database.SnapshotPath)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")
		t.Setenv("HOME", "/home/ana")

		assert.Equal(t, "/home/ana/.config/patientdesk/config.yaml", DefaultConfigPath())
		assert.Equal(t, "/home/ana/.local/share/patientdesk", DataDir())
	})

	t.Run("no home", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")
		t.Setenv("HOME", "")

		assert.Equal(t, ConfigFileName, DefaultConfigPath())
		assert.Empty(t, DataDir())
		assert.Equal(t, "patients.db", InstallConfig().Database.Path)
	})
}
