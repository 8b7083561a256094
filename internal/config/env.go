package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envOverrides holds raw environment values. Unset variables leave the
// pointer fields nil and the string fields empty.
type envOverrides struct {
	Addr           string         `env:"PATIENTDESK_ADDR"`
	DatabasePath   string         `env:"PATIENTDESK_DB"`
	SnapshotPath   string         `env:"PATIENTDESK_SNAPSHOT"`
	LogLevel       string         `env:"PATIENTDESK_LOG_LEVEL"`
	LogFormat      string         `env:"PATIENTDESK_LOG_FORMAT"`
	RosterPath     string         `env:"PATIENTDESK_ROSTER"`
	RosterStrategy string         `env:"PATIENTDESK_ROSTER_STRATEGY"`
	RosterWatch    *bool          `env:"PATIENTDESK_ROSTER_WATCH"`
	WriteTimeout   *time.Duration `env:"PATIENTDESK_WRITE_TIMEOUT"`
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays PATIENTDESK_* environment variables onto the config
func (c *Config) ApplyEnv() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&c.Server.Addr, e.Addr)
	setString(&c.Database.Path, e.DatabasePath)
	setString(&c.Database.SnapshotPath, e.SnapshotPath)
	setString(&c.Log.Level, e.LogLevel)
	setString(&c.Log.Format, e.LogFormat)
	setString(&c.Roster.Path, e.RosterPath)
	setString(&c.Roster.Strategy, e.RosterStrategy)

	if e.RosterWatch != nil {
		c.Roster.Watch = *e.RosterWatch
	}
	if e.WriteTimeout != nil {
		c.Server.WriteTimeout = Duration(*e.WriteTimeout)
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
