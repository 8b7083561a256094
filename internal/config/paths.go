package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "PATIENTDESK_CONFIG"
	// ConfigFileName is the config file looked up in the working directory
	ConfigFileName = "patientdesk.yaml"
	// AppDirName is the per-application directory under the XDG base dirs and /etc
	AppDirName = "patientdesk"

	userConfigFile   = "config.yaml"
	databaseFileName = "patients.db"
	snapshotFileName = "patients.snapshot.sqlite"
)

// SearchPaths lists config file candidates in priority order:
//  1. $PATIENTDESK_CONFIG
//  2. ./patientdesk.yaml
//  3. $XDG_CONFIG_HOME/patientdesk/config.yaml
//  4. ~/.config/patientdesk/config.yaml
//  5. /etc/patientdesk/config.yaml
//
// Entries whose variable is unset are left out.
func SearchPaths() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}
	paths = append(paths, ConfigFileName)
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, AppDirName, userConfigFile))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", AppDirName, userConfigFile))
	}
	return append(paths, filepath.Join("/etc", AppDirName, userConfigFile))
}

// FindConfigPath returns the absolute path of the first existing
// SearchPaths entry, or "" when there is none
func FindConfigPath() string {
	for _, path := range SearchPaths() {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// DefaultConfigPath is where a new config file is written: the user config
// dir, or ./patientdesk.yaml without a home directory
func DefaultConfigPath() string {
	if dir := baseDir("XDG_CONFIG_HOME", ".config"); dir != "" {
		return filepath.Join(dir, AppDirName, userConfigFile)
	}
	return ConfigFileName
}

// DataDir holds the database of an installed config:
// $XDG_DATA_HOME/patientdesk or ~/.local/share/patientdesk.
// Empty without a home directory.
func DataDir() string {
	if dir := baseDir("XDG_DATA_HOME", filepath.Join(".local", "share")); dir != "" {
		return filepath.Join(dir, AppDirName)
	}
	return ""
}

// InstallConfig returns defaults with the database and its snapshot under
// DataDir, falling back to the working directory
func InstallConfig() *Config {
	dir := DataDir()
	if dir == "" {
		dir = "."
	}

	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, databaseFileName)
	cfg.Database.SnapshotPath = filepath.Join(dir, snapshotFileName)
	return cfg
}

// baseDir resolves an XDG base directory from env, or home/fallback
func baseDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, fallback)
	}
	return ""
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
