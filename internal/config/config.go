// Package config resolves the CLI's runtime configuration: the CurseForge
// credential, cache location, and worker sizing overrides.
package config

import (
	"os"
	"path/filepath"
)

// CurseForgeCredentialEnv is the environment variable read for the
// CurseForge API key. An explicit CLI flag, when set, always wins.
const CurseForgeCredentialEnv = "CURSEFORGE_API_KEY"

// Config is the resolved set of values the engine needs to operate,
// independent of how they were supplied (flag, environment, default).
type Config struct {
	CurseForgeKey string
	CacheDir      string
	GameVersion   string
	Loader        string
	Workers       int
}

// Resolve builds a Config from explicit overrides, falling back to the
// environment and platform defaults exactly the way NewUpdater favors CLI
// flags over on-disk settings before falling back further.
func Resolve(curseForgeKeyFlag, cacheDirFlag, gameVersion, loader string, workers int) Config {
	cfg := Config{
		CurseForgeKey: curseForgeKeyFlag,
		CacheDir:      cacheDirFlag,
		GameVersion:   gameVersion,
		Loader:        loader,
		Workers:       workers,
	}

	if cfg.CurseForgeKey == "" {
		cfg.CurseForgeKey = os.Getenv(CurseForgeCredentialEnv)
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir()
	}

	return cfg
}

// defaultCacheDir mirrors the platform cache-dir lookup the original engine
// performs before falling back to a relative directory in the working tree.
func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "modsync")
	}
	return "modsync-cache"
}

// HasCurseForgeCredential reports whether CurseForge traffic should be
// attempted at all, per spec §6.3: an empty credential disables it entirely.
func (c Config) HasCurseForgeCredential() bool {
	return c.CurseForgeKey != ""
}
