package config

import (
	"testing"
)

func TestResolveExplicitFlagsWinOverEnv(t *testing.T) {
	t.Setenv(CurseForgeCredentialEnv, "from-env")

	cfg := Resolve("from-flag", "/tmp/cache", "1.20.1", "fabric", 8)
	if cfg.CurseForgeKey != "from-flag" {
		t.Errorf("CurseForgeKey = %q, want explicit flag to win", cfg.CurseForgeKey)
	}
}

func TestResolveFallsBackToEnvWhenFlagEmpty(t *testing.T) {
	t.Setenv(CurseForgeCredentialEnv, "from-env")

	cfg := Resolve("", "/tmp/cache", "1.20.1", "fabric", 8)
	if cfg.CurseForgeKey != "from-env" {
		t.Errorf("CurseForgeKey = %q, want env fallback", cfg.CurseForgeKey)
	}
}

func TestResolveLeavesCredentialEmptyWhenNeitherIsSet(t *testing.T) {
	t.Setenv(CurseForgeCredentialEnv, "")

	cfg := Resolve("", "/tmp/cache", "1.20.1", "fabric", 8)
	if cfg.CurseForgeKey != "" {
		t.Errorf("CurseForgeKey = %q, want empty", cfg.CurseForgeKey)
	}
	if cfg.HasCurseForgeCredential() {
		t.Error("HasCurseForgeCredential() = true, want false with no key set anywhere")
	}
}

func TestResolveUsesExplicitCacheDirWhenProvided(t *testing.T) {
	cfg := Resolve("", "/explicit/cache/dir", "1.20.1", "fabric", 4)
	if cfg.CacheDir != "/explicit/cache/dir" {
		t.Errorf("CacheDir = %q, want explicit value preserved", cfg.CacheDir)
	}
}

func TestResolveFillsInDefaultCacheDirWhenEmpty(t *testing.T) {
	cfg := Resolve("", "", "1.20.1", "fabric", 4)
	if cfg.CacheDir == "" {
		t.Error("CacheDir is empty, want a computed default")
	}
}

func TestResolvePassesThroughGameVersionLoaderAndWorkers(t *testing.T) {
	cfg := Resolve("", "", "1.21.0", "neoforge", 16)
	if cfg.GameVersion != "1.21.0" {
		t.Errorf("GameVersion = %q, want %q", cfg.GameVersion, "1.21.0")
	}
	if cfg.Loader != "neoforge" {
		t.Errorf("Loader = %q, want %q", cfg.Loader, "neoforge")
	}
	if cfg.Workers != 16 {
		t.Errorf("Workers = %d, want 16", cfg.Workers)
	}
}

func TestHasCurseForgeCredentialTrueWhenKeySet(t *testing.T) {
	cfg := Config{CurseForgeKey: "some-key"}
	if !cfg.HasCurseForgeCredential() {
		t.Error("HasCurseForgeCredential() = false, want true when key is set")
	}
}
