package main

import (
	"os"
	"path/filepath"

	"modsync/internal/cache"
	"modsync/internal/config"
	"modsync/internal/modpack"
	"modsync/internal/modtypes"
	"modsync/internal/registry"
	"modsync/internal/resolver"
	"modsync/internal/version"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "modsync [MODS_DIR]",
	Short: "Resolve, download and swap Minecraft mod archives against Modrinth/CurseForge",
	Long:  `A local mod package manager: scans a mods directory, resolves each archive against two registries, downloads updates, and swaps between saved modpack snapshots.`,
	Args:  cobra.ArbitraryArgs,
}

// Execute initializes the command tree and delegates to Cobra for
// argument parsing and subcommand dispatch.
func Execute() {
	if !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != "" {
		pterm.DisableStyling()
		pterm.RawOutput = true
	}
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("curseforge-key", "", "CurseForge API key, overriding "+config.CurseForgeCredentialEnv)
	rootCmd.PersistentFlags().String("cache-dir", "", "Path to the content cache database directory")
	rootCmd.PersistentFlags().String("game-version", "1.20.1", "Minecraft version to resolve mods against")
	rootCmd.PersistentFlags().String("loader", "fabric", "Mod loader (fabric, quilt, forge, neoforge)")
	rootCmd.PersistentFlags().Int("workers", 0, "Worker count, stored in the config but not applied: every pool is sized from its job count")
	rootCmd.PersistentFlags().String("modpacks-dir", "", "Directory holding saved modpack snapshots")
	rootCmd.PersistentFlags().String("game-dir", "", "Game installation directory (active-marker location)")
}

// buildConfig reads the persistent flags into a resolved config.Config.
func buildConfig(cmd *cobra.Command) config.Config {
	key, _ := cmd.Flags().GetString("curseforge-key")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	gameVersion, _ := cmd.Flags().GetString("game-version")
	loader, _ := cmd.Flags().GetString("loader")
	workers, _ := cmd.Flags().GetInt("workers")
	return config.Resolve(key, cacheDir, gameVersion, loader, workers)
}

// modsDir resolves the mods directory from the positional MODS_DIR
// argument, defaulting to the current directory.
func modsDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// engine bundles every component a subcommand needs, built once from the
// resolved config.
type engine struct {
	cfg      config.Config
	cache    *cache.Cache
	resolver *resolver.Resolver
	modpack  *modpack.Manager
}

func buildEngine(cmd *cobra.Command, args []string) (*engine, error) {
	cfg := buildConfig(cmd)

	c, err := cache.Open(cfg.CacheDir)
	if err != nil {
		pterm.Warning.Printf("opening cache at %s: %v; continuing cache-less\n", cfg.CacheDir, err)
	}

	m := registry.NewModrinthClient()
	cf := registry.NewCurseForgeClient(cfg.CurseForgeKey)
	r := resolver.New(m, cf)

	mods := modsDir(args)
	modpacksDir, _ := cmd.Flags().GetString("modpacks-dir")
	if modpacksDir == "" {
		modpacksDir = filepath.Join(filepath.Dir(mods), "modpacks")
	}
	gameDir, _ := cmd.Flags().GetString("game-dir")
	if gameDir == "" {
		gameDir = filepath.Dir(mods)
	}
	mp := modpack.New(mods, modpacksDir, gameDir)

	return &engine{cfg: cfg, cache: c, resolver: r, modpack: mp}, nil
}

func (e *engine) Close() {
	_ = e.cache.Close()
}

// incompatibleWithGameVersion reports whether r declares a "minecraft"
// dependency range that the configured target game version fails to
// satisfy. Records with no declared range are always treated as
// compatible.
func incompatibleWithGameVersion(r modtypes.ModRecord, gameVersion string) bool {
	rangeExpr, ok := r.Requires["minecraft"]
	if !ok || rangeExpr == "" {
		return false
	}
	return !version.Satisfies(rangeExpr, gameVersion)
}
