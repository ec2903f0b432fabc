// Package modpack implements C8: swapping the active mods directory
// between saved modpack snapshots via a symlink -> hardlink-tree ->
// parallel-copy cascade, with a marker-file fallback for active-pack
// detection on hosts where the link itself can't be read back.
package modpack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"modsync/internal/modtypes"
	"modsync/internal/workerpool"
)

const activeMarkerName = "mods_updater_active_modpack.txt"

// Manager swaps the contents of ModsDir between snapshots kept under
// ModpacksDir.
type Manager struct {
	ModsDir     string
	ModpacksDir string
	GameDir     string
}

// New constructs a Manager. gameDir is the parent directory the active
// marker file is written alongside, matching spec §4.8's single
// base-game-folder marker location.
func New(modsDir, modpacksDir, gameDir string) *Manager {
	return &Manager{ModsDir: modsDir, ModpacksDir: modpacksDir, GameDir: gameDir}
}

// Activate switches ModsDir to the named modpack, trying symlink, then a
// hardlink tree, then a parallel physical copy, in that order. It
// returns a human-readable description of which strategy succeeded, or
// a combined error if all three failed.
func (m *Manager) Activate(name string) (string, error) {
	source := filepath.Join(m.ModpacksDir, name)
	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("modpack %q not found: %w", name, err)
	}

	if err := m.clearTarget(); err != nil {
		return "", fmt.Errorf("clearing existing mods directory: %w", err)
	}

	if symErr := os.Symlink(source, m.ModsDir); symErr == nil {
		return m.finishActivate(name, "symlink")
	} else if hardlinkErr := copyHardlinks(source, m.ModsDir); hardlinkErr == nil {
		return m.finishActivate(name, "hard links")
	} else {
		_ = os.RemoveAll(m.ModsDir)
		if copyErr := copyParallel(source, m.ModsDir); copyErr == nil {
			return m.finishActivate(name, "parallel copy")
		} else {
			return "", fmt.Errorf("activating modpack %q failed across every strategy: %w",
				name, errors.Join(symErr, hardlinkErr, copyErr))
		}
	}
}

// finishActivate writes the marker file for a strategy that already
// succeeded in placing the modpack contents at ModsDir.
func (m *Manager) finishActivate(name, strategy string) (string, error) {
	if err := m.writeActiveMarker(name); err != nil {
		return "", fmt.Errorf("writing active marker: %w", err)
	}
	return fmt.Sprintf("switched to %q via %s", name, strategy), nil
}

// clearTarget removes whatever currently occupies ModsDir, whether a
// symlink, a directory, or (on some hosts) a junction reported as a dir.
func (m *Manager) clearTarget() error {
	info, err := os.Lstat(m.ModsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return os.Remove(m.ModsDir)
	}
	if info.IsDir() {
		return os.RemoveAll(m.ModsDir)
	}
	return os.Remove(m.ModsDir)
}

// copyHardlinks walks src, recreating its directory structure under dst
// and hard-linking every file rather than copying bytes.
func copyHardlinks(src, dst string) error {
	ops, err := collectCopyOps(src, dst)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err := os.Link(op.from, op.to); err != nil {
			return fmt.Errorf("hard-linking %s: %w", op.from, err)
		}
	}
	return nil
}

// copyParallel walks src the same way but copies file bytes, fanned out
// over the shared worker pool rather than one file at a time.
func copyParallel(src, dst string) error {
	ops, err := collectCopyOps(src, dst)
	if err != nil {
		return err
	}

	jobs := make(chan copyOp, len(ops))
	for _, op := range ops {
		jobs <- op
	}
	close(jobs)

	var mu sync.Mutex
	var firstErr error

	workerpool.SpawnPool(len(ops), jobs, func(op copyOp) {
		if err := copyFile(op.from, op.to); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("copying %s: %w", op.from, err)
			}
			mu.Unlock()
		}
	})

	return firstErr
}

type copyOp struct {
	from, to string
}

// collectCopyOps walks src recursively, creating directories under dst
// eagerly and returning the flat list of (src-file, dst-file) pairs
// still to be linked or copied.
func collectCopyOps(src, dst string) ([]copyOp, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, err
	}

	var ops []copyOp
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			nested, err := collectCopyOps(from, to)
			if err != nil {
				return nil, err
			}
			ops = append(ops, nested...)
			continue
		}
		ops = append(ops, copyOp{from: from, to: to})
	}
	return ops, nil
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(to)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	if _, err := dst.ReadFrom(src); err != nil {
		return err
	}
	return dst.Close()
}

func (m *Manager) activeMarkerPath() string {
	return filepath.Join(m.GameDir, activeMarkerName)
}

func (m *Manager) writeActiveMarker(name string) error {
	p := m.activeMarkerPath()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(name), 0o644)
}

// ActiveModpack reports the currently linked-in modpack, reading the
// symlink target first and falling back to the marker file when ModsDir
// is a real directory (the hardlink/copy strategies leave no link to
// read back).
func (m *Manager) ActiveModpack() (modtypes.ActiveMarker, bool) {
	if target, err := os.Readlink(m.ModsDir); err == nil {
		return modtypes.ActiveMarker{ModpackName: filepath.Base(target)}, true
	}

	data, err := os.ReadFile(m.activeMarkerPath())
	if err != nil {
		return modtypes.ActiveMarker{}, false
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return modtypes.ActiveMarker{}, false
	}
	return modtypes.ActiveMarker{ModpackName: name}, true
}

// CleanPartialDownloads removes any leftover *.part staging files under
// ModpacksDir, left behind by a downloader run that was interrupted
// mid-transfer.
func (m *Manager) CleanPartialDownloads() (int, error) {
	var removed int
	err := filepath.WalkDir(m.ModpacksDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".part") {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return removed, err
}
