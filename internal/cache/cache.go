// Package cache is the transactional on-disk content cache: two bbolt
// buckets, "files" and "projects", preserving resolved remote info across
// rescans per spec §4.4.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"modsync/internal/modtypes"
)

var (
	bucketFiles    = []byte("files")
	bucketProjects = []byte("projects")
)

// Cache wraps a bbolt database exposing the four cache operations spec §4.4
// names. A nil db (construction failure) makes every method a safe no-op,
// per §4.4.6: cache initialization failures degrade performance, not
// correctness.
type Cache struct {
	db *bbolt.DB
}

// Open creates or opens the cache database inside cacheDir, named
// mods_cache_v2.bolt to avoid colliding with any prior schema.
func Open(cacheDir string) (*Cache, error) {
	if cacheDir == "" {
		return &Cache{}, nil
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return &Cache{}, fmt.Errorf("creating cache directory %s: %w", cacheDir, err)
	}
	return OpenPath(filepath.Join(cacheDir, "mods_cache_v2.bolt"))
}

// OpenPath opens the cache database at an explicit path, primarily for
// tests that want an isolated file.
func OpenPath(dbPath string) (*Cache, error) {
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return &Cache{}, fmt.Errorf("opening cache database %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketFiles); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketProjects)
		return err
	})
	if err != nil {
		_ = db.Close()
		return &Cache{}, fmt.Errorf("initializing cache buckets in %s: %w", dbPath, err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle. Safe to call on a
// cache-less instance.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// canonicalProjectID implements spec §4.4.1: confirmed_id ?? detected_id ??
// display_name.
func canonicalProjectID(r modtypes.ModRecord) string {
	if r.ConfirmedID != "" {
		return r.ConfirmedID
	}
	if r.DetectedID != "" {
		return r.DetectedID
	}
	return r.DisplayName
}

// Get resolves a filename to its combined ModRecord via the files→projects
// join, or returns ok=false on any miss (no row, decode failure, or
// cache-less mode).
func (c *Cache) Get(filename string) (modtypes.ModRecord, bool) {
	if c.db == nil {
		return modtypes.ModRecord{}, false
	}

	var record modtypes.ModRecord
	found := false

	_ = c.db.View(func(tx *bbolt.Tx) error {
		filesBucket := tx.Bucket(bucketFiles)
		projectsBucket := tx.Bucket(bucketProjects)

		raw := filesBucket.Get([]byte(filename))
		if raw == nil {
			return nil
		}
		var file modtypes.CachedFile
		if err := json.Unmarshal(raw, &file); err != nil {
			return nil
		}

		projRaw := projectsBucket.Get([]byte(file.ProjectRef))
		if projRaw == nil {
			return nil
		}
		var proj modtypes.CachedProject
		if err := json.Unmarshal(projRaw, &proj); err != nil {
			return nil
		}

		record = modtypes.ModRecord{
			Filename:      filename,
			DisplayName:   proj.DisplayName,
			DetectedID:    proj.DetectedID,
			ConfirmedID:   proj.ConfirmedID,
			VersionLocal:  file.VersionLocal,
			VersionRemote: proj.LatestResolvedVersion,
			SizeBytes:     file.SizeBytes,
			MtimeSecs:     file.MtimeSecs,
			Requires:      file.Requires,
		}
		found = true
		return nil
	})

	return record, found
}

// Upsert writes filename's ModRecord into both tables in one transaction,
// preserving any existing project row's ConfirmedID/VersionRemote when the
// incoming record leaves those fields empty, per spec §4.4.2.
func (c *Cache) Upsert(filename string, record modtypes.ModRecord) error {
	if c.db == nil {
		return nil
	}

	projectID := canonicalProjectID(record)

	return c.db.Update(func(tx *bbolt.Tx) error {
		filesBucket := tx.Bucket(bucketFiles)
		projectsBucket := tx.Bucket(bucketProjects)

		// A record without a confirmed id joins an existing project row
		// that shares its detected id and already carries one, so a new
		// archive version inherits its predecessor's resolution.
		if record.ConfirmedID == "" && record.DetectedID != "" {
			_ = projectsBucket.ForEach(func(k, v []byte) error {
				var p modtypes.CachedProject
				if json.Unmarshal(v, &p) == nil && p.DetectedID == record.DetectedID && p.ConfirmedID != "" {
					projectID = string(k)
				}
				return nil
			})
		}

		proj := modtypes.CachedProject{
			ProjectID:             projectID,
			DisplayName:           record.DisplayName,
			DetectedID:            record.DetectedID,
			ConfirmedID:           record.ConfirmedID,
			LatestResolvedVersion: record.VersionRemote,
		}

		if existingRaw := projectsBucket.Get([]byte(projectID)); existingRaw != nil {
			var existing modtypes.CachedProject
			if err := json.Unmarshal(existingRaw, &existing); err == nil {
				if proj.ConfirmedID == "" {
					proj.ConfirmedID = existing.ConfirmedID
				}
				if proj.LatestResolvedVersion == "" {
					proj.LatestResolvedVersion = existing.LatestResolvedVersion
				}
			}
		}

		projBytes, err := json.Marshal(proj)
		if err != nil {
			return fmt.Errorf("marshaling project row %s: %w", projectID, err)
		}
		if err := projectsBucket.Put([]byte(projectID), projBytes); err != nil {
			return err
		}

		file := modtypes.CachedFile{
			Filename:     filename,
			SizeBytes:    record.SizeBytes,
			MtimeSecs:    record.MtimeSecs,
			VersionLocal: record.VersionLocal,
			Requires:     record.Requires,
			ProjectRef:   projectID,
		}
		fileBytes, err := json.Marshal(file)
		if err != nil {
			return fmt.Errorf("marshaling file row %s: %w", filename, err)
		}
		return filesBucket.Put([]byte(filename), fileBytes)
	})
}

// UpdateRemote resolves filename's project_ref, then overwrites
// ConfirmedID/VersionRemote unconditionally in one transaction, per spec
// §4.4.3.
func (c *Cache) UpdateRemote(filename, confirmedID, versionRemote string) error {
	if c.db == nil {
		return nil
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		filesBucket := tx.Bucket(bucketFiles)
		projectsBucket := tx.Bucket(bucketProjects)

		rawFile := filesBucket.Get([]byte(filename))
		if rawFile == nil {
			return nil
		}
		var file modtypes.CachedFile
		if err := json.Unmarshal(rawFile, &file); err != nil {
			return nil
		}

		rawProj := projectsBucket.Get([]byte(file.ProjectRef))
		if rawProj == nil {
			return nil
		}
		var proj modtypes.CachedProject
		if err := json.Unmarshal(rawProj, &proj); err != nil {
			return nil
		}

		proj.ConfirmedID = confirmedID
		proj.LatestResolvedVersion = versionRemote

		projBytes, err := json.Marshal(proj)
		if err != nil {
			return fmt.Errorf("marshaling project row %s: %w", file.ProjectRef, err)
		}
		return projectsBucket.Put([]byte(file.ProjectRef), projBytes)
	})
}

// Prune deletes every file row whose key is absent from validFilenames,
// returning the number removed. Orphaned project rows are left behind
// intentionally, per spec §4.4.4.
func (c *Cache) Prune(validFilenames map[string]struct{}) (int, error) {
	if c.db == nil {
		return 0, nil
	}

	removed := 0
	err := c.db.Update(func(tx *bbolt.Tx) error {
		filesBucket := tx.Bucket(bucketFiles)

		var toRemove [][]byte
		err := filesBucket.ForEach(func(k, _ []byte) error {
			if _, ok := validFilenames[string(k)]; !ok {
				toRemove = append(toRemove, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range toRemove {
			if err := filesBucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(toRemove)
		return nil
	})
	return removed, err
}

// GetConfirmedByDetectedID looks up a project row by iterating for a
// matching DetectedID and returns its ConfirmedID, enabling a new archive
// version to inherit resolution without a fresh registry round-trip, per
// spec §4.4.5.
func (c *Cache) GetConfirmedByDetectedID(detectedID string) (string, bool) {
	if c.db == nil || detectedID == "" {
		return "", false
	}

	var confirmedID string
	found := false

	_ = c.db.View(func(tx *bbolt.Tx) error {
		projectsBucket := tx.Bucket(bucketProjects)
		return projectsBucket.ForEach(func(_, v []byte) error {
			var proj modtypes.CachedProject
			if err := json.Unmarshal(v, &proj); err != nil {
				return nil
			}
			if proj.DetectedID == detectedID && proj.ConfirmedID != "" {
				confirmedID = proj.ConfirmedID
				found = true
			}
			return nil
		})
	})

	return confirmedID, found
}
