// Package scanner walks a directory of mod archives, consults the content
// cache by freshness fingerprint, and produces an insertion-ordered mod
// list per spec §4.3.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"modsync/internal/archive"
	"modsync/internal/cache"
	"modsync/internal/modtypes"
	"modsync/internal/workerpool"
)

// Scan walks dir (non-recursively) for .jar/.zip archives and returns an
// ordered filename→ModRecord mapping, lexicographic by filename. Cache
// hits (matching size+mtime fingerprint) are materialized without a parse;
// everything else is parsed concurrently via the shared worker pool and
// upserted back into c.
func Scan(dir string, c *cache.Cache) ([]modtypes.ModRecord, []modtypes.ReadEvent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var filenames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lower := strings.ToLower(e.Name())
		if strings.HasSuffix(lower, ".jar") || strings.HasSuffix(lower, ".zip") {
			filenames = append(filenames, e.Name())
		}
	}
	sort.Strings(filenames)

	records := make([]modtypes.ModRecord, len(filenames))
	events := make([]modtypes.ReadEvent, len(filenames))

	type job struct {
		index    int
		filename string
	}

	var toParse []job
	for i, name := range filenames {
		fullPath := filepath.Join(dir, name)
		info, err := os.Stat(fullPath)
		if err != nil {
			records[i] = modtypes.ModRecord{Filename: name, DisplayName: name}
			events[i] = modtypes.ReadEvent{Kind: modtypes.ReadError, Path: fullPath, Message: err.Error()}
			continue
		}
		onDisk := modtypes.ModRecord{SizeBytes: info.Size(), MtimeSecs: info.ModTime().Unix()}
		size, mtime := onDisk.Fingerprint()

		if cached, ok := c.Get(name); ok {
			if cachedSize, cachedMtime := cached.Fingerprint(); cachedSize == size && cachedMtime == mtime {
				records[i] = cached
				events[i] = modtypes.ReadEvent{Kind: modtypes.ReadDone, Path: fullPath, Record: cached}
				continue
			}
		}

		records[i] = modtypes.ModRecord{Filename: name, DisplayName: name, Resolving: true}
		toParse = append(toParse, job{index: i, filename: name})
	}

	if len(toParse) == 0 {
		return records, events, nil
	}

	jobCh := make(chan job, len(toParse))
	for _, j := range toParse {
		jobCh <- j
	}
	close(jobCh)

	workerpool.SpawnPool(len(toParse), jobCh, func(j job) {
		fullPath := filepath.Join(dir, j.filename)
		info, statErr := os.Stat(fullPath)

		desc, parseErr := archive.Parse(fullPath)
		if parseErr != nil {
			record := modtypes.ModRecord{Filename: j.filename, DisplayName: j.filename}
			if statErr == nil {
				record.SizeBytes, record.MtimeSecs = info.Size(), info.ModTime().Unix()
			}
			records[j.index] = record
			events[j.index] = modtypes.ReadEvent{Kind: modtypes.ReadError, Path: fullPath, Message: parseErr.Error()}
			return
		}

		record := modtypes.ModRecord{
			Filename:     j.filename,
			DisplayName:  desc.DisplayName,
			DetectedID:   desc.ID,
			VersionLocal: desc.Version,
			Requires:     desc.Requires,
		}
		if statErr == nil {
			record.SizeBytes, record.MtimeSecs = info.Size(), info.ModTime().Unix()
		}

		// Merge with the prior cache row, preserving confirmed_id and
		// version_remote if the cache key matches, per spec §4.3 step 4.
		if prior, ok := c.Get(j.filename); ok {
			record.ConfirmedID = prior.ConfirmedID
			record.VersionRemote = prior.VersionRemote
			record.Selected = prior.Selected
		}

		records[j.index] = record
		events[j.index] = modtypes.ReadEvent{Kind: modtypes.ReadDone, Path: fullPath, Record: record}

		if err := c.Upsert(j.filename, record); err != nil {
			events[j.index] = modtypes.ReadEvent{Kind: modtypes.ReadError, Path: fullPath, Message: err.Error()}
		}
	})

	return records, events, nil
}
