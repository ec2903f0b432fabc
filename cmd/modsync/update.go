package main

import (
	"context"
	"fmt"
	"path/filepath"

	"modsync/internal/depgraph"
	"modsync/internal/downloader"
	"modsync/internal/modtypes"
	"modsync/internal/scanner"
	"modsync/internal/version"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update [MODS_DIR]",
	Short: "Download updates for every outdated or missing mod, including new transitive dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine(cmd, args)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := context.Background()
		dir := modsDir(args)

		records, _, err := scanner.Scan(dir, e.cache)
		if err != nil {
			return fmt.Errorf("scanning mods directory: %w", err)
		}

		installed := make(map[string]struct{}, len(records))
		onDisk := make(map[string]struct{}, len(records))
		for _, r := range records {
			id := r.ConfirmedID
			if id == "" {
				id = r.DetectedID
			}
			if id != "" {
				installed[id] = struct{}{}
			}
			onDisk[r.Filename] = struct{}{}
		}

		dl := downloader.New(e.resolver, e.cache, e.cfg.CurseForgeKey)

		var jobs []modtypes.DownloadJob
		for _, r := range records {
			if incompatibleWithGameVersion(r, e.cfg.GameVersion) {
				pterm.Warning.Printf("skipping %s: incompatible with target game version %s\n", r.Filename, e.cfg.GameVersion)
				continue
			}
			if r.VersionLocal != "" && version.Equal(r.VersionLocal, r.VersionRemote) {
				continue
			}
			jobs = append(jobs, modtypes.DownloadJob{
				Key:           r.Filename,
				Record:        r,
				TargetDir:     dir,
				WantedVersion: e.cfg.GameVersion,
				WantedLoader:  e.cfg.Loader,
			})
		}

		for _, r := range records {
			rootID := r.ConfirmedID
			if rootID == "" {
				rootID = r.DetectedID
			}
			if rootID == "" {
				continue
			}
			deps, err := depgraph.Expand(ctx, e.resolver, rootID, e.cfg.GameVersion, e.cfg.Loader, e.cfg.CurseForgeKey, installed)
			if err != nil {
				continue
			}
			for _, d := range deps {
				if _, ok := installed[d.ProjectID]; ok {
					continue
				}
				// A dependency may already sit on disk under a filename the
				// id-based installed set doesn't know about yet (e.g. it
				// was never resolved to a confirmed id). Skip those too,
				// per the caller-side filename dedup the expander leaves
				// to its caller.
				if _, ok := onDisk[d.Filename]; ok {
					installed[d.ProjectID] = struct{}{}
					continue
				}
				installed[d.ProjectID] = struct{}{}
				onDisk[d.Filename] = struct{}{}
				jobs = append(jobs, modtypes.DownloadJob{
					Key:           d.Filename,
					Record:        modtypes.ModRecord{ConfirmedID: d.ProjectID, DisplayName: d.ProjectID},
					TargetDir:     dir,
					WantedVersion: e.cfg.GameVersion,
					WantedLoader:  e.cfg.Loader,
				})
			}
		}

		if len(jobs) == 0 {
			pterm.Success.Println("everything is already up to date")
			return nil
		}

		pterm.Info.Printf("downloading %d file(s)...\n", len(jobs))
		events := make(chan modtypes.DownloadEvent, len(jobs)*4)
		go dl.Run(ctx, jobs, events)

		var done, failed int
		for ev := range events {
			switch ev.Kind {
			case modtypes.EventDone:
				done++
				pterm.Success.Printf("%s: done\n", filepath.Base(ev.Key))
			case modtypes.EventError:
				failed++
				pterm.Error.Printf("%s: %s\n", filepath.Base(ev.Key), ev.Message)
			}
		}

		pterm.Println()
		pterm.Success.Printf("update complete: %d downloaded, %d failed\n", done, failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
