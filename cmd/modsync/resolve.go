package main

import (
	"context"
	"fmt"

	"modsync/internal/modtypes"
	"modsync/internal/scanner"
	"modsync/internal/workerpool"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [MODS_DIR]",
	Short: "Resolve each scanned archive's latest remote version",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine(cmd, args)
		if err != nil {
			return err
		}
		defer e.Close()

		records, _, err := scanner.Scan(modsDir(args), e.cache)
		if err != nil {
			return fmt.Errorf("scanning mods directory: %w", err)
		}

		ctx := context.Background()
		jobs := make(chan modtypes.ModRecord, len(records))
		for _, r := range records {
			jobs <- r
		}
		close(jobs)

		spinner, _ := pterm.DefaultSpinner.Start("resolving remote versions...")
		workerpool.SpawnPool(len(records), jobs, func(r modtypes.ModRecord) {
			candidateID := r.ConfirmedID
			if candidateID == "" {
				candidateID = r.DetectedID
			}
			desc, err := e.resolver.Find(ctx, r.DisplayName, candidateID, e.cfg.GameVersion, e.cfg.Loader, e.cfg.CurseForgeKey)
			if err != nil || desc == nil {
				return
			}
			_ = e.cache.UpdateRemote(r.Filename, desc.ProjectID, desc.VersionTag)
		})
		spinner.Success("resolution complete")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
