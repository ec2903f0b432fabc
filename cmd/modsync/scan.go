package main

import (
	"fmt"

	"modsync/internal/modtypes"
	"modsync/internal/scanner"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [MODS_DIR]",
	Short: "Scan a mods directory and refresh the local content cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine(cmd, args)
		if err != nil {
			return err
		}
		defer e.Close()

		records, events, err := scanner.Scan(modsDir(args), e.cache)
		if err != nil {
			return fmt.Errorf("scanning mods directory: %w", err)
		}

		for _, ev := range events {
			if ev.Kind == modtypes.ReadError {
				pterm.Warning.Printf("%s: %s\n", ev.Path, ev.Message)
			}
		}

		for _, r := range records {
			if incompatibleWithGameVersion(r, e.cfg.GameVersion) {
				pterm.Warning.Printf("%s declares minecraft %q, incompatible with target %s\n",
					r.Filename, r.Requires["minecraft"], e.cfg.GameVersion)
			}
		}

		pterm.Success.Printf("scanned %d archive(s)\n", len(records))
		renderModTable(records)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func renderModTable(records []modtypes.ModRecord) {
	rows := pterm.TableData{{"Filename", "Display Name", "Local Version", "Remote Version"}}
	for _, r := range records {
		remote := r.VersionRemote
		if remote == "" {
			remote = "N/A"
		}
		rows = append(rows, []string{r.Filename, r.DisplayName, r.VersionLocal, remote})
	}

	if pterm.RawOutput {
		for _, r := range records {
			fmt.Printf("%s\t%s\t%s\n", r.Filename, r.DisplayName, r.VersionLocal)
		}
		return
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
