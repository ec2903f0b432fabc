package main

import (
	"fmt"

	"modsync/internal/scanner"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [MODS_DIR]",
	Short: "List currently installed mods alongside the currently active modpack",
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

		if marker, ok := e.modpack.ActiveModpack(); ok {
			pterm.Info.Printf("active modpack: %s\n", marker.ModpackName)
		} else {
			pterm.Info.Println("active modpack: none detected")
		}

		renderModTable(records)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
