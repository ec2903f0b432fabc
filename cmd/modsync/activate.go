package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var activateCmd = &cobra.Command{
	Use:   "activate NAME [MODS_DIR]",
	Short: "Switch the active mods directory to a saved modpack snapshot",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		e, err := buildEngine(cmd, args[1:])
		if err != nil {
			return err
		}
		defer e.Close()

		if removed, err := e.modpack.CleanPartialDownloads(); err == nil && removed > 0 {
			pterm.Info.Printf("cleaned up %d partial download(s)\n", removed)
		}

		desc, err := e.modpack.Activate(name)
		if err != nil {
			return fmt.Errorf("activating modpack %q: %w", name, err)
		}

		pterm.Success.Println(desc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(activateCmd)
}
