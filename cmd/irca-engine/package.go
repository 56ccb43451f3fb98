// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var packageCmd = &cobra.Command{
	Use:   "package",
	Short: "Package the valid reports into a ZIP with a summary",
	Long: `Package collects every generated report larger than 1 KiB into a ZIP
archive together with RESUMEN_DESCARGA.txt. It requires all three steps to
be complete. Without --out the archive is written into the session output
directory.`,
	RunE: runPackage,
}

func init() {
	packageCmd.Flags().String("out", "", "ZIP file or directory to write (default: the session output directory)")
	rootCmd.AddCommand(packageCmd)
}

func runPackage(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	ctrl, done, err := newController(false, nil, nil)
	if err != nil {
		return err
	}
	defer done()

	res, err := ctrl.PackageFile(out)
	if err != nil {
		return err
	}
	for _, e := range res.Entries {
		fmt.Printf("added:   %s (%s)\n", e.Name, humanize.Bytes(uint64(e.Size)))
	}
	fmt.Printf("\nWrote %s: %d reports, %s\n", res.Filename, len(res.Entries), humanize.Bytes(uint64(res.Bytes)))
	return nil
}
