// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/irca-engine/internal/photos"
	"github.com/pdiddy/irca-engine/internal/runner"
	"github.com/pdiddy/irca-engine/pkg/types"
)

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Optional photo manifest operations",
}

var photosVerifyCmd = &cobra.Command{
	Use:   "verify [city]",
	Short: "Check that every photo in the manifest exists",
	Long: `Verify reads the photo manifest (photos_file) and checks that every
FOTO1..FOTO4 path configured for the city, or for every city when none is
given, points at an existing file. The verification is recorded in the
execution history, except with --json: that form is what the workflow's
subprocess runner invokes, and the workflow records the result itself.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPhotosVerify,
}

func init() {
	photosVerifyCmd.Flags().Bool("json", false, "print the result as a JSON line after the status output")
	photosCmd.AddCommand(photosVerifyCmd)
	rootCmd.AddCommand(photosCmd)
}

func runPhotosVerify(cmd *cobra.Command, args []string) error {
	city := ""
	if len(args) == 1 {
		city = args[0]
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	ctrl, done, err := newController(false, nil, nil)
	if err != nil {
		return err
	}
	defer done()

	var rep photos.Report
	if asJSON {
		rep, err = ctrl.CheckPhotos(city, os.Stdout)
	} else {
		rep, err = ctrl.VerifyPhotos(cmd.Context(), city, os.Stdout)
	}
	if err != nil {
		return err
	}
	res := types.StepResult{Step: types.StepPhotos, Batch: types.BatchResult{Processed: rep.Found, Failed: rep.Missing}}
	runner.Conclude(&res, nil)

	if asJSON {
		if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
			return err
		}
	}
	if !res.Success {
		return fmt.Errorf("%d photo(s) missing", rep.Missing)
	}
	return nil
}
