// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/irca-engine/internal/runner"
	"github.com/pdiddy/irca-engine/internal/workflow"
	"github.com/pdiddy/irca-engine/pkg/types"
)

var baseCmd = &cobra.Command{
	Use:   "base",
	Short: "Step 1: generate the per-city base workbooks",
	Long: `Base scans the source directory for per-airport measurement workbooks,
creates one folder per city in the data directory, copies each workbook as
base_<city>.xlsx, pivots the measurements into TABLA_4, merges the TAGS
catalogue and copies the city's Word template into the folder.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.StepBase)
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Step 2: fill the TAGS sheets from the IRCA dataset",
	Long: `Tags loads the IRCA dataset, filters it to the selected month and year
and fills the date, period, sampling-point, code, IRCA and risk
classification tags of every city's base workbook. The month defaults to
the one stored in the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.StepTags)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Step 3: render the Word reports",
	Long: `Render replaces the placeholders of each city's Word template with the
values of its TAGS sheet, inserts the configured photographs and saves
reporte_<city>.docx. Folders without a base workbook or template are
skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, types.StepRender)
	},
}

func init() {
	for _, c := range []*cobra.Command{baseCmd, tagsCmd, renderCmd} {
		c.Flags().Bool("json", false, "print the step result as a JSON line after the status output")
		rootCmd.AddCommand(c)
	}
	tagsCmd.Flags().String("month", "", "month to process (default: the session month)")
	tagsCmd.Flags().Int("year", 0, "year to process (default: the session year)")
}

// stageSession returns the stored session with any --month/--year
// override applied.
func stageSession(cmd *cobra.Command) (types.Session, error) {
	s, err := workflow.New(appConfig).Session()
	if err != nil {
		return s, err
	}
	if f := cmd.Flags().Lookup("month"); f != nil && f.Changed {
		s.SelectedMonth = f.Value.String()
	}
	if f := cmd.Flags().Lookup("year"); f != nil && f.Changed {
		s.SelectedYear, _ = cmd.Flags().GetInt("year")
	}
	return s, nil
}

// runStage runs step in-process, streaming its status lines to stdout. A
// step without a single success returns an error so the exit code is the
// success signal.
func runStage(cmd *cobra.Command, step types.Step) error {
	s, err := stageSession(cmd)
	if err != nil {
		return err
	}
	r := runner.NewInProcess(appConfig)
	r.Out = os.Stdout
	res, err := r.Run(cmd.Context(), step, s)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		res.Output = ""
		if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
			return err
		}
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}
