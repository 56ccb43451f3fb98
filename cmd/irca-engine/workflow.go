// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/irca-engine/pkg/types"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Sequence the gated steps and manage the session",
	Long: `Workflow gates the three steps with completion markers in the data
directory. A step runs only once a month is selected and the previous step
has completed. Selecting a new month resets a workflow already in progress.`,
}

var workflowStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of each step and the session",
	RunE:  runWorkflowStatus,
}

var workflowRunCmd = &cobra.Command{
	Use:   "run [step]",
	Short: "Run one step, or every pending step in order",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWorkflowRun,
}

var workflowResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the completion markers and execution history",
	RunE:  runWorkflowReset,
}

var workflowSelectMonthCmd = &cobra.Command{
	Use:   "select-month MONTH YEAR",
	Short: "Select the reporting month (e.g. Julio 2025)",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkflowSelectMonth,
}

var workflowOutputDirCmd = &cobra.Command{
	Use:   "output-dir DIR",
	Short: "Set the existing directory packages are written to",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowOutputDir,
}

func init() {
	workflowRunCmd.Flags().Bool("subprocess", false, "run each step as a child irca-engine process")
	workflowResetCmd.Flags().Bool("all", false, "also remove the session and every city folder")

	workflowCmd.AddCommand(workflowStatusCmd, workflowRunCmd, workflowResetCmd,
		workflowSelectMonthCmd, workflowOutputDirCmd)
	rootCmd.AddCommand(workflowCmd)
}

func runWorkflowStatus(cmd *cobra.Command, args []string) error {
	ctrl, done, err := newController(false, nil, nil)
	if err != nil {
		return err
	}
	defer done()

	st := ctrl.Status()
	month := st.Month
	if month == "" {
		month = "(none selected)"
	}
	fmt.Printf("Month:  %s\n", month)
	if st.Session.OutputDirectory != "" {
		fmt.Printf("Output: %s\n", st.Session.OutputDirectory)
	}
	fmt.Printf("State:  %s\n\n", st.Overall)
	for _, s := range st.Steps {
		mark := "[ ]"
		if s.Completed {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s  %s", mark, s.Step, s.Title)
		if !s.Completed && s.Reason != "" {
			line += "  (" + s.Reason + ")"
		}
		fmt.Println(line)
	}
	if st.Next != "" {
		fmt.Printf("\nNext step: %s\n", st.Next.Command())
	}
	return nil
}

func runWorkflowRun(cmd *cobra.Command, args []string) error {
	subprocess, _ := cmd.Flags().GetBool("subprocess")
	ctrl, done, err := newController(subprocess, nil, os.Stdout)
	if err != nil {
		return err
	}
	defer done()

	if len(args) == 1 {
		step, err := types.ParseStep(args[0])
		if err != nil {
			return err
		}
		res, err := ctrl.Execute(cmd.Context(), step)
		if err != nil {
			return err
		}
		printResult(res, subprocess)
		if !res.Success {
			return fmt.Errorf("%s failed: %s", step.Title(), res.Message)
		}
		return nil
	}

	results, err := ctrl.RunAll(cmd.Context())
	for _, res := range results {
		printResult(res, subprocess)
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("All steps already completed.")
	}
	return nil
}

// printResult shows a step outcome. Child process output was captured,
// so it is printed here; in-process output was already streamed.
func printResult(res types.StepResult, captured bool) {
	if captured && res.Output != "" {
		fmt.Print(res.Output)
	}
	status := "ok"
	if !res.Success {
		status = "FAILED"
	}
	fmt.Printf("%s: %s (%s) %s\n", res.Step.Title(), status, res.Duration.Round(100*time.Millisecond), res.Message)
}

func runWorkflowReset(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	ctrl, done, err := newController(false, nil, nil)
	if err != nil {
		return err
	}
	defer done()

	if all {
		if err := ctrl.ResetAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Workflow, session and city folders reset.")
		return nil
	}
	if err := ctrl.Reset(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Workflow reset.")
	return nil
}

func runWorkflowSelectMonth(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid year %q", args[1])
	}
	ctrl, done, err := newController(false, nil, nil)
	if err != nil {
		return err
	}
	defer done()

	reset, err := ctrl.SelectMonth(cmd.Context(), args[0], year)
	if err != nil {
		return err
	}
	s, _ := ctrl.Session()
	fmt.Printf("Selected %s\n", s.MonthDisplay())
	if reset {
		fmt.Println("The workflow in progress was reset.")
	}
	return nil
}

func runWorkflowOutputDir(cmd *cobra.Command, args []string) error {
	ctrl, done, err := newController(false, nil, nil)
	if err != nil {
		return err
	}
	defer done()

	if err := ctrl.SetOutputDir(args[0]); err != nil {
		return err
	}
	fmt.Printf("Output directory set to %s\n", args[0])
	return nil
}
