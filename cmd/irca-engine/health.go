// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/irca-engine/internal/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check directories, IRCA data and write permissions",
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().Bool("json", false, "output the report as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	rep := health.Run(appConfig)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		fmt.Println(rep.Status())
		checks := make([]string, 0, len(rep.Checks))
		for name := range rep.Checks {
			checks = append(checks, name)
		}
		sort.Strings(checks)
		for _, name := range checks {
			state := "ok"
			if !rep.Checks[name] {
				state = "error"
			}
			fmt.Printf("  %-6s %s\n", name, state)
		}
		for _, issue := range rep.Issues {
			fmt.Printf("issue:  %s\n", issue)
		}
		for _, r := range rep.Recommendations {
			fmt.Printf("advice: %s\n", r)
		}
	}
	if !rep.Healthy {
		return fmt.Errorf("%d health issue(s)", len(rep.Issues))
	}
	return nil
}
