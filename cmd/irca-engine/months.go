// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/irca-engine/internal/irca"
)

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "List the month/year pairs present in the IRCA dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := irca.Load(appConfig.IRCAFile)
		if err != nil {
			return err
		}
		months := ds.Months()
		if len(months) == 0 {
			fmt.Println("No dated records in", appConfig.IRCAFile)
			return nil
		}
		for _, m := range months {
			filtered, scope := ds.Filter(m.Month, m.Year)
			fmt.Printf("%-16s %4d records (%s)\n", m.Display(), filtered.Len(), scope)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monthsCmd)
}
