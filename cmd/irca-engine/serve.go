// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/irca-engine/internal/metrics"
	"github.com/pdiddy/irca-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web front end",
	Long: `Serve starts the web front end: Dashboard (with the embedded Power BI
report), Workflow, Optional Functions, Configuration and Logs pages, the
JSON API behind them, /healthz, /readyz and /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	serveCmd.Flags().Bool("subprocess", false, "run each step as a child irca-engine process")
	serveCmd.Flags().Bool("debug", false, "gin debug mode")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = appConfig.Server.Addr
	}
	subprocess, _ := cmd.Flags().GetBool("subprocess")
	if debug, _ := cmd.Flags().GetBool("debug"); !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()
	ctrl, done, err := newController(subprocess, m, nil)
	if err != nil {
		return err
	}
	defer done()
	m.SetReportsReady(ctrl.Reports().Valid)

	err = server.New(ctrl, m, logger).Run(cmd.Context(), addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
