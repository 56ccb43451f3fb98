// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/irca-engine/internal/archive"
	"github.com/pdiddy/irca-engine/internal/base"
	"github.com/pdiddy/irca-engine/internal/health"
	"github.com/pdiddy/irca-engine/internal/photos"
	"github.com/pdiddy/irca-engine/internal/workflow"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// statusFor maps controller errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrUnknownStep), errors.Is(err, photos.ErrUnknownCity):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrStepLocked),
		errors.Is(err, workflow.ErrNoMonthSelected),
		errors.Is(err, workflow.ErrNoData),
		errors.Is(err, workflow.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidOutputDir):
		return http.StatusBadRequest
	case errors.Is(err, archive.ErrNoReports):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// GET /api/status
func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Status())
}

// GET /api/dashboard
func (s *Server) getDashboard(c *gin.Context) {
	rep := health.Run(s.ctrl.Config())
	c.JSON(http.StatusOK, gin.H{
		"metrics": s.ctrl.Dashboard(c.Request.Context()),
		"health":  gin.H{"healthy": rep.Healthy, "status": rep.Status(), "issues": rep.Issues},
	})
}

// GET /api/months
func (s *Server) listMonths(c *gin.Context) {
	months, err := s.ctrl.Months()
	if err != nil {
		fail(c, err)
		return
	}
	sess, _ := s.ctrl.Session()
	c.JSON(http.StatusOK, gin.H{"items": months, "session": sess})
}

// GET /api/session
func (s *Server) getSession(c *gin.Context) {
	sess, err := s.ctrl.Session()
	if err != nil {
		fail(c, err)
		return
	}
	reports := s.ctrl.Reports()
	c.JSON(http.StatusOK, gin.H{
		"session":         sess,
		"month_display":   sess.MonthDisplay(),
		"workflow_done":   s.ctrl.NextStep() == "",
		"can_download":    s.ctrl.CanPackage() == nil,
		"reports_ready":   reports.Ready(),
		"valid_reports":   reports.Valid,
		"has_output_dir":  sess.OutputDirectory != "",
		"has_month_saved": sess.HasMonth(),
	})
}

type sessionRequest struct {
	Month           string `json:"month"`
	Year            int    `json:"year"`
	OutputDirectory string `json:"output_directory"`
}

// POST /api/session
func (s *Server) updateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	reset := false
	if req.Month != "" || req.Year != 0 {
		var err error
		if reset, err = s.ctrl.SelectMonth(c.Request.Context(), req.Month, req.Year); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.OutputDirectory != "" {
		if err := s.ctrl.SetOutputDir(req.OutputDirectory); err != nil {
			fail(c, err)
			return
		}
	}
	sess, _ := s.ctrl.Session()
	c.JSON(http.StatusOK, gin.H{"session": sess, "reset": reset})
}

// POST /api/steps/:step
func (s *Server) executeStep(c *gin.Context) {
	step, err := types.ParseStep(c.Param("step"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	res, err := s.ctrl.Execute(c.Request.Context(), step)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/workflow/run
func (s *Server) runWorkflow(c *gin.Context) {
	results, err := s.ctrl.RunAll(c.Request.Context())
	body := gin.H{"results": results, "success": err == nil}
	if err != nil {
		body["error"] = err.Error()
		if len(results) == 0 {
			c.JSON(statusFor(err), body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

// POST /api/workflow/reset?all=true
func (s *Server) resetWorkflow(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))
	var err error
	if all {
		err = s.ctrl.ResetAll(c.Request.Context())
	} else {
		err = s.ctrl.Reset(c.Request.Context())
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true, "all": all})
}

type verifyRequest struct {
	City string `json:"city"`
}

// POST /api/photos/verify
func (s *Server) verifyPhotos(c *gin.Context) {
	var req verifyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	var out bytes.Buffer
	rep, err := s.ctrl.VerifyPhotos(c.Request.Context(), req.City, &out)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":       rep,
		"success_rate": rep.SuccessRate(),
		"output":       out.String(),
	})
}

// GET /api/config
func (s *Server) getConfig(c *gin.Context) {
	cfg := s.ctrl.Config()
	markers := gin.H{}
	for _, step := range types.Steps {
		markers[string(step)] = s.ctrl.Completed(step)
	}
	folders, _ := base.Folders(cfg.DataDir)
	pathErrors := health.PathErrors(cfg)
	c.JSON(http.StatusOK, gin.H{
		"config":      cfg,
		"paths_valid": len(pathErrors) == 0,
		"path_errors": pathErrors,
		"steps":       markers,
		"folders":     folders,
	})
}

// GET /api/health
func (s *Server) getHealth(c *gin.Context) {
	rep := health.Run(s.ctrl.Config())
	c.JSON(http.StatusOK, gin.H{
		"healthy":         rep.Healthy,
		"status":          rep.Status(),
		"checks":          rep.Checks,
		"issues":          rep.Issues,
		"recommendations": rep.Recommendations,
	})
}

// GET /api/logs?limit=50
func (s *Server) getLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	logs, err := s.ctrl.Logs(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	if logs == nil {
		logs = []workflow.LogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"total": len(logs), "items": logs})
}

// GET /api/reports
func (s *Server) getReports(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.Reports())
}

// GET /api/download
func (s *Server) download(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := s.ctrl.Package(&buf); err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+s.ctrl.PackageName()+`"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// POST /api/package writes the ZIP into the session output directory.
func (s *Server) packageReports(c *gin.Context) {
	res, err := s.ctrl.PackageFile("")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
