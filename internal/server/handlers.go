package server

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"

	"github.com/vegasq/tablescope/internal/dataset"
	"github.com/vegasq/tablescope/internal/explorer"
	"github.com/vegasq/tablescope/internal/metrics"
	"github.com/vegasq/tablescope/internal/output"
	"github.com/vegasq/tablescope/internal/reader"
	"github.com/vegasq/tablescope/internal/session"
	"github.com/vegasq/tablescope/internal/view"
)

// FetchRequest is the body of POST /fetch.
type FetchRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"jql_query"`
	SortCol   string `json:"sort_col"`
	SortDir   string `json:"sort_dir"`
	Page      int    `json:"page"`
}

// AnalyzeRequest is the body of POST /analyze_column.
type AnalyzeRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Column    string `json:"column" binding:"required"`
	Query     string `json:"jql_query"`
}

// ExportRequest is the body of POST /export.
type ExportRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"jql_query"`
	Format    string `json:"format"`
}

// SessionRequest is the body of requests naming only a session.
type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func clientOf(c *gin.Context) explorer.Client {
	return explorer.Client{
		RemoteAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

// fail maps an operation error to a status code.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, explorer.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": explorer.ErrSessionNotFound.Error()})
	case errors.Is(err, view.ErrColumnNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("server: request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type ingestResult struct {
	ds  *dataset.Dataset
	err error
}

// ingest parses an uploaded file on the worker pool.
func (s *Server) ingest(c *gin.Context, fh *multipart.FileHeader, sheet string) (*dataset.Dataset, error) {
	opts := s.readerOpts
	opts.Sheet = sheet

	done := make(chan ingestResult, 1)
	err := s.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- ingestResult{err: fmt.Errorf("ingest panic: %v", r)}
			}
		}()

		f, err := fh.Open()
		if err != nil {
			done <- ingestResult{err: fmt.Errorf("failed to open upload: %w", err)}
			return
		}
		defer func() { _ = f.Close() }()

		ds, err := reader.Load(fh.Filename, f, opts)
		done <- ingestResult{ds: ds, err: err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case res := <-done:
		return res.ds, res.err
	case <-c.Request.Context().Done():
		return nil, c.Request.Context().Err()
	}
}

func (s *Server) upload(c *gin.Context) {
	start := time.Now()
	if s.cfg.Upload.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Upload.MaxBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file part"})
		return
	}
	if fh.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no selected file"})
		return
	}

	format, err := reader.DetectFormat(fh.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		sessionID = session.NewID()
	}

	ds, err := s.ingest(c, fh, c.PostForm("sheet_name"))
	var multi *reader.MultipleSheetsError
	switch {
	case err == nil:
	case errors.As(err, &multi):
		c.JSON(http.StatusOK, gin.H{
			"multi_sheet": true,
			"sheets":      multi.Sheets,
			"session_id":  sessionID,
		})
		return
	case errors.Is(err, ants.ErrPoolOverload):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server busy, retry later"})
		return
	case errors.Is(err, reader.ErrEmptyFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		s.logger.Warn("server: upload rejected", "file", fh.Filename, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to read file: %v", err)})
		return
	}

	if err := s.explorer.StoreDataset(c.Request.Context(), clientOf(c), sessionID, ds); err != nil {
		s.fail(c, err)
		return
	}
	metrics.UploadRows.Observe(float64(ds.Len()))

	elapsed := time.Since(start)
	s.logger.Info("server: dataset loaded",
		"session_id", sessionID,
		"file", fh.Filename,
		"rows", ds.Len(),
		"columns", ds.NumColumns(),
		"duration", elapsed)

	c.JSON(http.StatusOK, gin.H{
		"columns":     ds.ColumnNames(),
		"options":     view.Options(ds, s.cfg.Query.TopValues),
		"session_id":  sessionID,
		"import_time": seconds(elapsed),
		"is_parquet":  format == reader.FormatParquet,
	})
}

func (s *Server) fetch(c *gin.Context) {
	var req FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	resp, err := s.explorer.FilterAndPage(c.Request.Context(), clientOf(c), explorer.PageRequest{
		SessionID: req.SessionID,
		Query:     req.Query,
		Sort: view.Sort{
			Column:     req.SortCol,
			Descending: strings.EqualFold(req.SortDir, "desc"),
		},
		Page: req.Page,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":        resp.Rows,
		"total_count": resp.TotalCount,
		"filter_time": seconds(resp.Elapsed),
		"count_only":  resp.CountOnly,
	})
}

func (s *Server) analyzeColumn(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	stats, err := s.explorer.AnalyzeColumn(c.Request.Context(), clientOf(c), explorer.AnalyzeRequest{
		SessionID: req.SessionID,
		Column:    req.Column,
		Query:     req.Query,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) deleteSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if err := s.explorer.DeleteSession(c.Request.Context(), req.SessionID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	format := strings.ToLower(req.Format)
	if format == "" {
		format = output.ExportXLSX
	}
	if format != output.ExportXLSX && format != output.ExportCSV && format != output.ExportParquet {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported export format: %s", req.Format)})
		return
	}

	ds, err := s.explorer.Filtered(c.Request.Context(), clientOf(c), req.SessionID, req.Query)
	if err != nil {
		s.fail(c, err)
		return
	}

	name := fmt.Sprintf("export_%s.%s", time.Now().Format("20060102_150405"), format)
	s.sendDataset(c, ds, format, name)
}

func (s *Server) getParquet(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	ds, err := s.explorer.Dataset(c.Request.Context(), clientOf(c), req.SessionID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.sendDataset(c, ds, output.ExportParquet, "converted.parquet")
}

// sendDataset renders ds fully before writing so that encoding errors still
// produce a JSON error response.
func (s *Server) sendDataset(c *gin.Context, ds *dataset.Dataset, format, filename string) {
	var buf bytes.Buffer
	if err := output.Export(&buf, ds, format); err != nil {
		s.fail(c, fmt.Errorf("failed to export %s: %w", format, err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, output.ContentType(format), buf.Bytes())
}
