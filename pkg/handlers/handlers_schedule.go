package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/arnavshah/roster-solver-go/pkg/database"
	"github.com/arnavshah/roster-solver-go/pkg/export"
	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/arnavshah/roster-solver-go/pkg/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleJSON solves the posted request and returns the roster as JSON
func (h *Handler) ScheduleJSON(c *gin.Context) {
	resp, ok := h.solve(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ScheduleCSV solves the posted request and returns the roster as CSV
func (h *Handler) ScheduleCSV(c *gin.Context) {
	resp, ok := h.solve(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, resp); err != nil {
		h.logger().Error("csv export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Could not export roster", RequestID: resp.RequestID})
		return
	}
	attachment(c, export.Filename(resp, "csv"))
	c.Data(http.StatusOK, export.ContentTypeCSV, buf.Bytes())
}

// ScheduleXLSX solves the posted request and returns the roster as a spreadsheet
func (h *Handler) ScheduleXLSX(c *gin.Context) {
	resp, ok := h.solve(c)
	if !ok {
		return
	}

	buf, err := export.WriteXLSX(resp)
	if err != nil {
		h.logger().Error("xlsx export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Could not export roster", RequestID: resp.RequestID})
		return
	}
	attachment(c, export.Filename(resp, "xlsx"))
	c.Data(http.StatusOK, export.ContentTypeXLSX, buf.Bytes())
}

// ScheduleICS solves the posted request and returns the shifts as an
// iCalendar feed. worker_id selects one worker; tz is an IANA zone name
func (h *Handler) ScheduleICS(c *gin.Context) {
	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown time zone " + tz, RequestID: requestID(c)})
			return
		}
		loc = l
	}

	req, ok := h.bind(c)
	if !ok {
		return
	}
	workerID := c.Query("worker_id")
	if workerID != "" && !hasWorker(req, workerID) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("%v %q", export.ErrUnknownWorker, workerID), RequestID: requestID(c)})
		return
	}

	resp, ok := h.run(c, req)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteICS(&buf, resp, workerID, loc); err != nil {
		h.logger().Error("ics export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Could not export roster", RequestID: resp.RequestID})
		return
	}
	name := export.Filename(resp, "ics")
	if workerID != "" {
		name = workerID + "_" + name
	}
	attachment(c, name)
	c.Data(http.StatusOK, export.ContentTypeICS, buf.Bytes())
}

// solve binds the request, runs the scheduler and records the outcome. On
// failure it has already written the error response
func (h *Handler) solve(c *gin.Context) (*models.ScheduleResponse, bool) {
	req, ok := h.bind(c)
	if !ok {
		return nil, false
	}
	return h.run(c, req)
}

func (h *Handler) bind(c *gin.Context) (*models.ScheduleRequest, bool) {
	var req models.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), RequestID: requestID(c)})
		return nil, false
	}
	return &req, true
}

func (h *Handler) run(c *gin.Context, req *models.ScheduleRequest) (*models.ScheduleResponse, bool) {
	rid := requestID(c)
	h.recordAttempt(c)

	start := time.Now()
	res, err := h.Roster.Generate(c.Request.Context(), req)
	h.recordSolve(c, rid, req, res, err, time.Since(start))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}

	h.RecordUsage(c, res.Outcome.ShiftUnits, len(req.Workers))
	res.Schedule.RequestID = rid
	return res.Schedule, true
}

func hasWorker(req *models.ScheduleRequest, id string) bool {
	for _, w := range req.Workers {
		if w.ID == id {
			return true
		}
	}
	return false
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := scheduler.HTTPStatus(err)
	fields := []zap.Field{
		zap.String("request_id", requestID(c)),
		zap.String("kind", scheduler.KindOf(err).String()),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger().Error("schedule request failed", fields...)
	} else {
		h.logger().Warn("schedule request rejected", fields...)
	}
	c.JSON(status, models.ErrorResponse{
		Error:       err.Error(),
		Explanation: scheduler.Explanation(err),
		RequestID:   requestID(c),
	})
}

// RecordUsage bills one successful solve to the caller's daily usage row
func (h *Handler) RecordUsage(c *gin.Context, shiftUnits, workers int) {
	h.bumpUsage(c, database.APIUsage{RequestCount: 1, TotalShiftUnits: shiftUnits, TotalWorkers: workers}, map[string]interface{}{
		"request_count":     gorm.Expr("api_usages.request_count + ?", 1),
		"total_shift_units": gorm.Expr("api_usages.total_shift_units + ?", shiftUnits),
		"total_workers":     gorm.Expr("api_usages.total_workers + ?", workers),
	})
}

// recordAttempt counts a started solve against the caller's daily limit,
// whatever its outcome
func (h *Handler) recordAttempt(c *gin.Context) {
	h.bumpUsage(c, database.APIUsage{AttemptCount: 1}, map[string]interface{}{
		"attempt_count": gorm.Expr("api_usages.attempt_count + ?", 1),
	})
}

// bumpUsage upserts today's row for the calling key in a single query,
// supported by both Postgres and SQLite
func (h *Handler) bumpUsage(c *gin.Context, row database.APIUsage, updates map[string]interface{}) {
	apiKey, ok := apiKeyFrom(c)
	if !ok || h.DB == nil {
		return
	}
	row.KeyID = apiKey.ID
	row.Date = today()
	err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&row).Error
	if err != nil {
		h.logger().Error("usage upsert failed", zap.String("request_id", requestID(c)), zap.Error(err))
	}
}

func (h *Handler) recordSolve(c *gin.Context, rid string, req *models.ScheduleRequest, res *scheduler.Result, err error, elapsed time.Duration) {
	if h.DB == nil {
		return
	}

	rec := database.SolveRecord{
		RequestID:  rid,
		Status:     "REJECTED",
		Workers:    len(req.Workers),
		DurationMS: elapsed.Milliseconds(),
	}
	if apiKey, ok := apiKeyFrom(c); ok {
		rec.KeyID = &apiKey.ID
	}
	if res != nil {
		rec.Status = res.Outcome.Status.String()
		rec.Days = res.Outcome.Stats.Days
		rec.Variables = res.Outcome.Stats.Variables
		rec.Constraints = res.Outcome.Stats.Constraints
		if res.Schedule != nil {
			obj := res.Schedule.PenaltyValue
			rec.Objective = &obj
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}

	if err := h.DB.Create(&rec).Error; err != nil {
		h.logger().Error("solve record insert failed", zap.String("request_id", rid), zap.Error(err))
	}
}

func apiKeyFrom(c *gin.Context) (*database.APIKey, bool) {
	v, ok := c.Get("apiKey")
	if !ok {
		return nil, false
	}
	apiKey, ok := v.(*database.APIKey)
	return apiKey, ok
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
