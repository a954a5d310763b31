package handlers

import (
	"net/http"
	"strconv"

	"github.com/arnavshah/roster-solver-go/pkg/database"
	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/gin-gonic/gin"
)

const (
	usageHistoryDays = 30
	recentSolves     = 50
)

type usageTotals struct {
	Attempts   int64 `json:"attempts"`
	Requests   int64 `json:"requests"`
	ShiftUnits int64 `json:"shift_units"`
	Workers    int64 `json:"workers"`
}

func sumUsage(rows []database.APIUsage) usageTotals {
	var t usageTotals
	for _, u := range rows {
		t.Attempts += int64(u.AttemptCount)
		t.Requests += int64(u.RequestCount)
		t.ShiftUnits += int64(u.TotalShiftUnits)
		t.Workers += int64(u.TotalWorkers)
	}
	return t
}

// GetMyUsage reports the calling key's ledger for the last 30 days
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKey, ok := apiKeyFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "api key missing from context"})
		return
	}

	rows, err := h.usageHistory(apiKey.ID)
	if err != nil {
		h.respondDBError(c, "fetch usage", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": rows,
		"totals":        sumUsage(rows),
	})
}

// GetUsage reports the ledger of any key
func (h *Handler) GetUsage(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	var key database.APIKey
	if err := h.DB.First(&key, id).Error; err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "key not found"})
		return
	}
	rows, err := h.usageHistory(key.ID)
	if err != nil {
		h.respondDBError(c, "fetch usage", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": rows, "totals": sumUsage(rows)})
}

// GetSolves lists the newest solve records, optionally for one key
func (h *Handler) GetSolves(c *gin.Context) {
	q := h.DB.Order("id desc").Limit(recentSolves)
	if raw := c.Query("key_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid key_id"})
			return
		}
		q = q.Where("key_id = ?", id)
	}
	var solves []database.SolveRecord
	if err := q.Find(&solves).Error; err != nil {
		h.respondDBError(c, "fetch solve records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"solves": solves})
}

func (h *Handler) usageHistory(keyID uint) ([]database.APIUsage, error) {
	var rows []database.APIUsage
	err := h.DB.Where("key_id = ?", keyID).Order("date desc").Limit(usageHistoryDays).Find(&rows).Error
	return rows, err
}
