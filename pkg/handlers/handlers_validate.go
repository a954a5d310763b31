package handlers

import (
	"net/http"

	"github.com/arnavshah/roster-solver-go/pkg/models"
	"github.com/arnavshah/roster-solver-go/pkg/scheduler"
	"github.com/gin-gonic/gin"
)

// ValidateInput checks a request and builds its model without solving.
// Input errors answer 200 with valid=false so clients can show them inline
func (h *Handler) ValidateInput(c *gin.Context) {
	var req models.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}

	resp, err := h.Roster.Validate(&req)
	if err != nil {
		if scheduler.KindOf(err) == scheduler.KindValidation {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
