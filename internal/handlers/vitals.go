package handlers

import (
	"net/http"
	"strconv"

	"github.com/contentanonymity/backend/internal/util"
	"github.com/contentanonymity/backend/internal/vitals"
	"github.com/gin-gonic/gin"
)

// ReportVitals records a batch of browser Web Vitals samples
// POST /api/v1/vitals
func (h *Handlers) ReportVitals(c *gin.Context) {
	var req struct {
		Samples []vitals.Sample `json:"samples" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid_request", err.Error())
		return
	}
	if len(req.Samples) == 0 {
		util.RespondValidationError(c, "samples", "at least one sample is required")
		return
	}
	if len(req.Samples) > vitals.MaxBatch {
		util.RespondValidationError(c, "samples", "at most "+strconv.Itoa(vitals.MaxBatch)+" samples per report")
		return
	}

	c.JSON(http.StatusAccepted, vitals.Record(req.Samples))
}
