package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"machine-service-backend/internal/export"
	"machine-service-backend/internal/parse"
)

// dateRange reads the start and end query parameters.
func (h *Handler) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	rawStart, rawEnd := c.Query("start"), c.Query("end")
	if rawStart == "" || rawEnd == "" {
		badRequest(c, "start and end are required")
		return time.Time{}, time.Time{}, false
	}
	start, end, err := parse.DateRange(rawStart, rawEnd, h.loc)
	if err != nil {
		badRequest(c, err.Error())
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// GetCompleted handles GET /api/machines/completed.
func (h *Handler) GetCompleted(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	machines, err := h.engine.CompletedMachines(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// GetReport handles GET /api/reports/export and streams an xlsx workbook
// of the machines completed in the range.
func (h *Handler) GetReport(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	journeys, err := h.engine.CompletedJourneys(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.report.WriteXLSX(&buf, journeys); err != nil {
		writeError(c, err)
		return
	}

	name := export.FileName(start.In(h.loc), end.In(h.loc))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
