package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"machine-service-backend/internal/model"
	"machine-service-backend/internal/notification"
	"machine-service-backend/internal/parse"
	"machine-service-backend/internal/station"
	"machine-service-backend/internal/workflow"
)

// GetWorkstations handles GET /api/workstations.
func (h *Handler) GetWorkstations(c *gin.Context) {
	c.JSON(http.StatusOK, station.All())
}

func stationParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("station"))
	if err != nil || !station.Valid(n) {
		badRequest(c, fmt.Sprintf("Invalid workstation %q", c.Param("station")))
		return 0, false
	}
	return n, true
}

// GetQueue handles GET /api/workstations/:station/queue.
func (h *Handler) GetQueue(c *gin.Context) {
	ws, ok := stationParam(c)
	if !ok {
		return
	}
	entries, err := h.engine.Queue(c.Request.Context(), ws)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type checkInRequest struct {
	BarcodeID         string `json:"barcodeId" binding:"required"`
	OperatorEPF       string `json:"operatorEpf" binding:"required"`
	SkipSequenceCheck bool   `json:"skipSequenceCheck"`
}

// CheckIn handles POST /api/workstations/:station/checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	ws, ok := stationParam(c)
	if !ok {
		return
	}
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	barcode, err := parse.Barcode(req.BarcodeID)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	operator, err := h.roster.Get(ctx, req.OperatorEPF)
	if err != nil {
		writeError(c, err)
		return
	}

	if !req.SkipSequenceCheck {
		journey, err := h.engine.Journey(ctx, barcode)
		if err != nil && !errors.Is(err, workflow.ErrNotFound) {
			writeError(c, err)
			return
		}
		if err := workflow.RequirePredecessor(barcode, journey, ws); err != nil {
			writeError(c, err)
			return
		}
	}

	result, err := h.engine.CheckIn(ctx, barcode, ws, operator.Ref())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type checkOutRequest struct {
	BarcodeID      string   `json:"barcodeId" binding:"required"`
	TasksCompleted []string `json:"tasksCompleted"`
}

// CheckOut handles POST /api/workstations/:station/checkout.
func (h *Handler) CheckOut(c *gin.Context) {
	ws, ok := stationParam(c)
	if !ok {
		return
	}
	var req checkOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	barcode, err := parse.Barcode(req.BarcodeID)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	known := station.TaskIDs(ws)
	tasks, err := checkTasks(req.TasksCompleted, known)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.engine.CheckOut(c.Request.Context(), barcode, ws, tasks, len(known)); err != nil {
		writeError(c, err)
		return
	}
	h.notifier.Dispatch(notification.Event{BarcodeID: barcode, Workstation: ws})

	c.JSON(http.StatusOK, gin.H{
		"barcodeId":      barcode,
		"workstation":    ws,
		"tasksCompleted": tasks,
		"totalTasks":     len(known),
		"complete":       ws == station.FinalStation,
	})
}

// checkTasks drops duplicates and rejects IDs that do not belong to the
// station's checklist.
func checkTasks(ticked, known []string) ([]string, error) {
	valid := make(map[string]bool, len(known))
	for _, id := range known {
		valid[id] = true
	}
	seen := make(map[string]bool, len(ticked))
	out := make([]string, 0, len(ticked))
	for _, id := range ticked {
		if !valid[id] {
			return nil, fmt.Errorf("unknown task %q", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// GetMachine handles GET /api/machines/:barcode.
func (h *Handler) GetMachine(c *gin.Context) {
	journey, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, journey)
}

func (h *Handler) lookup(c *gin.Context) (*model.MachineJourney, bool) {
	barcode, err := parse.Barcode(c.Param("barcode"))
	if err != nil {
		badRequest(c, err.Error())
		return nil, false
	}
	journey, err := h.engine.Journey(c.Request.Context(), barcode)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return journey, true
}

// DeleteMachine handles DELETE /api/machines/:barcode.
func (h *Handler) DeleteMachine(c *gin.Context) {
	barcode, err := parse.Barcode(c.Param("barcode"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.engine.DeleteMachine(c.Request.Context(), barcode); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
