package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"machine-service-backend/internal/model"
	"machine-service-backend/internal/parse"
	"machine-service-backend/internal/remote"
)

const defaultPageSize = 100

// GetStorePage handles GET /api/store/machines, the paged raw listing that
// remote clients load journeys from.
func (h *Handler) GetStorePage(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		badRequest(c, "Invalid page")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize < 1 {
		badRequest(c, "Invalid pageSize")
		return
	}
	if pageSize > remote.MaxPageSize {
		pageSize = remote.MaxPageSize
	}

	journeys, err := h.store.LoadAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	keys := make([]string, 0, len(journeys))
	for k := range journeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resp := remote.PageResponse{Data: remote.PageData{
		Page:     page,
		PageSize: pageSize,
		Total:    len(keys),
		Items:    []*model.MachineJourney{},
	}}
	// Pages past the end are empty; checking before multiplying keeps a huge
	// page number from overflowing the offset.
	if page-1 < (len(keys)+pageSize-1)/pageSize {
		start := (page - 1) * pageSize
		end := min(start+pageSize, len(keys))
		for _, k := range keys[start:end] {
			resp.Data.Items = append(resp.Data.Items, journeys[k])
		}
	}
	c.JSON(http.StatusOK, resp)
}

// PutStoreMachines handles PUT /api/store/machines, upserting the given
// journeys. The map key names the journey.
func (h *Handler) PutStoreMachines(c *gin.Context) {
	var body map[string]*model.MachineJourney
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	for key, j := range body {
		if j == nil {
			badRequest(c, "machine "+key+" is null")
			return
		}
		if _, err := parse.Barcode(key); err != nil {
			badRequest(c, err.Error())
			return
		}
		j.BarcodeID = key
	}
	if err := h.store.SaveAll(c.Request.Context(), body); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteStoreMachine handles DELETE /api/store/machines/:barcode. Deleting
// an absent machine succeeds.
func (h *Handler) DeleteStoreMachine(c *gin.Context) {
	if err := h.store.DeleteOne(c.Request.Context(), c.Param("barcode")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
