package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addOperatorRequest struct {
	Name string `json:"name" binding:"required"`
	EPF  string `json:"epf" binding:"required"`
}

// GetOperators handles GET /api/operators.
func (h *Handler) GetOperators(c *gin.Context) {
	ops, err := h.roster.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ops)
}

// GetOperator handles GET /api/operators/:epf.
func (h *Handler) GetOperator(c *gin.Context) {
	op, err := h.roster.Get(c.Request.Context(), c.Param("epf"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, op)
}

// PostOperator handles POST /api/operators.
func (h *Handler) PostOperator(c *gin.Context) {
	var req addOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	op, err := h.roster.Add(c.Request.Context(), req.Name, req.EPF)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, op)
}

// DeleteOperator handles DELETE /api/operators/:epf.
func (h *Handler) DeleteOperator(c *gin.Context) {
	if err := h.roster.Delete(c.Request.Context(), c.Param("epf")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
