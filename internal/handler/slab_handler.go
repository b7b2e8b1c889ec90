package handler

import (
	"net/http"

	"referrals/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type SlabHandler struct {
	slabSvc *service.SlabService
}

func NewSlabHandler(slabSvc *service.SlabService) *SlabHandler {
	return &SlabHandler{slabSvc: slabSvc}
}

type createSlabRequest struct {
	Name                 string           `json:"name" binding:"required"`
	Description          string           `json:"description"`
	MinAmount            *decimal.Decimal `json:"min_amount" binding:"required"`
	MaxAmount            *decimal.Decimal `json:"max_amount"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage" binding:"required"`
	Active               *bool            `json:"active"`
	ApplicableQuarter    *int             `json:"applicable_quarter" binding:"omitempty,min=1,max=4"`
	ApplicableYear       *int             `json:"applicable_year" binding:"omitempty,min=1"`
}

type updateSlabRequest struct {
	Name                 *string          `json:"name"`
	Description          *string          `json:"description"`
	MinAmount            *decimal.Decimal `json:"min_amount"`
	MaxAmount            *decimal.Decimal `json:"max_amount"`
	ClearMaxAmount       bool             `json:"clear_max_amount"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
	Active               *bool            `json:"active"`
	ApplicableQuarter    *int             `json:"applicable_quarter" binding:"omitempty,min=1,max=4"`
	ApplicableYear       *int             `json:"applicable_year" binding:"omitempty,min=1"`
}

// List handles GET /referrals/commission-slabs.
func (h *SlabHandler) List(c *gin.Context) {
	list, err := h.slabSvc.ListActive(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

// Get handles GET /referrals/commission-slabs/:id.
func (h *SlabHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	slab, err := h.slabSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", slab)
}

// Create handles POST /referrals/commission-slabs.
func (h *SlabHandler) Create(c *gin.Context) {
	var req createSlabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	in := service.SlabInput{
		Name:                 req.Name,
		Description:          req.Description,
		MinAmount:            *req.MinAmount,
		CommissionPercentage: *req.CommissionPercentage,
		Active:               req.Active == nil || *req.Active,
		ApplicableQuarter:    req.ApplicableQuarter,
		ApplicableYear:       req.ApplicableYear,
	}
	if req.MaxAmount != nil {
		in.MaxAmount = decimal.NewNullDecimal(*req.MaxAmount)
	}
	slab, err := h.slabSvc.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Commission slab created successfully", slab)
}

// Update handles PUT /referrals/commission-slabs/:id.
func (h *SlabHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateSlabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	slab, err := h.slabSvc.Update(c.Request.Context(), id, service.SlabPatch{
		Name:                 req.Name,
		Description:          req.Description,
		MinAmount:            req.MinAmount,
		MaxAmount:            req.MaxAmount,
		ClearMaxAmount:       req.ClearMaxAmount,
		CommissionPercentage: req.CommissionPercentage,
		Active:               req.Active,
		ApplicableQuarter:    req.ApplicableQuarter,
		ApplicableYear:       req.ApplicableYear,
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Commission slab updated successfully", slab)
}

// Deactivate handles DELETE /referrals/commission-slabs/:id. Slabs are soft deleted.
func (h *SlabHandler) Deactivate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.slabSvc.Deactivate(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Commission slab deactivated successfully", nil)
}
