package handler

import (
	"net/http"
	"time"

	"referrals/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// InternalHandler serves the collaborator endpoints: the sign-up flow
// reports new referrals and investment processing reports increments.
type InternalHandler struct {
	referralSvc *service.ReferralService
	accrualSvc  *service.AccrualService
}

func NewInternalHandler(referralSvc *service.ReferralService, accrualSvc *service.AccrualService) *InternalHandler {
	return &InternalHandler{referralSvc: referralSvc, accrualSvc: accrualSvc}
}

type createReferralRequest struct {
	ReferrerUserID uint   `json:"referrer_user_id"`
	ReferralCode   string `json:"referral_code"`
	ReferredUserID uint   `json:"referred_user_id" binding:"required"`
	DisplayName    string `json:"display_name"`
	ReferralDate   string `json:"referral_date"` // YYYY-MM-DD, defaults to today
}

type investmentRequest struct {
	ReferredUserID uint             `json:"referred_user_id" binding:"required"`
	Amount         *decimal.Decimal `json:"amount" binding:"required"`
}

// CreateReferral handles POST /internal/referrals. Exactly one of
// referrer_user_id and referral_code identifies the referrer.
func (h *InternalHandler) CreateReferral(c *gin.Context) {
	var req createReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if (req.ReferrerUserID == 0) == (req.ReferralCode == "") {
		respondError(c, http.StatusBadRequest, "provide either referrer_user_id or referral_code")
		return
	}

	ctx := c.Request.Context()
	if req.ReferralCode != "" {
		ref, err := h.referralSvc.RegisterByCode(ctx, req.ReferralCode, req.ReferredUserID, req.DisplayName)
		if err != nil {
			fail(c, err)
			return
		}
		respond(c, http.StatusCreated, "Referral created", ref)
		return
	}

	var date time.Time
	if req.ReferralDate != "" {
		d, err := time.Parse("2006-01-02", req.ReferralDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "referral_date must be YYYY-MM-DD")
			return
		}
		date = d
	}
	ref, err := h.referralSvc.CreateReferral(ctx, req.ReferrerUserID, req.ReferredUserID, req.DisplayName, date)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Referral created", ref)
}

// RecordInvestment handles POST /internal/investments.
func (h *InternalHandler) RecordInvestment(c *gin.Context) {
	var req investmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.accrualSvc.Accrue(c.Request.Context(), req.ReferredUserID, *req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	if res == nil {
		respond(c, http.StatusOK, "User was not referred; nothing to accrue", nil)
		return
	}
	respond(c, http.StatusOK, "Investment accrued", res)
}
