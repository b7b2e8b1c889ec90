package handler

import (
	"net/http"

	"referrals/config"
	"referrals/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	referralSvc *service.ReferralService
	reportSvc   *service.ReportService
	cfg         *config.ReferralConfig
}

func NewAdminHandler(referralSvc *service.ReferralService, reportSvc *service.ReportService, cfg *config.ReferralConfig) *AdminHandler {
	return &AdminHandler{referralSvc: referralSvc, reportSvc: reportSvc, cfg: cfg}
}

// QuarterRanking handles GET /referrals/admin/quarter. Referrals come back
// highest commission first.
func (h *AdminHandler) QuarterRanking(c *gin.Context) {
	quarter, year, ok := parsePeriod(c)
	if !ok {
		return
	}
	list, err := h.reportSvc.AllReferralsForQuarter(c.Request.Context(), quarter, year)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

// MarkPaid handles POST /referrals/admin/:referralId/mark-paid.
func (h *AdminHandler) MarkPaid(c *gin.Context) {
	id, ok := parseIDParam(c, "referralId")
	if !ok {
		return
	}
	ref, err := h.referralSvc.MarkPaid(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Referral marked as paid", ref)
}

// GetReferral handles GET /referrals/admin/:referralId.
func (h *AdminHandler) GetReferral(c *gin.Context) {
	id, ok := parseIDParam(c, "referralId")
	if !ok {
		return
	}
	ref, err := h.referralSvc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", ref)
}

// Accruals handles GET /referrals/admin/:referralId/accruals.
func (h *AdminHandler) Accruals(c *gin.Context) {
	id, ok := parseIDParam(c, "referralId")
	if !ok {
		return
	}
	page, limit := parsePagination(c, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	out, err := h.referralSvc.ListAccruals(c.Request.Context(), id, page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", out)
}
