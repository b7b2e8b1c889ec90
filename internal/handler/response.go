package handler

import (
	"errors"
	"net/http"
	"strconv"

	"referrals/internal/domain"

	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// fail maps a service error to an HTTP status. Operational errors never leak
// their cause to the caller.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateReferral), errors.Is(err, domain.ErrInvalidState):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parsePeriod reads the required quarter and year query parameters.
func parsePeriod(c *gin.Context) (int, int, bool) {
	quarter, err := strconv.Atoi(c.Query("quarter"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "quarter is required")
		return 0, 0, false
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "year is required")
		return 0, 0, false
	}
	return quarter, year, true
}

func parsePagination(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return page, limit
}
