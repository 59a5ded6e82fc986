package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goalline/clubpay/internal/fee"
)

// PreviewFee lets the client show total-payable before a request is created.
func (s *Server) PreviewFee(c *gin.Context) {
	rawAmount := strings.TrimSpace(c.Query("amount"))
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil || amount < 0 {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid amount"))
		return
	}

	minorUnits := true
	if raw := strings.TrimSpace(c.Query("minor_units")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, newValidationError("minor_units", "invalid_minor_units", "invalid minor_units"))
			return
		}
		minorUnits = parsed
	}

	c.JSON(http.StatusOK, gin.H{"data": fee.Compute(amount, minorUnits)})
}
