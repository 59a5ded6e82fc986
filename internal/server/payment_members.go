package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	memberdomain "github.com/goalline/clubpay/internal/paymentmember/domain"
)

type bindIntentBody struct {
	PaymentMethod string `json:"payment_method"`
}

// BindChargeIntent returns the client secret the app needs to collect payment.
func (s *Server) BindChargeIntent(c *gin.Context) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, memberdomain.ErrMemberNotFound)
		return
	}

	var body bindIntentBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.memberSvc.BindChargeIntent(c.Request.Context(), memberdomain.BindIntentRequest{
		MemberID:      memberID,
		PaymentMethod: strings.TrimSpace(body.PaymentMethod),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
