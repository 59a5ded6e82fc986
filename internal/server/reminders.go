package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	requestdomain "github.com/goalline/clubpay/internal/paymentrequest/domain"
	reminderdomain "github.com/goalline/clubpay/internal/reminder/domain"
)

type sendRemindersBody struct {
	// RecipientIDs narrows the fan-out to these users; absent or empty means
	// every member of the request.
	RecipientIDs []string `json:"recipient_ids"`
}

func (s *Server) SendReminders(c *gin.Context) {
	requestID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, requestdomain.ErrNotFound)
		return
	}

	var body sendRemindersBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	recipients := make([]snowflake.ID, 0, len(body.RecipientIDs))
	for _, raw := range body.RecipientIDs {
		userID, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			AbortWithError(c, newValidationError("recipient_ids", "invalid_recipient_ids", "invalid recipient id"))
			return
		}
		recipients = append(recipients, userID)
	}

	result, err := s.reminderSvc.SendReminders(c.Request.Context(), reminderdomain.SendRemindersRequest{
		PaymentRequestID: requestID,
		Recipients:       recipients,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
