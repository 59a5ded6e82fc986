package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/goalline/clubpay/internal/webhook/domain"
)

// HandleGatewayWebhook is the single place gateway deliveries enter the
// system. A replayed event acknowledges with 200 so the gateway stops
// retrying; transient errors map to 5xx and ride the gateway's retry policy.
func (s *Server) HandleGatewayWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhookSvc.Handle(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, webhookdomain.ErrEventAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
