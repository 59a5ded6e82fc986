package server

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/goalline/clubpay/internal/fee"
	memberdomain "github.com/goalline/clubpay/internal/paymentmember/domain"
	requestdomain "github.com/goalline/clubpay/internal/paymentrequest/domain"
	"github.com/goalline/clubpay/pkg/db/pagination"
	"go.uber.org/zap"
)

type createPaymentRequestBody struct {
	TeamID           string   `json:"team_id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	AmountMinorUnits int64    `json:"amount_minor_units"`
	Currency         string   `json:"currency"`
	DueDate          string   `json:"due_date"`
	PaymentType      string   `json:"payment_type"`
	MemberUserIDs    []string `json:"member_user_ids"`
}

// CreatePaymentRequest creates the request and its member charge rows in one
// call. The per-member amount owed is the post-fee total, frozen here.
func (s *Server) CreatePaymentRequest(c *gin.Context) {
	var body createPaymentRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	teamID, err := snowflake.ParseString(strings.TrimSpace(body.TeamID))
	if err != nil {
		AbortWithError(c, requestdomain.ErrInvalidTeam)
		return
	}
	dueDate, err := time.Parse(time.RFC3339, strings.TrimSpace(body.DueDate))
	if err != nil {
		AbortWithError(c, requestdomain.ErrInvalidDueDate)
		return
	}
	userIDs := make([]snowflake.ID, 0, len(body.MemberUserIDs))
	for _, raw := range body.MemberUserIDs {
		userID, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			AbortWithError(c, memberdomain.ErrInvalidMembers)
			return
		}
		userIDs = append(userIDs, userID)
	}

	request, err := s.requestSvc.Create(c.Request.Context(), requestdomain.CreateRequest{
		TeamID:           teamID,
		Title:            body.Title,
		Description:      body.Description,
		AmountMinorUnits: body.AmountMinorUnits,
		Currency:         body.Currency,
		DueDate:          dueDate,
		PaymentType:      body.PaymentType,
		TotalMembers:     len(userIDs),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if len(userIDs) > 0 {
		memberAmount := int64(math.Round(fee.Compute(body.AmountMinorUnits, true).Total))
		err = s.memberSvc.CreateMembers(c.Request.Context(), memberdomain.CreateMembersRequest{
			PaymentRequestID: request.ID,
			UserIDs:          userIDs,
			AmountMinorUnits: memberAmount,
			Currency:         request.Currency,
		})
		if err != nil {
			// Leave no half-created request behind.
			if cancelErr := s.requestSvc.Cancel(c.Request.Context(), requestdomain.CancelRequest{
				ID:     request.ID,
				Reason: "member creation failed",
			}); cancelErr != nil {
				s.log.Warn("cancel half-created request failed",
					zap.String("payment_request_id", request.ID.String()),
					zap.Error(cancelErr),
				)
			}
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": request})
}

func (s *Server) ListPaymentRequests(c *gin.Context) {
	var query struct {
		pagination.Pagination
		TeamID           string `form:"team_id"`
		IncludeCancelled bool   `form:"include_cancelled"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	teamID, err := snowflake.ParseString(strings.TrimSpace(query.TeamID))
	if err != nil {
		AbortWithError(c, requestdomain.ErrInvalidTeam)
		return
	}

	resp, err := s.requestSvc.ListForTeam(c.Request.Context(), requestdomain.ListForTeamRequest{
		TeamID:           teamID,
		IncludeCancelled: query.IncludeCancelled,
		PageToken:        query.PageToken,
		PageSize:         query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePaymentRequestBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	PaymentType *string `json:"payment_type"`
}

func (s *Server) UpdatePaymentRequest(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, requestdomain.ErrNotFound)
		return
	}

	var body updatePaymentRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var dueDate *time.Time
	if body.DueDate != nil {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*body.DueDate))
		if err != nil {
			AbortWithError(c, requestdomain.ErrInvalidDueDate)
			return
		}
		dueDate = &parsed
	}

	updated, err := s.requestSvc.Update(c.Request.Context(), requestdomain.UpdateRequest{
		ID:          id,
		Title:       body.Title,
		Description: body.Description,
		DueDate:     dueDate,
		PaymentType: body.PaymentType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

type cancelPaymentRequestBody struct {
	Reason string `json:"reason"`
}

func (s *Server) CancelPaymentRequest(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, requestdomain.ErrNotFound)
		return
	}

	var body cancelPaymentRequestBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.requestSvc.Cancel(c.Request.Context(), requestdomain.CancelRequest{
		ID:     id,
		Reason: body.Reason,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
