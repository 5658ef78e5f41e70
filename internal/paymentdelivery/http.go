// Package paymentdelivery manages delivery layer of payment reconciliation:
// the gateway webhook and refunds.
package paymentdelivery

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/errorspkg"
	"github.com/go-petr/game-market/pkg/jsonresponse"
)

// SignatureHeaderKey carries the gateway's HMAC signature of the callback body.
const SignatureHeaderKey = "X-Gateway-Signature"

// Service provides service layer interface needed by payment delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package paymentdelivery
type Service interface {
	HandleCallback(ctx context.Context, payload []byte, signature string) (domain.ReconcileTxResult, error)
	Refund(ctx context.Context, paymentID uuid.UUID) (domain.Payment, error)
}

// Handler facilitates payment delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns payment handler.
func NewHandler(rs Service) *Handler {
	return &Handler{
		service: rs,
	}
}

type callbackData struct {
	Result domain.ReconcileTxResult `json:"result"`
}

type callbackResponse struct {
	Data callbackData `json:"data,omitempty"`
}

// Callback handles the gateway webhook reporting a charge outcome.
//
// The signature covers the raw body, so the body is passed through without
// rebinding it into a struct first.
func (h *Handler) Callback(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	payload, err := io.ReadAll(gctx.Request.Body)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	signature := gctx.GetHeader(SignatureHeaderKey)

	result, err := h.service.HandleCallback(ctx, payload, signature)
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case domain.ErrInvalidSignature:
			gctx.JSON(http.StatusUnauthorized, jsonresponse.Error(err))

			return
		case domain.ErrPaymentNotFound:
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))

			return
		case domain.ErrAmountMismatch:
			gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

			return
		case
			domain.ErrConflictingOutcome,
			domain.ErrConflictRetryExhausted:
			gctx.JSON(http.StatusConflict, jsonresponse.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, callbackResponse{Data: callbackData{result}})
}

type refundURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type refundData struct {
	Payment domain.Payment `json:"payment"`
}

type refundResponse struct {
	Data refundData `json:"data,omitempty"`
}

// Refund handles http request to refund a succeeded payment.
func (h *Handler) Refund(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req refundURI
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	paymentID, err := uuid.Parse(req.ID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	payment, err := h.service.Refund(ctx, paymentID)
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case domain.ErrPaymentNotFound:
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))

			return
		case
			domain.ErrInvalidTransition,
			domain.ErrConflictRetryExhausted:
			gctx.JSON(http.StatusConflict, jsonresponse.Error(err))

			return
		case domain.ErrPaymentGateway:
			gctx.JSON(http.StatusBadGateway, jsonresponse.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, refundResponse{Data: refundData{payment}})
}
