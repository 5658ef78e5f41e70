// Package orderdelivery manages delivery layer of orders and checkout.
package orderdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/internal/middleware"
	"github.com/go-petr/game-market/pkg/errorspkg"
	"github.com/go-petr/game-market/pkg/jsonresponse"
	"github.com/go-petr/game-market/pkg/moneypkg"
	"github.com/go-petr/game-market/pkg/tokenpkg"
)

// Service provides service layer interface needed by order delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package orderdelivery
type Service interface {
	Checkout(ctx context.Context, buyerID string, requested []domain.RequestedLine) (domain.CheckoutResult, error)
	Get(ctx context.Context, buyerID string, orderID uuid.UUID) (domain.Order, error)
	List(ctx context.Context, buyerID string, pageSize, pageID int32) ([]domain.Order, error)
	Cancel(ctx context.Context, buyerID string, orderID uuid.UUID) (domain.Order, error)
}

// Handler facilitates order delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns order handler.
func NewHandler(os Service) *Handler {
	return &Handler{
		service: os,
	}
}

type checkoutLine struct {
	CatalogEntryID string `json:"catalog_entry_id" binding:"required,uuid"`
	Quantity       int32  `json:"quantity" binding:"required,min=1,max=100"`
}

type checkoutRequest struct {
	Lines []checkoutLine `json:"lines" binding:"required,min=1,dive"`
}

type checkoutData struct {
	Checkout domain.CheckoutResult `json:"checkout"`
}

type checkoutResponse struct {
	Data checkoutData `json:"data,omitempty"`
}

// Checkout handles http request to create an order and initiate its payment.
func (h *Handler) Checkout(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req checkoutRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	requested := make([]domain.RequestedLine, 0, len(req.Lines))

	for _, line := range req.Lines {
		id, err := uuid.Parse(line.CatalogEntryID)
		if err != nil {
			l.Info().Err(err).Send()
			gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

			return
		}

		requested = append(requested, domain.RequestedLine{
			CatalogEntryID: id,
			Quantity:       line.Quantity,
		})
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	result, err := h.service.Checkout(ctx, authPayload.Username, requested)
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case domain.ErrEntryNotFound:
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))

			return
		case
			domain.ErrEmptyOrder,
			domain.ErrInvalidQuantity,
			moneypkg.ErrCurrencyMismatch:
			gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

			return
		case
			domain.ErrInsufficientStock,
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

	gctx.JSON(http.StatusOK, checkoutResponse{Data: checkoutData{result}})
}

type orderURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type orderData struct {
	Order domain.Order `json:"order"`
}

type orderResponse struct {
	Data orderData `json:"data,omitempty"`
}

// Get handles http request to get the buyer's order.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req orderURI
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	orderID, err := uuid.Parse(req.ID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	order, err := h.service.Get(ctx, authPayload.Username, orderID)
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case domain.ErrOrderNotFound:
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))

			return
		case domain.ErrOrderOwnerMismatch:
			gctx.JSON(http.StatusUnauthorized, jsonresponse.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, orderResponse{Data: orderData{order}})
}

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
}

type ordersData struct {
	Orders []domain.Order `json:"orders"`
}

type ordersResponse struct {
	Data ordersData `json:"data,omitempty"`
}

// List handles http request to list the buyer's orders.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	orders, err := h.service.List(ctx, authPayload.Username, req.PageSize, req.PageID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, ordersResponse{Data: ordersData{orders}})
}

// Cancel handles http request to cancel the buyer's order.
func (h *Handler) Cancel(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req orderURI
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	orderID, err := uuid.Parse(req.ID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	order, err := h.service.Cancel(ctx, authPayload.Username, orderID)
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case domain.ErrOrderNotFound:
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))

			return
		case domain.ErrOrderOwnerMismatch:
			gctx.JSON(http.StatusUnauthorized, jsonresponse.Error(err))

			return
		case
			domain.ErrInvalidTransition,
			domain.ErrConflictRetryExhausted:
			gctx.JSON(http.StatusConflict, jsonresponse.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, orderResponse{Data: orderData{order}})
}
