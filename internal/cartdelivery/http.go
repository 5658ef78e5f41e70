// Package cartdelivery manages delivery layer of buyer carts.
package cartdelivery

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

// Service provides service layer interface needed by cart delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package cartdelivery
type Service interface {
	GetOrCreate(ctx context.Context, buyerID string) (domain.Cart, error)
	AddItem(ctx context.Context, buyerID string, catalogEntryID uuid.UUID, quantity int32) (domain.Cart, error)
	SetQuantity(ctx context.Context, buyerID string, catalogEntryID uuid.UUID, quantity int32) (domain.Cart, error)
	RemoveItem(ctx context.Context, buyerID string, catalogEntryID uuid.UUID) (domain.Cart, error)
	Clear(ctx context.Context, buyerID string) (domain.Cart, error)
	Checkout(ctx context.Context, buyerID string) (domain.CheckoutResult, error)
}

// Handler facilitates cart delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns cart handler.
func NewHandler(cs Service) *Handler {
	return &Handler{
		service: cs,
	}
}

type data struct {
	Cart domain.Cart `json:"cart"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

func buyerID(gctx *gin.Context) string {
	return gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload).Username
}

func (h *Handler) respondCart(gctx *gin.Context, cart domain.Cart, err error) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case
			domain.ErrCartNotFound,
			domain.ErrCartItemNotFound,
			domain.ErrEntryNotFound:
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))

			return
		case
			domain.ErrInvalidQuantity,
			moneypkg.ErrCurrencyMismatch:
			gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

			return
		case
			domain.ErrCartNotActive,
			domain.ErrConflictRetryExhausted:
			gctx.JSON(http.StatusConflict, jsonresponse.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{cart}})
}

// Get handles http request to get the buyer's active cart.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	cart, err := h.service.GetOrCreate(ctx, buyerID(gctx))
	h.respondCart(gctx, cart, err)
}

type addItemRequest struct {
	CatalogEntryID string `json:"catalog_entry_id" binding:"required,uuid"`
	Quantity       int32  `json:"quantity" binding:"required,min=1,max=100"`
}

// AddItem handles http request to put a catalog entry into the cart.
func (h *Handler) AddItem(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req addItemRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	entryID, err := uuid.Parse(req.CatalogEntryID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	cart, err := h.service.AddItem(ctx, buyerID(gctx), entryID, req.Quantity)
	h.respondCart(gctx, cart, err)
}

type itemURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type setQuantityRequest struct {
	Quantity int32 `json:"quantity" binding:"required,min=1,max=100"`
}

// SetQuantity handles http request to change the quantity of a cart position.
func (h *Handler) SetQuantity(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri itemURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	var req setQuantityRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	entryID, err := uuid.Parse(uri.ID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	cart, err := h.service.SetQuantity(ctx, buyerID(gctx), entryID, req.Quantity)
	h.respondCart(gctx, cart, err)
}

// RemoveItem handles http request to delete a cart position.
func (h *Handler) RemoveItem(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri itemURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	entryID, err := uuid.Parse(uri.ID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	cart, err := h.service.RemoveItem(ctx, buyerID(gctx), entryID)
	h.respondCart(gctx, cart, err)
}

// Clear handles http request to remove all items from the cart.
func (h *Handler) Clear(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	cart, err := h.service.Clear(ctx, buyerID(gctx))
	h.respondCart(gctx, cart, err)
}

type checkoutData struct {
	Checkout domain.CheckoutResult `json:"checkout"`
}

type checkoutResponse struct {
	Data checkoutData `json:"data,omitempty"`
}

// Checkout handles http request to turn the cart into an order.
func (h *Handler) Checkout(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	result, err := h.service.Checkout(ctx, buyerID(gctx))
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case domain.ErrCartNotFound:
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))

			return
		case
			domain.ErrEmptyCart,
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
