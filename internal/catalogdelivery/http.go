// Package catalogdelivery manages delivery layer of the game catalog.
package catalogdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/errorspkg"
	"github.com/go-petr/game-market/pkg/jsonresponse"
	"github.com/go-petr/game-market/pkg/moneypkg"
)

// Service provides service layer interface needed by catalog delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package catalogdelivery
type Service interface {
	Create(ctx context.Context, arg domain.CreateCatalogEntryParams) (domain.CatalogEntry, error)
	Get(ctx context.Context, id uuid.UUID) (domain.CatalogEntry, error)
	List(ctx context.Context, pageSize, pageID int32) ([]domain.CatalogEntry, error)
}

// Handler facilitates catalog delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns catalog handler.
func NewHandler(cs Service) *Handler {
	return &Handler{
		service: cs,
	}
}

type data struct {
	Entry domain.CatalogEntry `json:"entry"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

type createRequest struct {
	Title          string `json:"title" binding:"required"`
	UnitPrice      int64  `json:"unit_price" binding:"required,min=1"`
	Currency       string `json:"currency" binding:"required,currency"`
	AvailableStock int32  `json:"available_stock" binding:"min=0"`
}

// Create handles http request to list a new game in the catalog.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	price, err := moneypkg.New(req.UnitPrice, req.Currency)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	arg := domain.CreateCatalogEntryParams{
		Title:          req.Title,
		UnitPrice:      price,
		AvailableStock: req.AvailableStock,
	}

	entry, err := h.service.Create(ctx, arg)
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case domain.ErrTitleAlreadyExists:
			gctx.JSON(http.StatusConflict, jsonresponse.Error(err))

			return
		case
			moneypkg.ErrNegativeAmount,
			moneypkg.ErrInvalidCurrency,
			domain.ErrNegativeStock:
			gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{entry}})
}

type getRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Get handles http request to get a catalog entry.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	entry, err := h.service.Get(ctx, id)
	if err != nil {
		l.Info().Err(err).Send()

		if err == domain.ErrEntryNotFound {
			gctx.JSON(http.StatusNotFound, jsonresponse.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{entry}})
}

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
}

type dataEntries struct {
	Entries []domain.CatalogEntry `json:"entries"`
}

type responseEntries struct {
	Data dataEntries `json:"data,omitempty"`
}

// List handles http request to list catalog entries.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	entries, err := h.service.List(ctx, req.PageSize, req.PageID)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, responseEntries{Data: dataEntries{entries}})
}
