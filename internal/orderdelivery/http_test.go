package orderdelivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/internal/middleware"
	"github.com/go-petr/game-market/pkg/currencypkg"
	"github.com/go-petr/game-market/pkg/errorspkg"
	"github.com/go-petr/game-market/pkg/moneypkg"
	"github.com/go-petr/game-market/pkg/randompkg"
	"github.com/go-petr/game-market/pkg/tokenpkg"
)

func randomOrder(t *testing.T, buyerID string) domain.Order {
	t.Helper()

	price, err := moneypkg.New(randompkg.Int64Between(100, 10000), currencypkg.USD)
	require.NoError(t, err)

	lines := []domain.OrderLine{
		{CatalogEntryID: uuid.New(), Quantity: 2, UnitPriceAtPurchase: price},
	}

	order, err := domain.NewOrder(buyerID, lines)
	require.NoError(t, err)

	order.Version = 1

	return order
}

func newServer(t *testing.T) (*gin.Engine, *MockService, tokenpkg.Maker) {
	t.Helper()

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := NewHandler(service)

	gin.SetMode(gin.ReleaseMode)
	server := gin.New()

	authRoutes := server.Group("/").Use(middleware.AuthMiddleware(tokenMaker))
	authRoutes.POST("/checkout", handler.Checkout)
	authRoutes.GET("/orders", handler.List)
	authRoutes.GET("/orders/:id", handler.Get)
	authRoutes.POST("/orders/:id/cancel", handler.Cancel)

	return server, service, tokenMaker
}

func TestCheckoutAPI(t *testing.T) {
	username := randompkg.Owner()
	order := randomOrder(t, username)
	entryID := order.Lines[0].CatalogEntryID

	requested := []domain.RequestedLine{{CatalogEntryID: entryID, Quantity: 2}}

	requestBody := gin.H{
		"lines": []gin.H{
			{"catalog_entry_id": entryID.String(), "quantity": 2},
		},
	}

	testCases := []struct {
		name          string
		requestBody   gin.H
		setupAuth     func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker)
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name:        "NoAuthorization",
			requestBody: requestBody,
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Checkout(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name:        "EmptyLines",
			requestBody: gin.H{"lines": []gin.H{}},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Checkout(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "QuantityAboveCap",
			requestBody: gin.H{
				"lines": []gin.H{
					{"catalog_entry_id": entryID.String(), "quantity": 101},
				},
			},
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Checkout(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:        "InsufficientStock",
			requestBody: requestBody,
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Checkout(gomock.Any(), gomock.Eq(username), gomock.Eq(requested)).
					Times(1).
					Return(domain.CheckoutResult{}, domain.ErrInsufficientStock)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusConflict, recorder.Code)
			},
		},
		{
			name:        "GatewayDown",
			requestBody: requestBody,
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Checkout(gomock.Any(), gomock.Eq(username), gomock.Eq(requested)).
					Times(1).
					Return(domain.CheckoutResult{}, domain.ErrPaymentGateway)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadGateway, recorder.Code)
			},
		},
		{
			name:        "InternalError",
			requestBody: requestBody,
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Checkout(gomock.Any(), gomock.Eq(username), gomock.Eq(requested)).
					Times(1).
					Return(domain.CheckoutResult{}, errorspkg.ErrInternal)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
			},
		},
		{
			name:        "OK",
			requestBody: requestBody,
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				awaiting := order
				awaiting.Status = domain.OrderStatusAwaitingPayment

				payment, err := domain.NewPayment(awaiting, "ch_"+randompkg.String(24))
				require.NoError(t, err)

				service.EXPECT().
					Checkout(gomock.Any(), gomock.Eq(username), gomock.Eq(requested)).
					Times(1).
					Return(domain.CheckoutResult{Order: awaiting, Payment: payment}, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var got checkoutResponse
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
				require.Equal(t, domain.OrderStatusAwaitingPayment, got.Data.Checkout.Order.Status)
				require.Equal(t, domain.PaymentStatusInitiated, got.Data.Checkout.Payment.Status)
				require.Equal(t, got.Data.Checkout.Order.ID, got.Data.Checkout.Payment.OrderID)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			server, service, tokenMaker := newServer(t)
			tc.buildStubs(service)

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			request, err := http.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(body))
			require.NoError(t, err)

			tc.setupAuth(t, request, tokenMaker)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)
			tc.checkResponse(recorder)
		})
	}
}

func TestGetOrderAPI(t *testing.T) {
	username := randompkg.Owner()
	order := randomOrder(t, username)

	testCases := []struct {
		name          string
		uri           string
		setupAuth     func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker)
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name: "InvalidID",
			uri:  "/orders/not-a-uuid",
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "NotFound",
			uri:  "/orders/" + order.ID.String(),
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(username), gomock.Eq(order.ID)).
					Times(1).
					Return(domain.Order{}, domain.ErrOrderNotFound)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
			},
		},
		{
			name: "OwnerMismatch",
			uri:  "/orders/" + order.ID.String(),
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(username), gomock.Eq(order.ID)).
					Times(1).
					Return(domain.Order{}, domain.ErrOrderOwnerMismatch)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name: "OK",
			uri:  "/orders/" + order.ID.String(),
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(username), gomock.Eq(order.ID)).
					Times(1).
					Return(order, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var got orderResponse
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
				require.Equal(t, order.ID, got.Data.Order.ID)
				require.Equal(t, order.Total, got.Data.Order.Total)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			server, service, tokenMaker := newServer(t)
			tc.buildStubs(service)

			request, err := http.NewRequest(http.MethodGet, tc.uri, nil)
			require.NoError(t, err)

			tc.setupAuth(t, request, tokenMaker)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)
			tc.checkResponse(recorder)
		})
	}
}

func TestListOrdersAPI(t *testing.T) {
	username := randompkg.Owner()
	orders := []domain.Order{randomOrder(t, username), randomOrder(t, username)}

	server, service, tokenMaker := newServer(t)

	service.EXPECT().List(gomock.Any(), gomock.Eq(username), int32(5), int32(1)).
		Times(1).
		Return(orders, nil)

	request, err := http.NewRequest(http.MethodGet, "/orders?page_id=1&page_size=5", nil)
	require.NoError(t, err)

	middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var got ordersResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
	require.Len(t, got.Data.Orders, 2)
}

func TestCancelOrderAPI(t *testing.T) {
	username := randompkg.Owner()
	order := randomOrder(t, username)

	testCases := []struct {
		name          string
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name: "PaidOrderRejected",
			buildStubs: func(service *MockService) {
				service.EXPECT().Cancel(gomock.Any(), gomock.Eq(username), gomock.Eq(order.ID)).
					Times(1).
					Return(domain.Order{}, domain.ErrInvalidTransition)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusConflict, recorder.Code)
			},
		},
		{
			name: "OK",
			buildStubs: func(service *MockService) {
				cancelled := order
				cancelled.Status = domain.OrderStatusCancelled

				service.EXPECT().Cancel(gomock.Any(), gomock.Eq(username), gomock.Eq(order.ID)).
					Times(1).
					Return(cancelled, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var got orderResponse
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
				require.Equal(t, domain.OrderStatusCancelled, got.Data.Order.Status)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			server, service, tokenMaker := newServer(t)
			tc.buildStubs(service)

			url := "/orders/" + order.ID.String() + "/cancel"
			request, err := http.NewRequest(http.MethodPost, url, nil)
			require.NoError(t, err)

			middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)
			tc.checkResponse(recorder)
		})
	}
}
