package paymentdelivery

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

func newServer(t *testing.T) (*gin.Engine, *MockService, tokenpkg.Maker) {
	t.Helper()

	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := NewHandler(service)

	gin.SetMode(gin.ReleaseMode)
	server := gin.New()

	server.POST("/webhooks/payments", handler.Callback)

	authRoutes := server.Group("/").Use(middleware.AuthMiddleware(tokenMaker))
	authRoutes.POST("/payments/:id/refund", handler.Refund)

	return server, service, tokenMaker
}

func randomPayment(t *testing.T) domain.Payment {
	t.Helper()

	amount, err := moneypkg.New(randompkg.Int64Between(100, 10000), currencypkg.USD)
	require.NoError(t, err)

	return domain.Payment{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		Status:      domain.PaymentStatusSucceeded,
		ProviderRef: "ch_" + randompkg.String(24),
		Amount:      amount,
		Version:     2,
		CreatedAt:   time.Now().Truncate(time.Second).UTC(),
	}
}

func TestCallbackAPI(t *testing.T) {
	payment := randomPayment(t)
	signature := randompkg.String(64)

	payload, err := json.Marshal(gin.H{
		"reference": payment.ProviderRef,
		"outcome":   domain.PaymentOutcomeSucceeded,
		"amount":    payment.Amount.Amount,
		"currency":  payment.Amount.Currency,
	})
	require.NoError(t, err)

	testCases := []struct {
		name          string
		signature     string
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name:      "BadSignature",
			signature: "bad",
			buildStubs: func(service *MockService) {
				service.EXPECT().HandleCallback(gomock.Any(), payload, "bad").
					Times(1).
					Return(domain.ReconcileTxResult{}, domain.ErrInvalidSignature)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name:      "UnknownReference",
			signature: signature,
			buildStubs: func(service *MockService) {
				service.EXPECT().HandleCallback(gomock.Any(), payload, signature).
					Times(1).
					Return(domain.ReconcileTxResult{}, domain.ErrPaymentNotFound)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
			},
		},
		{
			name:      "AmountMismatch",
			signature: signature,
			buildStubs: func(service *MockService) {
				service.EXPECT().HandleCallback(gomock.Any(), payload, signature).
					Times(1).
					Return(domain.ReconcileTxResult{}, domain.ErrAmountMismatch)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:      "ConflictingOutcome",
			signature: signature,
			buildStubs: func(service *MockService) {
				service.EXPECT().HandleCallback(gomock.Any(), payload, signature).
					Times(1).
					Return(domain.ReconcileTxResult{}, domain.ErrConflictingOutcome)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusConflict, recorder.Code)
			},
		},
		{
			name:      "InternalError",
			signature: signature,
			buildStubs: func(service *MockService) {
				service.EXPECT().HandleCallback(gomock.Any(), payload, signature).
					Times(1).
					Return(domain.ReconcileTxResult{}, errorspkg.ErrInternal)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
			},
		},
		{
			name:      "OK",
			signature: signature,
			buildStubs: func(service *MockService) {
				result := domain.ReconcileTxResult{
					Payment: payment,
					Order: domain.Order{
						ID:     payment.OrderID,
						Status: domain.OrderStatusPaid,
					},
				}

				service.EXPECT().HandleCallback(gomock.Any(), payload, signature).
					Times(1).
					Return(result, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var got callbackResponse
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
				require.Equal(t, domain.OrderStatusPaid, got.Data.Result.Order.Status)
				require.Equal(t, domain.PaymentStatusSucceeded, got.Data.Result.Payment.Status)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			server, service, _ := newServer(t)
			tc.buildStubs(service)

			request, err := http.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(payload))
			require.NoError(t, err)
			request.Header.Set(SignatureHeaderKey, tc.signature)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)
			tc.checkResponse(recorder)
		})
	}
}

func TestRefundAPI(t *testing.T) {
	username := randompkg.Owner()
	payment := randomPayment(t)

	testCases := []struct {
		name          string
		uri           string
		setupAuth     func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker)
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name: "NoAuthorization",
			uri:  "/payments/" + payment.ID.String() + "/refund",
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Refund(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name: "InvalidID",
			uri:  "/payments/not-a-uuid/refund",
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Refund(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "NotSucceeded",
			uri:  "/payments/" + payment.ID.String() + "/refund",
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Refund(gomock.Any(), gomock.Eq(payment.ID)).
					Times(1).
					Return(domain.Payment{}, domain.ErrInvalidTransition)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusConflict, recorder.Code)
			},
		},
		{
			name: "ProviderDown",
			uri:  "/payments/" + payment.ID.String() + "/refund",
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Refund(gomock.Any(), gomock.Eq(payment.ID)).
					Times(1).
					Return(domain.Payment{}, domain.ErrPaymentGateway)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadGateway, recorder.Code)
			},
		},
		{
			name: "OK",
			uri:  "/payments/" + payment.ID.String() + "/refund",
			setupAuth: func(t *testing.T, request *http.Request, tokenMaker tokenpkg.Maker) {
				middleware.AddAuthorization(t, request, tokenMaker, middleware.AuthTypeBearer, username, time.Minute)
			},
			buildStubs: func(service *MockService) {
				refunded := payment
				refunded.Status = domain.PaymentStatusRefunded

				service.EXPECT().Refund(gomock.Any(), gomock.Eq(payment.ID)).
					Times(1).
					Return(refunded, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var got refundResponse
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&got))
				require.Equal(t, domain.PaymentStatusRefunded, got.Data.Payment.Status)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			server, service, tokenMaker := newServer(t)
			tc.buildStubs(service)

			request, err := http.NewRequest(http.MethodPost, tc.uri, nil)
			require.NoError(t, err)

			tc.setupAuth(t, request, tokenMaker)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, request)
			tc.checkResponse(recorder)
		})
	}
}
