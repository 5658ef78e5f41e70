// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/cartdelivery"
	"github.com/go-petr/game-market/internal/cartrepo"
	"github.com/go-petr/game-market/internal/cartservice"
	"github.com/go-petr/game-market/internal/catalogdelivery"
	"github.com/go-petr/game-market/internal/catalogrepo"
	"github.com/go-petr/game-market/internal/catalogservice"
	"github.com/go-petr/game-market/internal/checkoutservice"
	"github.com/go-petr/game-market/internal/middleware"
	"github.com/go-petr/game-market/internal/orderdelivery"
	"github.com/go-petr/game-market/internal/orderrepo"
	"github.com/go-petr/game-market/internal/paygateway"
	"github.com/go-petr/game-market/internal/paymentdelivery"
	"github.com/go-petr/game-market/internal/paymentrepo"
	"github.com/go-petr/game-market/internal/reconcilerepo"
	"github.com/go-petr/game-market/internal/reconcileservice"
	"github.com/go-petr/game-market/pkg/configpkg"
	"github.com/go-petr/game-market/pkg/currencypkg"
	"github.com/go-petr/game-market/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB       *sql.DB
	Engine   *gin.Engine
	Config   configpkg.Config
	Checkout *checkoutservice.Service
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	catalogRepo := catalogrepo.NewRepoPGS(conn)
	orderRepo := orderrepo.NewRepoPGS(conn)
	paymentRepo := paymentrepo.NewRepoPGS(conn)
	reconcileRepo := reconcilerepo.NewRepoPGS(conn)
	cartRepo := cartrepo.NewRepoPGS(conn)

	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	gateway := paygateway.NewClient(config.GatewayBaseURL, config.GatewayWebhookKey)

	catalogService := catalogservice.New(catalogRepo)
	checkoutService := checkoutservice.New(orderRepo, paymentRepo, catalogService, gateway)
	reconcileService := reconcileservice.New(paymentRepo, orderRepo, reconcileRepo, gateway, gateway)
	cartService := cartservice.New(cartRepo, catalogService, checkoutService)

	catalogHandler := catalogdelivery.NewHandler(catalogService)
	orderHandler := orderdelivery.NewHandler(checkoutService)
	paymentHandler := paymentdelivery.NewHandler(reconcileService)
	cartHandler := cartdelivery.NewHandler(cartService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.GET("/catalog", catalogHandler.List)
	engine.GET("/catalog/:id", catalogHandler.Get)

	engine.POST("/webhooks/payments", paymentHandler.Callback)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.POST("/catalog", catalogHandler.Create)

	authRoutes.POST("/checkout", orderHandler.Checkout)
	authRoutes.GET("/orders", orderHandler.List)
	authRoutes.GET("/orders/:id", orderHandler.Get)
	authRoutes.POST("/orders/:id/cancel", orderHandler.Cancel)

	authRoutes.POST("/payments/:id/refund", paymentHandler.Refund)

	authRoutes.GET("/cart", cartHandler.Get)
	authRoutes.POST("/cart/items", cartHandler.AddItem)
	authRoutes.PUT("/cart/items/:id", cartHandler.SetQuantity)
	authRoutes.DELETE("/cart/items/:id", cartHandler.RemoveItem)
	authRoutes.DELETE("/cart", cartHandler.Clear)
	authRoutes.POST("/cart/checkout", cartHandler.Checkout)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("currency", currencypkg.ValidCurrency)
		if err != nil {
			return nil, errors.New("cannot register currency validator")
		}
	}

	server := &Server{
		DB:       conn,
		Engine:   engine,
		Config:   config,
		Checkout: checkoutService,
	}

	return server, nil
}
