// Package main provides the API to manage the game catalog, carts, orders and
// payments.
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/game-market/cmd/httpserver"
	"github.com/go-petr/game-market/internal/middleware"
	"github.com/go-petr/game-market/pkg/configpkg"
	"github.com/go-petr/game-market/pkg/dbpkg"

	_ "github.com/lib/pq"
)

const expiredOrdersBatch = 100

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.GetLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	server, err := httpserver.New(db, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	go failExpiredOrders(server, logger)

	logger.Info().Msg("GAME MARKET API SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}

// failExpiredOrders periodically fails orders that waited for payment longer
// than the configured checkout timeout and returns their stock.
func failExpiredOrders(server *httpserver.Server, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ctx := logger.WithContext(context.Background())
		cutoff := time.Now().UTC().Add(-server.Config.CheckoutTimeout)

		count, err := server.Checkout.FailExpired(ctx, cutoff, expiredOrdersBatch)
		if err != nil {
			logger.Error().Err(err).Msg("failing expired orders")
			continue
		}

		if count > 0 {
			logger.Info().Int("count", count).Msg("failed expired orders")
		}
	}
}
