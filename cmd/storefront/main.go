package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/app"
)

//	@title			Ratnzer Storefront API
//	@version		1.0
//	@description	Digital goods storefront: wallet, cart, orders and PayTabs payments.

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

// @host		localhost:8080
// @BasePath	/
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	storefront := app.New()
	if err := storefront.Start(ctx); err != nil {
		log.Error().Err(err).Str("service", "storefront").Msg("Can't start application")
		zap.L().Fatal("Can't start application: ", zap.Error(err))
	}

	if err := storefront.Wait(ctx, cancel); err != nil {
		zap.L().Fatal("All systems closed with errors. LastError:", zap.Error(err))
	}

	zap.L().Info("All systems closed without errors")
}
