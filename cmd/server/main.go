// Command server boots the Splits Coordination Service: it loads
// configuration, connects the database, dials the chain gateway,
// wires the Coordination Engine, and starts the HTTP listener.
// Grounded on internal/app/service_container.go's staged
// init-repositories/init-services sequence, trimmed to this
// service's much smaller dependency graph.
package main

import (
	"context"
	"os"
	"strconv"

	"github.com/AccountantBot/AccountantBot-Backend/internal/chain"
	"github.com/AccountantBot/AccountantBot-Backend/internal/config"
	"github.com/AccountantBot/AccountantBot-Backend/internal/db"
	"github.com/AccountantBot/AccountantBot-Backend/internal/engine"
	"github.com/AccountantBot/AccountantBot-Backend/internal/handlers"
	"github.com/AccountantBot/AccountantBot-Backend/internal/repository"
	"github.com/AccountantBot/AccountantBot-Backend/internal/router"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logrus.WithError(err).Fatal("load configuration")
	}

	database, err := db.Connect(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("connect database")
	}
	if err := db.AutoMigrate(database); err != nil {
		logrus.WithError(err).Fatal("migrate database")
	}

	ctx := context.Background()
	gateway, err := chain.NewGateway(ctx, cfg.RPCURLScroll, cfg.SplitCoordinatorAddress, cfg.ChainID, cfg.ExecutorPrivateKey)
	if err != nil {
		logrus.WithError(err).Fatal("initialize chain gateway")
	}
	if !gateway.WriteCapable() {
		logrus.Warn("no executor private key configured; on-chain writes will fail with misconfigured errors")
	}

	repo := repository.NewSplitRepository(database)
	eng := engine.New(repo, gateway, cfg.ChainID, cfg.SplitCoordinatorAddress, cfg.EIP712.Name, cfg.EIP712.Version)
	splitHandler := handlers.NewSplitHandler(eng)

	r := router.New(cfg.CORS, splitHandler)

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	logrus.WithField("addr", addr).Info("splits coordination service listening")
	if err := r.Run(addr); err != nil {
		logrus.WithError(err).Fatal("http server exited")
	}
}
