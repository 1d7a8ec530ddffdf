package main

import (
	"context"
	"errors"
	"flag"
	"math/big"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/linlinbupt123-crypto/bip322_aa/api"
	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/config"
	"github.com/linlinbupt123-crypto/bip322_aa/db"
	"github.com/linlinbupt123-crypto/bip322_aa/domain"
	"github.com/linlinbupt123-crypto/bip322_aa/repository"
	"github.com/linlinbupt123-crypto/bip322_aa/service"
	"github.com/linlinbupt123-crypto/bip322_aa/userop"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. MongoDB
	mongoRepo, err := db.NewMongoRepo(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("connect mongo")
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			log.WithError(err).Warn("disconnect mongo")
		}
	}()

	// 2. chain access
	ethChain, err := chain.DialETHChain(ctx, chain.ETHOptions{
		RPC:           cfg.Eth.RPC,
		APIKey:        cfg.Eth.APIKey,
		NonceFunction: cfg.Eth.NonceFunction,
		Timeout:       cfg.Eth.RPCTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("dial eth rpc")
	}
	chainID := big.NewInt(cfg.Eth.ChainID)
	if remote, err := ethChain.ChainID(ctx); err != nil {
		log.WithError(err).Warn("could not read chain id, using configured value")
	} else if remote.Cmp(chainID) != 0 {
		log.WithFields(log.Fields{"configured": chainID, "remote": remote}).Fatal("chain id mismatch")
	}

	// 3. services
	net := cfg.Network()
	hdDomain := domain.NewHDWallet(repository.NewWalletRepo(mongoRepo), net)
	walletService := service.NewWalletService(hdDomain, repository.NewAccountRepo(mongoRepo), cfg.Bitcoin.InitialAccounts)
	codec := userop.NewCodec(common.HexToAddress(cfg.Eth.EntryPoint), cfg.Gas.Defaults())
	userOpService := service.NewUserOpService(walletService, codec, ethChain, chainID)

	// 4. Gin
	r := gin.Default()
	api.Register(r, api.NewWalletHandler(walletService), api.NewUserOpHandler(userOpService))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.WithFields(log.Fields{
			"port":        cfg.Port,
			"network":     net.Name,
			"entry_point": cfg.Eth.EntryPoint,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server start failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
}
