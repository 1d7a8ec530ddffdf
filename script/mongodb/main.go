package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/bip322_aa/config"
	"github.com/linlinbupt123-crypto/bip322_aa/db"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the service config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := db.NewMongoRepo(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("MongoDB connect error")
	}
	defer func() {
		if err := repo.Close(ctx); err != nil {
			log.WithError(err).Warn("MongoDB disconnect error")
		}
	}()

	if err := initIndexes(ctx, repo.DB); err != nil {
		log.WithError(err).Fatal("init indexes failed")
	}
	log.Info("all indexes initialized")
}

// createIndexSafe ignores indexes that already exist.
func createIndexSafe(ctx context.Context, col *mongo.Collection, index mongo.IndexModel) error {
	_, err := col.Indexes().CreateOne(ctx, index)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil
		}
		return err
	}
	return nil
}

func initIndexes(ctx context.Context, database *mongo.Database) error {
	accountCol := database.Collection(db.AccountCollection)
	accountIndexes := []mongo.IndexModel{
		{Keys: bson.M{"btc_address": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"ordinals_address": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "index", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	for _, idx := range accountIndexes {
		if err := createIndexSafe(ctx, accountCol, idx); err != nil {
			return fmt.Errorf("accounts index error: %w", err)
		}
	}

	walletCol := database.Collection(db.WalletCollection)
	walletIndexes := []mongo.IndexModel{
		{Keys: bson.M{"user_id": 1}, Options: options.Index().SetUnique(true)},
	}
	for _, idx := range walletIndexes {
		if err := createIndexSafe(ctx, walletCol, idx); err != nil {
			return fmt.Errorf("wallets index error: %w", err)
		}
	}
	return nil
}
