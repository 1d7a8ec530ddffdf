package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	WalletCollection  = "wallets"
	AccountCollection = "accounts"
)

type MongoRepo struct {
	Client      *mongo.Client
	DB          *mongo.Database
	WalletColl  *mongo.Collection
	AccountColl *mongo.Collection
}

func NewMongoRepo(ctx context.Context, uri, dbName string) (*MongoRepo, error) {
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	// ping
	ctx2, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx2, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(dbName)
	return &MongoRepo{
		Client:      client,
		DB:          db,
		WalletColl:  db.Collection(WalletCollection),
		AccountColl: db.Collection(AccountCollection),
	}, nil
}

func (m *MongoRepo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
