package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/bip322_aa/db"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
)

type AccountRepo struct {
	col *mongo.Collection
}

func NewAccountRepo(m *db.MongoRepo) *AccountRepo {
	return &AccountRepo{col: m.AccountColl}
}

func (r *AccountRepo) CreateMany(ctx context.Context, accounts []entity.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(accounts))
	for i := range accounts {
		docs = append(docs, accounts[i])
	}
	res, err := r.col.InsertMany(ctx, docs)
	if err != nil {
		return err
	}
	for i, id := range res.InsertedIDs {
		accounts[i].ID = insertedID(id)
	}
	return nil
}

// ListByWallet returns the accounts of walletID ordered by index.
func (r *AccountRepo) ListByWallet(ctx context.Context, walletID string) ([]entity.Account, error) {
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"wallet_id": walletID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []entity.Account
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMaxIndex returns the highest account index of walletID, or -1 when the
// wallet has no accounts yet.
func (r *AccountRepo) GetMaxIndex(ctx context.Context, walletID string) (int64, error) {
	opts := options.FindOne().SetSort(bson.M{"index": -1})

	var out entity.Account
	err := r.col.FindOne(ctx, bson.M{"wallet_id": walletID}, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return int64(out.Index), nil
}
