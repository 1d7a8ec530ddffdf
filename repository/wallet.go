/*
user_id → unique index
XPub / EncryptedSeed / MnemonicEncrypted / SaltHex / CreatedAt
*/
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linlinbupt123-crypto/bip322_aa/db"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
)

type Wallet struct {
	col *mongo.Collection
}

func NewWalletRepo(m *db.MongoRepo) *Wallet {
	return &Wallet{col: m.WalletColl}
}

// Create wallet
func (r *Wallet) Create(ctx context.Context, w *entity.HDWallet) (string, error) {
	res, err := r.col.InsertOne(ctx, w)
	if err != nil {
		return "", err
	}
	return insertedID(res.InsertedID), nil
}

// GetByUserID returns nil without error when the user has no wallet.
func (r *Wallet) GetByUserID(ctx context.Context, userID string) (*entity.HDWallet, error) {
	var w entity.HDWallet
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// DeleteByUserID removes the wallet of userID. A missing wallet is not an
// error.
func (r *Wallet) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}

func insertedID(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return ""
	}
}
