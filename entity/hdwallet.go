package entity

import (
	"time"
)

type HDWallet struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	UserID            string    `bson:"user_id" json:"user_id"`
	Network           string    `bson:"network" json:"network"`
	MnemonicEncrypted []byte    `bson:"mnemonic_encrypted" json:"-"`
	EncryptedSeed     []byte    `bson:"encrypted_seed" json:"-"`
	XPub              string    `bson:"xpub" json:"xpub"`
	SaltHex           string    `bson:"salt_hex" json:"-"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
}
