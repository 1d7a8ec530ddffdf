package entity

import (
	"time"
)

// Account is one derived account of a wallet. BtcAddress is the
// P2SH-P2WPKH or P2WPKH address, OrdinalsAddress the Taproot one.
type Account struct {
	ID                 string    `bson:"_id,omitempty" json:"id,omitempty"`
	WalletID           string    `bson:"wallet_id" json:"wallet_id,omitempty"`
	Index              uint32    `bson:"index" json:"index"`
	AccountType        string    `bson:"account_type" json:"account_type,omitempty"`
	AccountName        string    `bson:"account_name" json:"account_name,omitempty"`
	DeviceAccountIndex uint32    `bson:"device_account_index" json:"device_account_index,omitempty"`
	BtcAddress         string    `bson:"btc_address" json:"btc_address"`
	BtcPublicKey       string    `bson:"btc_public_key" json:"btc_public_key,omitempty"`
	OrdinalsAddress    string    `bson:"ordinals_address" json:"ordinals_address"`
	OrdinalsPublicKey  string    `bson:"ordinals_public_key" json:"ordinals_public_key,omitempty"`
	MasterPubKey       string    `bson:"master_pub_key" json:"master_pub_key,omitempty"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
}
