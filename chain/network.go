package chain

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/linlinbupt123-crypto/bip322_aa/utils"
)

// Network carries the address prefixes and coin type used for one Bitcoin
// network. Values are passed by copy; callers may build their own presets for
// regtest or signet.
type Network struct {
	Name       string
	Bech32     string
	PubKeyHash byte
	ScriptHash byte
	WIF        byte
	CoinType   uint32
	Base       *chaincfg.Params
}

var (
	Mainnet = Network{
		Name:       "mainnet",
		Bech32:     "bc",
		PubKeyHash: 0x00,
		ScriptHash: 0x05,
		WIF:        0x80,
		CoinType:   utils.CoinTypeBitcoin,
		Base:       &chaincfg.MainNetParams,
	}
	Testnet = Network{
		Name:       "testnet",
		Bech32:     "tb",
		PubKeyHash: 0x6f,
		ScriptHash: 0xc4,
		WIF:        0xef,
		CoinType:   utils.CoinTypeTestnet,
		Base:       &chaincfg.TestNet3Params,
	}
)

// Params returns a copy of the base chain params with the prefixes of n
// applied, so address encoding and decoding follow n.
func (n Network) Params() *chaincfg.Params {
	base := n.Base
	if base == nil {
		base = &chaincfg.MainNetParams
	}
	params := *base
	params.Bech32HRPSegwit = n.Bech32
	params.PubKeyHashAddrID = n.PubKeyHash
	params.ScriptHashAddrID = n.ScriptHash
	params.PrivateKeyID = n.WIF
	params.HDCoinType = n.CoinType
	return &params
}

func NetworkByName(name string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mainnet", "bitcoin", "main":
		return Mainnet, nil
	case "testnet", "testnet3", "test":
		return Testnet, nil
	default:
		return Network{}, fmt.Errorf("unknown bitcoin network %q", name)
	}
}
