package domain

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

// SigningKey is the key material resolved for one target address. Call Zero
// as soon as signing is done.
type SigningKey struct {
	Private *btcec.PrivateKey
	Public  *btcec.PublicKey
	Path    chain.DerivationPath
	Type    chain.AddressType
	Index   uint32
}

// Zero wipes the private scalar.
func (k *SigningKey) Zero() {
	if k == nil || k.Private == nil {
		return
	}
	k.Private.Zero()
	k.Private = nil
}

// DerivePath returns the derivation path of the index-th address of type t
// on net, e.g. m/86'/0'/0'/0/0 for the first mainnet Taproot address.
func DerivePath(t chain.AddressType, net chain.Network, index uint32) (chain.DerivationPath, error) {
	return chain.DerivationPathFor(t, net, 0, index)
}

// DeriveSigningKey finds the account owning target and derives its key from
// seed. P2SH and P2WPKH targets are matched against BtcAddress, P2TR targets
// against OrdinalsAddress; the first matching account wins.
func DeriveSigningKey(seed []byte, accounts []entity.Account, target string, net chain.Network) (*SigningKey, error) {
	const op = "derive signing key"

	if len(accounts) == 0 {
		return nil, wrapErrors.New(wrapErrors.CodeEmptyAccountList, op, "no accounts to match against")
	}
	t, err := chain.ClassifyAddress(target, net)
	if err != nil {
		return nil, err
	}
	account, ok := findAccount(accounts, t, target)
	if !ok {
		return nil, wrapErrors.New(wrapErrors.CodeAddressNotFound, op, target)
	}

	path, err := DerivePath(t, net, account.Index)
	if err != nil {
		return nil, err
	}
	node, err := deriveNode(seed, net, path)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}
	defer node.Zero()

	priv, err := node.ECPrivKey()
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}
	return &SigningKey{
		Private: priv,
		Public:  priv.PubKey(),
		Path:    path,
		Type:    t,
		Index:   account.Index,
	}, nil
}

func findAccount(accounts []entity.Account, t chain.AddressType, target string) (entity.Account, bool) {
	for _, account := range accounts {
		candidate := account.BtcAddress
		if t == chain.P2TR {
			candidate = account.OrdinalsAddress
		}
		if candidate != "" && candidate == target {
			return account, true
		}
	}
	return entity.Account{}, false
}

// deriveNode walks path from the master key of seed, wiping every
// intermediate node.
func deriveNode(seed []byte, net chain.Network, path chain.DerivationPath) (*hdkeychain.ExtendedKey, error) {
	key, err := hdkeychain.NewMaster(seed, net.Params())
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	for _, idx := range path {
		child, err := key.Derive(idx)
		key.Zero()
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key: %w", err)
		}
		key = child
	}
	return key, nil
}

// DeriveAccounts builds count accounts starting at index start: a
// P2SH-P2WPKH BtcAddress (purpose 49) and a P2TR OrdinalsAddress (purpose 86)
// per index.
func DeriveAccounts(seed []byte, net chain.Network, start, count uint32) ([]entity.Account, error) {
	const op = "derive accounts"

	master, err := hdkeychain.NewMaster(seed, net.Params())
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}
	xpub, err := master.Neuter()
	master.Zero()
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}

	accounts := make([]entity.Account, 0, count)
	for index := start; index < start+count; index++ {
		btcScript, btcPub, err := deriveScript(seed, net, chain.P2SH, index)
		if err != nil {
			return nil, err
		}
		ordScript, ordPub, err := deriveScript(seed, net, chain.P2TR, index)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, entity.Account{
			Index:             index,
			AccountType:       "software",
			AccountName:       fmt.Sprintf("Account %d", index+1),
			BtcAddress:        btcScript.Address.EncodeAddress(),
			BtcPublicKey:      hex.EncodeToString(btcPub.SerializeCompressed()),
			OrdinalsAddress:   ordScript.Address.EncodeAddress(),
			OrdinalsPublicKey: hex.EncodeToString(schnorr.SerializePubKey(ordPub)),
			MasterPubKey:      xpub.String(),
			CreatedAt:         time.Now().UTC(),
		})
	}
	return accounts, nil
}

// DeriveAddress derives the index-th address of type t from seed.
func DeriveAddress(seed []byte, net chain.Network, t chain.AddressType, index uint32) (string, error) {
	script, _, err := deriveScript(seed, net, t, index)
	if err != nil {
		return "", err
	}
	return script.Address.EncodeAddress(), nil
}

func deriveScript(seed []byte, net chain.Network, t chain.AddressType, index uint32) (*chain.Script, *btcec.PublicKey, error) {
	const op = "derive address"

	path, err := DerivePath(t, net, index)
	if err != nil {
		return nil, nil, err
	}
	node, err := deriveNode(seed, net, path)
	if err != nil {
		return nil, nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}
	defer node.Zero()

	pub, err := node.ECPubKey()
	if err != nil {
		return nil, nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}
	script, err := chain.BuildScript(t, pub, net)
	if err != nil {
		return nil, nil, err
	}
	return script, pub, nil
}

// GenerateMnemonic returns a new BIP-39 mnemonic of bits entropy (128-256).
func GenerateMnemonic(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	ClearBytes(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// MnemonicToSeed validates mnemonic and returns its BIP-39 seed. The caller
// must clear the seed after use.
func MnemonicToSeed(mnemonic, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidRequest, "mnemonic to seed", err)
	}
	return seed, nil
}
