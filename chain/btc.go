package chain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/txscript"

	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

// Script is the output script material for one key and address type.
// RedeemScript is only set for P2SH.
type Script struct {
	Type         AddressType
	SpendScript  []byte
	RedeemScript []byte
	Address      btcutil.Address
}

// DecodeAddress decodes address for net and returns it with its type.
//
// A string that does not decode for net but is a checksum-valid base58 or
// bech32 string (another coin or another network) is reported as an
// unsupported address type rather than an invalid one.
func DecodeAddress(address string, net Network) (btcutil.Address, AddressType, error) {
	const op = "classify address"

	address = strings.TrimSpace(address)
	if address == "" {
		return nil, AddressTypeUnknown, wrapErrors.New(wrapErrors.CodeInvalidAddress, op, "empty address")
	}

	params := net.Params()
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		if isForeignAddress(address) {
			return nil, AddressTypeUnknown, wrapErrors.WrapWithCode(wrapErrors.CodeUnsupportedAddressType, op, err)
		}
		return nil, AddressTypeUnknown, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, op, err)
	}
	// segwit addresses of any registered network decode regardless of params
	if !decoded.IsForNet(params) {
		return nil, AddressTypeUnknown, wrapErrors.New(wrapErrors.CodeUnsupportedAddressType, op,
			fmt.Sprintf("%s is not a %s address", address, net.Name))
	}

	switch decoded.(type) {
	case *btcutil.AddressWitnessPubKeyHash:
		return decoded, P2WPKH, nil
	case *btcutil.AddressScriptHash:
		return decoded, P2SH, nil
	case *btcutil.AddressTaproot:
		return decoded, P2TR, nil
	default:
		return nil, AddressTypeUnknown, wrapErrors.New(wrapErrors.CodeUnsupportedAddressType, op, address)
	}
}

// ClassifyAddress returns the address type of address on net.
func ClassifyAddress(address string, net Network) (AddressType, error) {
	_, t, err := DecodeAddress(address, net)
	return t, err
}

func isForeignAddress(address string) bool {
	if _, _, err := base58.CheckDecode(address); err == nil {
		return true
	}
	if _, _, _, err := bech32.DecodeGeneric(address); err == nil {
		return true
	}
	return false
}

// BuildScript builds the spend script (and the redeem script for P2SH) that
// locks funds to pub on net.
func BuildScript(t AddressType, pub *btcec.PublicKey, net Network) (*Script, error) {
	const op = "build script"

	if pub == nil {
		return nil, wrapErrors.New(wrapErrors.CodeKeyDerivationFailed, op, "missing public key")
	}
	params := net.Params()

	var (
		addr   btcutil.Address
		redeem []byte
		err    error
	)
	switch t {
	case P2TR:
		outputKey := txscript.ComputeTaprootKeyNoScript(pub)
		addr, err = btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), params)
	case P2WPKH:
		addr, err = btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), params)
	case P2SH:
		var witness btcutil.Address
		witness, err = btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), params)
		if err != nil {
			break
		}
		redeem, err = txscript.PayToAddrScript(witness)
		if err != nil {
			break
		}
		addr, err = btcutil.NewAddressScriptHash(redeem, params)
	default:
		return nil, wrapErrors.New(wrapErrors.CodeUnsupportedAddressType, op, t.String())
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}

	spend, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}
	return &Script{
		Type:         t,
		SpendScript:  spend,
		RedeemScript: redeem,
		Address:      addr,
	}, nil
}

// EVMPublicKey returns the 0x-prefixed key material an on-chain Bitcoin
// account verifies signatures against: the compressed public key for P2SH
// and the output script for P2TR.
func EVMPublicKey(address, pubKeyHex string, net Network) (string, AddressType, error) {
	const op = "evm public key"

	decoded, t, err := DecodeAddress(address, net)
	if err != nil {
		return "", t, err
	}
	switch t {
	case P2SH:
		raw, err := hex.DecodeString(strings.TrimPrefix(pubKeyHex, "0x"))
		if err != nil {
			return "", t, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidRequest, op, err)
		}
		if _, err := btcec.ParsePubKey(raw); err != nil {
			return "", t, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidRequest, op, err)
		}
		return "0x" + hex.EncodeToString(raw), t, nil
	case P2TR:
		script, err := txscript.PayToAddrScript(decoded)
		if err != nil {
			return "", t, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, op, err)
		}
		return "0x" + hex.EncodeToString(script), t, nil
	default:
		return "", t, wrapErrors.New(wrapErrors.CodeUnsupportedAddressType, op, "only p2sh and p2tr addresses are accepted")
	}
}
