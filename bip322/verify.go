package bip322

import (
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

const compactSigSize = 65

// Verify checks that signature signs message for address. P2WPKH and P2TR
// signatures are run through the script engine against the virtual
// transactions; P2SH signatures are recovered as compact signatures.
func (s *Signer) Verify(address, message, signature string) error {
	decoded, t, err := chain.DecodeAddress(address, s.network)
	if err != nil {
		return err
	}
	switch t {
	case chain.P2WPKH, chain.P2TR:
		pkScript, err := txscript.PayToAddrScript(decoded)
		if err != nil {
			return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidAddress, "verify message", err)
		}
		return verifyWitness(pkScript, message, signature)
	case chain.P2SH:
		return s.verifyCompact(decoded.EncodeAddress(), message, signature)
	default:
		return wrapErrors.New(wrapErrors.CodeUnsupportedAddressType, "verify message", t.String())
	}
}

func verifyWitness(pkScript []byte, message, signature string) error {
	const op = "verify witness"

	witness, err := DecodeWitness(signature)
	if err != nil {
		return err
	}
	toSpend, err := BuildToSpend(pkScript, message)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, op, err)
	}
	toSign, err := BuildToSign(toSpend)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, op, err)
	}
	toSign.TxIn[0].Witness = witness

	fetcher := txscript.NewCannedPrevOutputFetcher(pkScript, 0)
	vm, err := txscript.NewEngine(
		pkScript,
		toSign,
		0,
		txscript.StandardVerifyFlags,
		nil,
		txscript.NewTxSigHashes(toSign, fetcher),
		0,
		fetcher,
	)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, op, err)
	}
	if err := vm.Execute(); err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, op, err)
	}
	return nil
}

func (s *Signer) verifyCompact(address, message, signature string) error {
	const op = "verify compact signature"

	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, op, err)
	}
	if len(raw) != compactSigSize {
		return wrapErrors.New(wrapErrors.CodeInvalidSignature, op,
			fmt.Sprintf("want %d bytes, have %d", compactSigSize, len(raw)))
	}

	// fold the segwit headers back into the compressed range RecoverCompact
	// understands
	switch header := raw[0]; {
	case header >= 27 && header <= 34:
	case header >= 35 && header <= 38:
		raw[0] -= headerP2SHP2WPKH - headerCompressed
	case header >= 39 && header <= 42:
		raw[0] -= headerP2SHP2WPKH
	default:
		return wrapErrors.New(wrapErrors.CodeInvalidSignature, op, fmt.Sprintf("bad header byte %d", header))
	}

	pub, _, err := ecdsa.RecoverCompact(raw, MagicHash(message))
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, op, err)
	}
	script, err := chain.BuildScript(chain.P2SH, pub, s.network)
	if err != nil {
		return err
	}
	if script.Address.EncodeAddress() != address {
		return wrapErrors.New(wrapErrors.CodeInvalidSignature, op, "signature does not match "+address)
	}
	return nil
}
