package bip322

import (
	"bytes"
	"encoding/base64"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/domain"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

const messageMagic = "Bitcoin Signed Message:\n"

// compact signature header offsets: 27 uncompressed, +4 compressed,
// +8 segwit p2sh(p2wpkh), +12 segwit p2wpkh
const (
	headerCompressed = 4
	headerP2SHP2WPKH = 8
)

// strategy signs message for the address described by script.
type strategy interface {
	sign(key *btcec.PrivateKey, script *chain.Script, message string) (string, error)
}

func strategyFor(t chain.AddressType) (strategy, error) {
	switch t {
	case chain.P2WPKH, chain.P2TR:
		return witnessStrategy{}, nil
	case chain.P2SH:
		return messageStrategy{}, nil
	default:
		return nil, wrapErrors.New(wrapErrors.CodeUnsupportedAddressType, "select signer", t.String())
	}
}

// Signer produces BIP-322 signatures for addresses of one network.
type Signer struct {
	network chain.Network
}

func NewSigner(net chain.Network) *Signer {
	return &Signer{network: net}
}

func (s *Signer) Network() chain.Network {
	return s.network
}

// SignWithSeed derives the key owning address from seed and accounts and
// signs message with it. The key is wiped before returning.
func (s *Signer) SignWithSeed(seed []byte, accounts []entity.Account, address, message string) (string, error) {
	const op = "sign message"

	key, err := domain.DeriveSigningKey(seed, accounts, address, s.network)
	if err != nil {
		return "", err
	}
	defer key.Zero()

	script, err := chain.BuildScript(key.Type, key.Public, s.network)
	if err != nil {
		return "", err
	}
	if script.Address.EncodeAddress() != address {
		return "", wrapErrors.New(wrapErrors.CodeKeyDerivationFailed, op,
			"derived key does not control "+address)
	}

	log.WithFields(log.Fields{
		"address": address,
		"type":    key.Type.String(),
		"path":    key.Path.String(),
	}).Debug("signing message")

	return s.sign(key.Type, key.Private, script, message)
}

// SignWithKey signs message for the address of type t controlled by key.
func (s *Signer) SignWithKey(t chain.AddressType, key *btcec.PrivateKey, message string) (string, error) {
	if key == nil {
		return "", wrapErrors.New(wrapErrors.CodeKeyDerivationFailed, "sign message", "missing private key")
	}
	script, err := chain.BuildScript(t, key.PubKey(), s.network)
	if err != nil {
		return "", err
	}
	return s.sign(t, key, script, message)
}

func (s *Signer) sign(t chain.AddressType, key *btcec.PrivateKey, script *chain.Script, message string) (string, error) {
	st, err := strategyFor(t)
	if err != nil {
		return "", err
	}
	return st.sign(key, script, message)
}

// witnessStrategy is BIP-322 simple signing: the witness of the to_sign
// input spending to_spend.
type witnessStrategy struct{}

func (witnessStrategy) sign(key *btcec.PrivateKey, script *chain.Script, message string) (string, error) {
	const op = "bip322 sign"

	toSpend, err := BuildToSpend(script.SpendScript, message)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}
	toSign, err := BuildToSign(toSpend)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeKeyDerivationFailed, op, err)
	}

	packet, err := psbt.NewFromUnsignedTx(toSign)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeEmptyWitness, op, err)
	}
	prevOut := toSpend.TxOut[0]
	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeEmptyWitness, op, err)
	}
	if err := updater.AddInWitnessUtxo(prevOut, 0); err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeEmptyWitness, op, err)
	}

	fetcher := txscript.NewCannedPrevOutputFetcher(prevOut.PkScript, prevOut.Value)
	sigHashes := txscript.NewTxSigHashes(toSign, fetcher)

	switch script.Type {
	case chain.P2TR:
		sig, err := txscript.RawTxInTaprootSignature(
			toSign, sigHashes, 0, prevOut.Value, prevOut.PkScript,
			nil, txscript.SigHashDefault, key,
		)
		if err != nil {
			return "", wrapErrors.WrapWithCode(wrapErrors.CodeEmptyWitness, op, err)
		}
		packet.Inputs[0].TaprootInternalKey = schnorr.SerializePubKey(key.PubKey())
		packet.Inputs[0].TaprootKeySpendSig = sig
	default:
		if err := updater.AddInSighashType(txscript.SigHashAll, 0); err != nil {
			return "", wrapErrors.WrapWithCode(wrapErrors.CodeEmptyWitness, op, err)
		}
		sig, err := txscript.RawTxInWitnessSignature(
			toSign, sigHashes, 0, prevOut.Value, prevOut.PkScript,
			txscript.SigHashAll, key,
		)
		if err != nil {
			return "", wrapErrors.WrapWithCode(wrapErrors.CodeEmptyWitness, op, err)
		}
		outcome, err := updater.Sign(0, sig, key.PubKey().SerializeCompressed(), nil, nil)
		if err != nil || outcome != psbt.SignSuccesful {
			return "", wrapErrors.New(wrapErrors.CodeEmptyWitness, op, "psbt rejected the signature")
		}
	}

	if err := psbt.MaybeFinalizeAll(packet); err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeEmptyWitness, op, err)
	}
	signed, err := psbt.Extract(packet)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeEmptyWitness, op, err)
	}
	return EncodeWitness(signed.TxIn[0].Witness)
}

// messageStrategy is the legacy signed-message format with a
// p2sh(p2wpkh) header: a base64 65-byte recoverable ECDSA signature.
type messageStrategy struct{}

func (messageStrategy) sign(key *btcec.PrivateKey, _ *chain.Script, message string) (string, error) {
	sig := ecdsa.SignCompact(key, MagicHash(message), true)
	// SignCompact sets the compressed-key header; move it to p2sh(p2wpkh)
	sig[0] += headerP2SHP2WPKH - headerCompressed
	return base64.StdEncoding.EncodeToString(sig), nil
}

// MagicHash is double-SHA256 of the "Bitcoin Signed Message" envelope of
// message.
func MagicHash(message string) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarString(&buf, 0, messageMagic)
	_ = wire.WriteVarString(&buf, 0, message)
	return chainhash.DoubleHashB(buf.Bytes())
}
