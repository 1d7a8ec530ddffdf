package bip322

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

const messageTag = "BIP0322-signed-message"

// MessageHash is the BIP-340 style tagged hash of message under the
// BIP0322-signed-message tag.
func MessageHash(message string) chainhash.Hash {
	return *chainhash.TaggedHash([]byte(messageTag), []byte(message))
}

// BuildToSpend builds the virtual to_spend transaction that commits to
// message and pays to spendScript.
func BuildToSpend(spendScript []byte, message string) (*wire.MsgTx, error) {
	hash := MessageHash(message)
	sigScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(hash[:]).
		Script()
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(0)
	in := wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex), sigScript, nil)
	in.Sequence = 0
	tx.AddTxIn(in)
	tx.AddTxOut(wire.NewTxOut(0, spendScript))
	return tx, nil
}

// BuildToSign builds the unsigned virtual to_sign transaction spending
// output 0 of toSpend.
func BuildToSign(toSpend *wire.MsgTx) (*wire.MsgTx, error) {
	opReturn, err := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).Script()
	if err != nil {
		return nil, err
	}

	prevHash := toSpend.TxHash()
	tx := wire.NewMsgTx(0)
	in := wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil, nil)
	in.Sequence = 0
	tx.AddTxIn(in)
	tx.AddTxOut(wire.NewTxOut(0, opReturn))
	return tx, nil
}

// EncodeWitness serializes a witness stack as varint(count) followed by
// varint(len)||item for every item, base64 encoded.
func EncodeWitness(witness wire.TxWitness) (string, error) {
	if len(witness) == 0 {
		return "", wrapErrors.New(wrapErrors.CodeEmptyWitness, "encode witness", "signing produced no witness")
	}
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, uint64(len(witness))); err != nil {
		return "", err
	}
	for _, item := range witness {
		if err := wire.WriteVarBytes(&buf, 0, item); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeWitness parses a signature produced by EncodeWitness back into the
// witness stack.
func DecodeWitness(signature string) (wire.TxWitness, error) {
	const op = "decode witness"

	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, op, err)
	}
	r := bytes.NewReader(raw)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, op, err)
	}
	if count == 0 {
		return nil, wrapErrors.New(wrapErrors.CodeEmptyWitness, op, "witness has no items")
	}
	if count > uint64(len(raw)) {
		return nil, wrapErrors.New(wrapErrors.CodeInvalidSignature, op, fmt.Sprintf("witness claims %d items", count))
	}

	witness := make(wire.TxWitness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(r, 0, uint32(len(raw)), "witness item")
		if err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, op, err)
		}
		witness = append(witness, item)
	}
	if r.Len() != 0 {
		return nil, wrapErrors.New(wrapErrors.CodeInvalidSignature, op, fmt.Sprintf("%d trailing bytes", r.Len()))
	}
	return witness, nil
}
