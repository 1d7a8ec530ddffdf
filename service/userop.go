package service

import (
	"context"
	"encoding/base64"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/linlinbupt123-crypto/bip322_aa/bip322"
	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
	"github.com/linlinbupt123-crypto/bip322_aa/userop"
)

const (
	fillAttempts = 3
	fillBackoff  = 200 * time.Millisecond
)

// SignedUserOperation is a filled operation with its BIP-322 signature
// attached, ready for submission.
type SignedUserOperation struct {
	Operation *userop.UserOperation
	Packed    *userop.PackedUserOperation
	Hash      common.Hash
	Message   string
	Signature string
}

type UserOpService struct {
	Wallets *WalletService
	Codec   *userop.Codec
	Gas     userop.GasContext
	Signer  *bip322.Signer
	ChainID *big.Int
}

func NewUserOpService(wallets *WalletService, codec *userop.Codec, gas userop.GasContext, chainID *big.Int) *UserOpService {
	return &UserOpService{
		Wallets: wallets,
		Codec:   codec,
		Gas:     gas,
		Signer:  bip322.NewSigner(wallets.Network()),
		ChainID: chainID,
	}
}

// FillUserOperation resolves the absent fields of partial. Gas context
// failures are retried a few times before giving up.
func (s *UserOpService) FillUserOperation(ctx context.Context, partial userop.PartialUserOperation) (*userop.UserOperation, error) {
	var err error
	for attempt := 1; attempt <= fillAttempts; attempt++ {
		var op *userop.UserOperation
		op, err = s.Codec.Fill(ctx, partial, s.Gas)
		if err == nil {
			return op, nil
		}
		if !wrapErrors.IsRetryable(err) || attempt == fillAttempts {
			break
		}
		log.WithError(err).WithField("attempt", attempt).Warn("fill failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(fillBackoff * time.Duration(attempt)):
		}
	}
	return nil, err
}

// HashUserOperation fills partial and returns the operation with its hash and
// the message a Bitcoin key signs for it.
func (s *UserOpService) HashUserOperation(ctx context.Context, partial userop.PartialUserOperation) (*userop.UserOperation, common.Hash, string, error) {
	op, err := s.FillUserOperation(ctx, partial)
	if err != nil {
		return nil, common.Hash{}, "", err
	}
	hash, err := userop.Hash(op, s.Codec.EntryPoint, s.ChainID)
	if err != nil {
		return nil, common.Hash{}, "", err
	}
	return op, hash, userop.SignatureMessage(hash), nil
}

// SignUserOperation fills partial, signs its hash with the key of address
// from the wallet of userID and attaches the signature.
func (s *UserOpService) SignUserOperation(ctx context.Context, userID, passphrase, address string, partial userop.PartialUserOperation) (*SignedUserOperation, error) {
	op, hash, message, err := s.HashUserOperation(ctx, partial)
	if err != nil {
		return nil, err
	}

	var signature string
	err = s.Wallets.withSeed(ctx, userID, passphrase, func(seed []byte, accounts []entity.Account) error {
		var err error
		signature, err = s.Signer.SignWithSeed(seed, accounts, address, message)
		return err
	})
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidSignature, "attach signature", err)
	}
	op.Signature = raw
	packed, err := userop.Pack(op)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"sender":  op.Sender.Hex(),
		"nonce":   op.Nonce.String(),
		"hash":    hash.Hex(),
		"address": address,
	}).Info("user operation signed")

	return &SignedUserOperation{
		Operation: op,
		Packed:    packed,
		Hash:      hash,
		Message:   message,
		Signature: signature,
	}, nil
}

// SignMessage signs an arbitrary message with the key of address.
func (s *UserOpService) SignMessage(ctx context.Context, userID, passphrase, address, message string) (string, error) {
	var signature string
	err := s.Wallets.withSeed(ctx, userID, passphrase, func(seed []byte, accounts []entity.Account) error {
		var err error
		signature, err = s.Signer.SignWithSeed(seed, accounts, address, message)
		return err
	})
	return signature, err
}

func (s *UserOpService) VerifyMessage(address, message, signature string) error {
	return s.Signer.Verify(address, message, signature)
}

// EVMPublicKey returns the key material an on-chain account verifies
// signatures of address against.
func (s *UserOpService) EVMPublicKey(address, pubKeyHex string) (string, chain.AddressType, error) {
	return chain.EVMPublicKey(address, pubKeyHex, s.Signer.Network())
}
