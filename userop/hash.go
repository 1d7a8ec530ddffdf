package userop

import (
	"encoding/base64"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	addressT, _ = abi.NewType("address", "", nil)
	uint256T, _ = abi.NewType("uint256", "", nil)
	bytes32T, _ = abi.NewType("bytes32", "", nil)
	bytesT, _   = abi.NewType("bytes", "", nil)

	// sender, nonce, keccak(initCode), keccak(callData), accountGasLimits,
	// preVerificationGas, gasFees, keccak(paymasterAndData)
	signatureArgs = abi.Arguments{
		{Type: addressT}, {Type: uint256T}, {Type: bytes32T}, {Type: bytes32T},
		{Type: bytes32T}, {Type: uint256T}, {Type: bytes32T}, {Type: bytes32T},
	}
	// the same fields with raw bytes, plus the signature
	unsignedArgs = abi.Arguments{
		{Type: addressT}, {Type: uint256T}, {Type: bytesT}, {Type: bytesT},
		{Type: bytes32T}, {Type: uint256T}, {Type: bytes32T}, {Type: bytesT}, {Type: bytesT},
	}
	compactArgs = abi.Arguments{
		{Type: addressT}, {Type: uint256T}, {Type: bytes32T}, {Type: bytes32T},
	}
)

// EncodeForSignature is the ABI encoding of op that Hash digests.
func EncodeForSignature(op *UserOperation) ([]byte, error) {
	packed, err := Pack(op)
	if err != nil {
		return nil, err
	}
	return signatureArgs.Pack(
		packed.Sender,
		packed.Nonce,
		crypto.Keccak256Hash(packed.InitCode),
		crypto.Keccak256Hash(packed.CallData),
		packed.AccountGasLimits,
		packed.PreVerificationGas,
		packed.GasFees,
		crypto.Keccak256Hash(packed.PaymasterAndData),
	)
}

// EncodeUnsigned encodes op with its byte fields inlined. Its size is what
// the operation costs in call data.
func EncodeUnsigned(op *UserOperation) ([]byte, error) {
	packed, err := Pack(op)
	if err != nil {
		return nil, err
	}
	return unsignedArgs.Pack(
		packed.Sender,
		packed.Nonce,
		nonNil(packed.InitCode),
		nonNil(packed.CallData),
		packed.AccountGasLimits,
		packed.PreVerificationGas,
		packed.GasFees,
		nonNil(packed.PaymasterAndData),
		nonNil(packed.Signature),
	)
}

// Hash returns keccak256(EncodeForSignature(op)).
//
// entryPoint and chainID are accepted but not mixed into the digest, so a
// signature is not bound to one deployment.
// TODO: fold entryPoint and chainID in once the account contract verifies
// the domain-separated ERC-4337 hash.
func Hash(op *UserOperation, entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	_, _ = entryPoint, chainID
	encoded, err := EncodeForSignature(op)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// CompactHash digests only sender, nonce, initCode and callData.
func CompactHash(op *UserOperation) (common.Hash, error) {
	packed, err := Pack(op)
	if err != nil {
		return common.Hash{}, err
	}
	encoded, err := compactArgs.Pack(
		packed.Sender,
		packed.Nonce,
		crypto.Keccak256Hash(packed.InitCode),
		crypto.Keccak256Hash(packed.CallData),
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// IntrinsicGas is the call-data cost of data: 4 gas per zero byte and 16 per
// non-zero byte.
func IntrinsicGas(data []byte) uint64 {
	var gas uint64
	for _, b := range data {
		if b == 0 {
			gas += 4
		} else {
			gas += 16
		}
	}
	return gas
}

// SignatureMessage is the message the Bitcoin key signs for hash: the
// base64 text of the 32 hash bytes.
func SignatureMessage(hash common.Hash) string {
	return base64.StdEncoding.EncodeToString(hash.Bytes())
}
