package userop

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

const (
	uint128Size = 16
	// paymaster address, verification gas limit, post-op gas limit
	paymasterPrefixSize = common.AddressLength + 2*uint128Size
)

// Pack converts op into its on-chain layout. Gas values must fit in 128 bits
// and the nonce and pre-verification gas in 256 bits.
func Pack(op *UserOperation) (*PackedUserOperation, error) {
	const opName = "pack user operation"

	if op == nil {
		return nil, wrapErrors.New(wrapErrors.CodeInvalidUserOperation, opName, "nil operation")
	}
	nonce, err := checkUint256("nonce", op.Nonce)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidUserOperation, opName, err)
	}
	preVerificationGas, err := checkUint256("preVerificationGas", op.PreVerificationGas)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidUserOperation, opName, err)
	}
	accountGasLimits, err := PackUint128Pair(op.VerificationGasLimit, op.CallGasLimit)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidUserOperation, opName, fmt.Errorf("account gas limits: %w", err))
	}
	gasFees, err := PackUint128Pair(op.MaxPriorityFeePerGas, op.MaxFeePerGas)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidUserOperation, opName, fmt.Errorf("gas fees: %w", err))
	}
	paymasterAndData, err := PackPaymasterData(op.Paymaster, op.PaymasterVerificationGasLimit, op.PaymasterPostOpGasLimit, op.PaymasterData)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidUserOperation, opName, fmt.Errorf("paymaster: %w", err))
	}

	return &PackedUserOperation{
		Sender:             op.Sender,
		Nonce:              nonce,
		InitCode:           copyBytes(op.InitCode),
		CallData:           copyBytes(op.CallData),
		AccountGasLimits:   accountGasLimits,
		PreVerificationGas: preVerificationGas,
		GasFees:            gasFees,
		PaymasterAndData:   paymasterAndData,
		Signature:          copyBytes(op.Signature),
	}, nil
}

// Unpack reverses Pack. Paymaster limits and data are zero when the packed
// operation carries no paymaster.
func Unpack(packed *PackedUserOperation) (*UserOperation, error) {
	const opName = "unpack user operation"

	if packed == nil {
		return nil, wrapErrors.New(wrapErrors.CodeInvalidUserOperation, opName, "nil operation")
	}
	verificationGasLimit, callGasLimit := UnpackUint128Pair(packed.AccountGasLimits)
	maxPriorityFeePerGas, maxFeePerGas := UnpackUint128Pair(packed.GasFees)
	paymaster, pmVerification, pmPostOp, pmData, err := UnpackPaymasterData(packed.PaymasterAndData)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidUserOperation, opName, err)
	}

	return &UserOperation{
		Sender:                        packed.Sender,
		Nonce:                         new(big.Int).Set(orZero(packed.Nonce)),
		InitCode:                      copyBytes(packed.InitCode),
		CallData:                      copyBytes(packed.CallData),
		CallGasLimit:                  callGasLimit,
		VerificationGasLimit:          verificationGasLimit,
		PreVerificationGas:            new(big.Int).Set(orZero(packed.PreVerificationGas)),
		MaxFeePerGas:                  maxFeePerGas,
		MaxPriorityFeePerGas:          maxPriorityFeePerGas,
		Paymaster:                     paymaster,
		PaymasterVerificationGasLimit: pmVerification,
		PaymasterPostOpGasLimit:       pmPostOp,
		PaymasterData:                 pmData,
		Signature:                     copyBytes(packed.Signature),
	}, nil
}

// PackUint128Pair packs high||low as two 16-byte big-endian halves.
func PackUint128Pair(high, low *big.Int) ([32]byte, error) {
	var out [32]byte
	if err := putUint128(out[:uint128Size], high); err != nil {
		return out, err
	}
	if err := putUint128(out[uint128Size:], low); err != nil {
		return out, err
	}
	return out, nil
}

func UnpackUint128Pair(packed [32]byte) (high, low *big.Int) {
	high = new(big.Int).SetBytes(packed[:uint128Size])
	low = new(big.Int).SetBytes(packed[uint128Size:])
	return high, low
}

// PackPaymasterData builds paymaster||verificationGasLimit||postOpGasLimit||data,
// or an empty blob when paymaster is the zero address.
func PackPaymasterData(paymaster common.Address, verificationGasLimit, postOpGasLimit *big.Int, data []byte) ([]byte, error) {
	if paymaster == (common.Address{}) {
		return []byte{}, nil
	}
	out := make([]byte, paymasterPrefixSize, paymasterPrefixSize+len(data))
	copy(out, paymaster.Bytes())
	if err := putUint128(out[common.AddressLength:common.AddressLength+uint128Size], verificationGasLimit); err != nil {
		return nil, err
	}
	if err := putUint128(out[common.AddressLength+uint128Size:paymasterPrefixSize], postOpGasLimit); err != nil {
		return nil, err
	}
	return append(out, data...), nil
}

func UnpackPaymasterData(blob []byte) (common.Address, *big.Int, *big.Int, []byte, error) {
	if len(blob) == 0 {
		return common.Address{}, new(big.Int), new(big.Int), []byte{}, nil
	}
	if len(blob) < paymasterPrefixSize {
		return common.Address{}, nil, nil, nil, fmt.Errorf("paymasterAndData too short: have %d bytes, want at least %d", len(blob), paymasterPrefixSize)
	}
	paymaster := common.BytesToAddress(blob[:common.AddressLength])
	verification := new(big.Int).SetBytes(blob[common.AddressLength : common.AddressLength+uint128Size])
	postOp := new(big.Int).SetBytes(blob[common.AddressLength+uint128Size : paymasterPrefixSize])
	return paymaster, verification, postOp, copyBytes(blob[paymasterPrefixSize:]), nil
}

func putUint128(dst []byte, v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 {
		return fmt.Errorf("negative value %s", v)
	}
	if v.BitLen() > 8*uint128Size {
		return fmt.Errorf("value %s exceeds 128 bits", v)
	}
	v.FillBytes(dst)
	return nil
}

func checkUint256(name string, v *big.Int) (*big.Int, error) {
	if v == nil {
		return new(big.Int), nil
	}
	if v.Sign() < 0 || v.BitLen() > 256 {
		return nil, fmt.Errorf("%s out of uint256 range: %s", name, v)
	}
	return new(big.Int).Set(v), nil
}
