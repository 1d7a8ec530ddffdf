package userop

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UserOperation is the unpacked, fully resolved account-abstraction request.
type UserOperation struct {
	Sender                        common.Address
	Nonce                         *big.Int
	InitCode                      []byte
	CallData                      []byte
	CallGasLimit                  *big.Int
	VerificationGasLimit          *big.Int
	PreVerificationGas            *big.Int
	MaxFeePerGas                  *big.Int
	MaxPriorityFeePerGas          *big.Int
	Paymaster                     common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	PaymasterData                 []byte
	Signature                     []byte
}

// PartialUserOperation is what callers hand to Codec.Fill.
type PartialUserOperation struct {
	Sender                        Optional[common.Address]
	Nonce                         Optional[*big.Int]
	InitCode                      Optional[[]byte]
	CallData                      Optional[[]byte]
	CallGasLimit                  Optional[*big.Int]
	VerificationGasLimit          Optional[*big.Int]
	PreVerificationGas            Optional[*big.Int]
	MaxFeePerGas                  Optional[*big.Int]
	MaxPriorityFeePerGas          Optional[*big.Int]
	Paymaster                     Optional[common.Address]
	PaymasterVerificationGasLimit Optional[*big.Int]
	PaymasterPostOpGasLimit       Optional[*big.Int]
	PaymasterData                 Optional[[]byte]
	Signature                     Optional[[]byte]
}

// PackedUserOperation is the on-chain layout of a user operation.
type PackedUserOperation struct {
	Sender             common.Address
	Nonce              *big.Int
	InitCode           []byte
	CallData           []byte
	AccountGasLimits   [32]byte
	PreVerificationGas *big.Int
	GasFees            [32]byte
	PaymasterAndData   []byte
	Signature          []byte
}

type packedJSON struct {
	Sender             common.Address `json:"sender"`
	Nonce              *hexutil.Big   `json:"nonce"`
	InitCode           hexutil.Bytes  `json:"initCode"`
	CallData           hexutil.Bytes  `json:"callData"`
	AccountGasLimits   hexutil.Bytes  `json:"accountGasLimits"`
	PreVerificationGas *hexutil.Big   `json:"preVerificationGas"`
	GasFees            hexutil.Bytes  `json:"gasFees"`
	PaymasterAndData   hexutil.Bytes  `json:"paymasterAndData"`
	Signature          hexutil.Bytes  `json:"signature"`
}

func (p PackedUserOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(packedJSON{
		Sender:             p.Sender,
		Nonce:              (*hexutil.Big)(orZero(p.Nonce)),
		InitCode:           nonNil(p.InitCode),
		CallData:           nonNil(p.CallData),
		AccountGasLimits:   p.AccountGasLimits[:],
		PreVerificationGas: (*hexutil.Big)(orZero(p.PreVerificationGas)),
		GasFees:            p.GasFees[:],
		PaymasterAndData:   nonNil(p.PaymasterAndData),
		Signature:          nonNil(p.Signature),
	})
}

// Defaults holds the values Fill applies to absent fields.
type Defaults struct {
	Sender                        common.Address
	Nonce                         *big.Int
	CallGasLimit                  *big.Int
	VerificationGasLimit          *big.Int
	PreVerificationGas            *big.Int
	MaxFeePerGas                  *big.Int
	MaxPriorityFeePerGas          *big.Int
	Paymaster                     common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	// gas cap for estimating the account deployment call
	DeploymentGasCap uint64
}

// DefaultsForUserOp returns a fresh defaults table. A zero PreVerificationGas
// makes Fill charge the intrinsic gas of the operation's own encoding.
func DefaultsForUserOp() Defaults {
	return Defaults{
		Nonce:                         big.NewInt(0),
		CallGasLimit:                  big.NewInt(0),
		VerificationGasLimit:          big.NewInt(150_000),
		PreVerificationGas:            big.NewInt(0),
		MaxFeePerGas:                  big.NewInt(0),
		MaxPriorityFeePerGas:          big.NewInt(1_000_000_000),
		PaymasterVerificationGasLimit: big.NewInt(300_000),
		PaymasterPostOpGasLimit:       big.NewInt(0),
		DeploymentGasCap:              10_000_000,
	}
}

// Copy returns a deep copy of op.
func (op *UserOperation) Copy() *UserOperation {
	return &UserOperation{
		Sender:                        op.Sender,
		Nonce:                         copyBig(op.Nonce),
		InitCode:                      copyBytes(op.InitCode),
		CallData:                      copyBytes(op.CallData),
		CallGasLimit:                  copyBig(op.CallGasLimit),
		VerificationGasLimit:          copyBig(op.VerificationGasLimit),
		PreVerificationGas:            copyBig(op.PreVerificationGas),
		MaxFeePerGas:                  copyBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas:          copyBig(op.MaxPriorityFeePerGas),
		Paymaster:                     op.Paymaster,
		PaymasterVerificationGasLimit: copyBig(op.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       copyBig(op.PaymasterPostOpGasLimit),
		PaymasterData:                 copyBytes(op.PaymasterData),
		Signature:                     copyBytes(op.Signature),
	}
}

// InitCode concatenates the account factory address and its call data.
func InitCode(factory common.Address, factoryCallData []byte) []byte {
	out := make([]byte, 0, common.AddressLength+len(factoryCallData))
	out = append(out, factory.Bytes()...)
	return append(out, factoryCallData...)
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
