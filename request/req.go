package request

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/linlinbupt123-crypto/bip322_aa/userop"
)

type CreateWalletReq struct {
	Passphrase string `json:"passphrase" binding:"required"`
}

type ImportWalletReq struct {
	Mnemonic   string `json:"mnemonic" binding:"required"`
	Passphrase string `json:"passphrase" binding:"required"`
}

type DeriveAccountReq struct {
	Passphrase string `json:"passphrase" binding:"required"`
}

type SignMessageReq struct {
	Address    string `json:"address" binding:"required"`
	Message    string `json:"message"`
	Passphrase string `json:"passphrase" binding:"required"`
}

type VerifyMessageReq struct {
	Address   string `json:"address" binding:"required"`
	Message   string `json:"message"`
	Signature string `json:"signature" binding:"required"`
}

type EVMPublicKeyReq struct {
	Address   string `json:"address" binding:"required"`
	PublicKey string `json:"public_key"`
}

// UserOperationReq is a partially specified user operation. Absent fields
// are filled from the chain and the defaults table.
type UserOperationReq struct {
	Sender                        *common.Address `json:"sender" binding:"required"`
	Nonce                         *hexutil.Big    `json:"nonce"`
	InitCode                      *hexutil.Bytes  `json:"initCode"`
	CallData                      *hexutil.Bytes  `json:"callData"`
	CallGasLimit                  *hexutil.Big    `json:"callGasLimit"`
	VerificationGasLimit          *hexutil.Big    `json:"verificationGasLimit"`
	PreVerificationGas            *hexutil.Big    `json:"preVerificationGas"`
	MaxFeePerGas                  *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas          *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Paymaster                     *common.Address `json:"paymaster"`
	PaymasterVerificationGasLimit *hexutil.Big    `json:"paymasterVerificationGasLimit"`
	PaymasterPostOpGasLimit       *hexutil.Big    `json:"paymasterPostOpGasLimit"`
	PaymasterData                 *hexutil.Bytes  `json:"paymasterData"`
}

type SignUserOperationReq struct {
	Address    string           `json:"address" binding:"required"`
	Passphrase string           `json:"passphrase" binding:"required"`
	UserOp     UserOperationReq `json:"userOp"`
}

// ToPartial converts the request into codec input.
func (r UserOperationReq) ToPartial() userop.PartialUserOperation {
	var p userop.PartialUserOperation
	if r.Sender != nil {
		p.Sender = userop.Some(*r.Sender)
	}
	if r.Paymaster != nil {
		p.Paymaster = userop.Some(*r.Paymaster)
	}
	p.Nonce = optBig(r.Nonce)
	p.CallGasLimit = optBig(r.CallGasLimit)
	p.VerificationGasLimit = optBig(r.VerificationGasLimit)
	p.PreVerificationGas = optBig(r.PreVerificationGas)
	p.MaxFeePerGas = optBig(r.MaxFeePerGas)
	p.MaxPriorityFeePerGas = optBig(r.MaxPriorityFeePerGas)
	p.PaymasterVerificationGasLimit = optBig(r.PaymasterVerificationGasLimit)
	p.PaymasterPostOpGasLimit = optBig(r.PaymasterPostOpGasLimit)
	p.InitCode = optBytes(r.InitCode)
	p.CallData = optBytes(r.CallData)
	p.PaymasterData = optBytes(r.PaymasterData)
	return p
}

func optBig(v *hexutil.Big) userop.Optional[*big.Int] {
	if v == nil {
		return userop.Optional[*big.Int]{}
	}
	return userop.Some(v.ToInt())
}

func optBytes(v *hexutil.Bytes) userop.Optional[[]byte] {
	if v == nil {
		return userop.Optional[[]byte]{}
	}
	return userop.Some([]byte(*v))
}
