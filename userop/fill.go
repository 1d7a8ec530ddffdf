package userop

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
	"github.com/linlinbupt123-crypto/bip322_aa/utils"
)

// ErrAccountNotDeployed is returned by a GasContext when the sender has no
// code yet, so its nonce cannot be read.
var ErrAccountNotDeployed = errors.New("account not deployed")

// GasContext is the chain data Fill needs. Every call may block on the
// network and may be retried by the caller.
type GasContext interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	GetNonce(ctx context.Context, sender common.Address) (*big.Int, error)
	LatestBaseFee(ctx context.Context) (*big.Int, error)
}

// Codec fills user operations against one entry point.
type Codec struct {
	Defaults   Defaults
	EntryPoint common.Address
}

func NewCodec(entryPoint common.Address, defaults Defaults) *Codec {
	return &Codec{Defaults: defaults, EntryPoint: entryPoint}
}

// Fill resolves every absent field of partial, consulting gc for the nonce,
// gas estimates and the base fee. partial is not modified.
func (c *Codec) Fill(ctx context.Context, partial PartialUserOperation, gc GasContext) (*UserOperation, error) {
	const opName = "fill user operation"
	d := c.Defaults

	sender, senderSet := partial.Sender.Get()
	nonce := partial.Nonce
	verificationGasLimit := partial.VerificationGasLimit

	logger := log.WithField("sender", sender.Hex())

	if initCode, ok := partial.InitCode.Get(); ok && len(initCode) > 0 {
		if len(initCode) < common.AddressLength {
			return nil, wrapErrors.New(wrapErrors.CodeInvalidUserOperation, opName,
				fmt.Sprintf("initCode shorter than a factory address: %d bytes", len(initCode)))
		}
		factory := common.BytesToAddress(initCode[:common.AddressLength])
		factoryCallData := initCode[common.AddressLength:]

		if !nonce.IsSet() {
			nonce = Some(big.NewInt(0))
		}
		if !verificationGasLimit.IsSet() {
			estimate, err := gc.EstimateGas(ctx, ethereum.CallMsg{
				From: c.EntryPoint,
				To:   &factory,
				Gas:  d.DeploymentGasCap,
				Data: factoryCallData,
			})
			if err != nil {
				return nil, wrapErrors.WrapWithCode(wrapErrors.CodeEstimationFailed, "estimate deployment gas", err)
			}
			v := new(big.Int).SetUint64(estimate)
			v.Add(v, orZero(d.VerificationGasLimit))
			verificationGasLimit = Some(v)
			logger.WithField("estimate", estimate).Debug("estimated account deployment gas")
		}
	}

	if !nonce.IsSet() {
		if !senderSet {
			return nil, wrapErrors.New(wrapErrors.CodeInvalidUserOperation, opName, "sender is required to read the nonce")
		}
		n, err := gc.GetNonce(ctx, sender)
		if err != nil {
			if errors.Is(err, ErrAccountNotDeployed) {
				return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNonceUnavailable, "get nonce", err)
			}
			// misconfigured accessor, retrying cannot help
			if wrapErrors.HasCode(err, wrapErrors.CodeInvalidRequest) {
				return nil, err
			}
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeEstimationFailed, "get nonce", err)
		}
		nonce = Some(n)
	}

	callGasLimit := partial.CallGasLimit
	if callData, ok := partial.CallData.Get(); ok && !callGasLimit.IsSet() {
		to := sender
		if !senderSet {
			to = d.Sender
		}
		estimate, err := gc.EstimateGas(ctx, ethereum.CallMsg{
			From: c.EntryPoint,
			To:   &to,
			Data: callData,
		})
		if err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeEstimationFailed, "estimate call gas", err)
		}
		callGasLimit = Some(new(big.Int).SetUint64(estimate))
		logger.WithField("estimate", estimate).Debug("estimated call gas")
	}

	pmVerificationGasLimit := partial.PaymasterVerificationGasLimit
	pmPostOpGasLimit := partial.PaymasterPostOpGasLimit
	if partial.Paymaster.IsSet() {
		if !pmVerificationGasLimit.IsSet() {
			pmVerificationGasLimit = Some(copyBig(d.PaymasterVerificationGasLimit))
		}
		if !pmPostOpGasLimit.IsSet() {
			pmPostOpGasLimit = Some(copyBig(d.PaymasterPostOpGasLimit))
		}
	}

	maxFeePerGas := partial.MaxFeePerGas
	if !maxFeePerGas.IsSet() {
		baseFee, err := gc.LatestBaseFee(ctx)
		if err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeEstimationFailed, "latest base fee", err)
		}
		priority := partial.MaxPriorityFeePerGas.Or(d.MaxPriorityFeePerGas)
		maxFeePerGas = Some(new(big.Int).Add(orZero(baseFee), orZero(priority)))
	}
	maxPriorityFeePerGas := partial.MaxPriorityFeePerGas
	if !maxPriorityFeePerGas.IsSet() {
		maxPriorityFeePerGas = Some(copyBig(d.MaxPriorityFeePerGas))
	}

	op := &UserOperation{
		Sender:                        partial.Sender.Or(d.Sender),
		Nonce:                         bigOr(nonce, d.Nonce),
		InitCode:                      bytesOr(partial.InitCode),
		CallData:                      bytesOr(partial.CallData),
		CallGasLimit:                  bigOr(callGasLimit, d.CallGasLimit),
		VerificationGasLimit:          bigOr(verificationGasLimit, d.VerificationGasLimit),
		PreVerificationGas:            bigOr(partial.PreVerificationGas, d.PreVerificationGas),
		MaxFeePerGas:                  bigOr(maxFeePerGas, d.MaxFeePerGas),
		MaxPriorityFeePerGas:          bigOr(maxPriorityFeePerGas, d.MaxPriorityFeePerGas),
		Paymaster:                     partial.Paymaster.Or(d.Paymaster),
		PaymasterVerificationGasLimit: bigOr(pmVerificationGasLimit, d.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       bigOr(pmPostOpGasLimit, d.PaymasterPostOpGasLimit),
		PaymasterData:                 bytesOr(partial.PaymasterData),
		Signature:                     bytesOr(partial.Signature),
	}

	if op.PreVerificationGas.Sign() == 0 {
		unsigned, err := EncodeUnsigned(op)
		if err != nil {
			return nil, err
		}
		op.PreVerificationGas = new(big.Int).SetUint64(IntrinsicGas(unsigned))
	}

	logger.WithFields(log.Fields{
		"nonce":              op.Nonce,
		"callGasLimit":       op.CallGasLimit,
		"preVerificationGas": op.PreVerificationGas,
		"maxFeePerGasGwei":   utils.WeiToGwei(op.MaxFeePerGas),
	}).Debug("user operation filled")

	return op, nil
}

// bigOr copies the present value, or the fallback, never returning nil.
func bigOr(o Optional[*big.Int], fallback *big.Int) *big.Int {
	v := o.Or(fallback)
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func bytesOr(o Optional[[]byte]) []byte {
	v, _ := o.Get()
	return append([]byte{}, v...)
}
