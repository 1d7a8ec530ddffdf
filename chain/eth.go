package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
	"github.com/linlinbupt123-crypto/bip322_aa/revert"
	"github.com/linlinbupt123-crypto/bip322_aa/userop"
)

// ethBackend is the subset of ethclient.Client the gas context uses.
type ethBackend interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

type ETHOptions struct {
	RPC           string
	APIKey        string
	NonceFunction string
	Timeout       time.Duration
}

// ETHChain reads the chain state user operation filling depends on.
type ETHChain struct {
	Rpc     string
	Timeout time.Duration

	backend       ethBackend
	nonceFunction string
	nonceABI      abi.ABI
}

var _ userop.GasContext = (*ETHChain)(nil)

// DialETHChain connects to opts.RPC with the API key appended, the way hosted
// providers expect it.
func DialETHChain(ctx context.Context, opts ETHOptions) (*ETHChain, error) {
	link := fmt.Sprintf("%s%s", opts.RPC, opts.APIKey)
	client, err := ethclient.DialContext(ctx, link)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.DailChain, "eth dial", err)
	}
	e, err := newETHChain(client, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	return e, nil
}

func newETHChain(backend ethBackend, opts ETHOptions) (*ETHChain, error) {
	nonceABI, err := nonceFunctionABI(opts.NonceFunction)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidRequest, "nonce function", err)
	}
	if _, err := nonceABI.Pack(opts.NonceFunction); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidRequest, "nonce function", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ETHChain{
		Rpc:           opts.RPC,
		Timeout:       timeout,
		backend:       backend,
		nonceFunction: opts.NonceFunction,
		nonceABI:      nonceABI,
	}, nil
}

// nonceFunctionABI describes `function <name>() view returns (uint256)`.
func nonceFunctionABI(name string) (abi.ABI, error) {
	if name == "" {
		return abi.ABI{}, fmt.Errorf("empty nonce function name")
	}
	def := fmt.Sprintf(`[{"type":"function","name":%q,"stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`, name)
	return abi.JSON(strings.NewReader(def))
}

func (e *ETHChain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	gas, err := e.backend.EstimateGas(ctx, msg)
	if err != nil {
		return 0, wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, "estimate gas", revert.Wrap(err))
	}
	return gas, nil
}

// GetNonce calls the configured nonce accessor on sender. A sender without
// code returns userop.ErrAccountNotDeployed.
func (e *ETHChain) GetNonce(ctx context.Context, sender common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	code, err := e.backend.CodeAt(ctx, sender, nil)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, "get code", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%s: %w", sender.Hex(), userop.ErrAccountNotDeployed)
	}

	input, err := e.nonceABI.Pack(e.nonceFunction)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInvalidRequest, e.nonceFunction, err)
	}
	out, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &sender, Data: input}, nil)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, e.nonceFunction, revert.Wrap(err))
	}
	values, err := e.nonceABI.Unpack(e.nonceFunction, out)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, e.nonceFunction, err)
	}
	nonce, ok := values[0].(*big.Int)
	if !ok {
		return nil, wrapErrors.New(wrapErrors.CodeChainRPC, e.nonceFunction, "unexpected return type")
	}
	return nonce, nil
}

// LatestBaseFee returns the base fee of the latest block. Chains without
// EIP-1559 are an error.
func (e *ETHChain) LatestBaseFee(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	header, err := e.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeChainRPC, "latest header", err)
	}
	if header.BaseFee == nil {
		return nil, wrapErrors.New(wrapErrors.CodeChainRPC, "latest header", "block has no base fee")
	}
	return new(big.Int).Set(header.BaseFee), nil
}

func (e *ETHChain) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	id, err := e.backend.ChainID(ctx)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.GetchainIDErr, "get chainID", err)
	}
	return id, nil
}
