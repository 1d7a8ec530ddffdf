package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/request"
	"github.com/linlinbupt123-crypto/bip322_aa/userop"
	"github.com/linlinbupt123-crypto/bip322_aa/utils"
)

var errOffline = errors.New("value must be given explicitly in offline mode")

// offlineGas fails every lookup, so only fully specified operations hash.
type offlineGas struct{}

func (offlineGas) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 0, errOffline
}

func (offlineGas) GetNonce(context.Context, common.Address) (*big.Int, error) {
	return nil, errOffline
}

func (offlineGas) LatestBaseFee(context.Context) (*big.Int, error) {
	return nil, errOffline
}

var hash = cli.Command{
	Name:  "hash",
	Usage: "hash a fully specified user operation and print the message to sign",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "userop", Usage: "JSON file with the user operation", Required: true},
		&cli.StringFlag{Name: "entry-point", Value: utils.EntryPointV07},
		&cli.Int64Flag{Name: "chain-id", Value: 1},
	},
	Action: hashAction,
}

func hashAction(ctx *cli.Context) error {
	data, err := os.ReadFile(ctx.String("userop"))
	if err != nil {
		return err
	}
	var req request.UserOperationReq
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parse user operation: %w", err)
	}
	entryPoint := ctx.String("entry-point")
	if !common.IsHexAddress(entryPoint) {
		return fmt.Errorf("invalid entry point %q", entryPoint)
	}

	codec := userop.NewCodec(common.HexToAddress(entryPoint), userop.DefaultsForUserOp())
	op, err := codec.Fill(ctx.Context, req.ToPartial(), offlineGas{})
	if err != nil {
		return err
	}
	h, err := userop.Hash(op, codec.EntryPoint, big.NewInt(ctx.Int64("chain-id")))
	if err != nil {
		return err
	}
	packed, err := userop.Pack(op)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"userOp":  packed,
		"hash":    h.Hex(),
		"message": userop.SignatureMessage(h),
	})
}

var evmKey = cli.Command{
	Name:  "evm-key",
	Usage: "print the key material an on-chain account verifies an address against",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "address", Required: true},
		&cli.StringFlag{Name: "pubkey", Usage: "hex compressed public key, required for p2sh"},
	},
	Action: evmKeyAction,
}

func evmKeyAction(ctx *cli.Context) error {
	net, err := getNetwork(ctx)
	if err != nil {
		return err
	}
	key, typ, err := chain.EVMPublicKey(ctx.String("address"), ctx.String("pubkey"), net)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"address_type": typ.String(), "public_key": key})
}
