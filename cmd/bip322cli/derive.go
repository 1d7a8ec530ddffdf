package main

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/linlinbupt123-crypto/bip322_aa/domain"
)

var mnemonicFlag = &cli.StringFlag{
	Name:    "mnemonic",
	Usage:   "BIP-39 mnemonic of the wallet",
	EnvVars: []string{"BIP322_MNEMONIC"},
}

var derive = cli.Command{
	Name:  "derive",
	Usage: "derive the accounts of a mnemonic",
	Flags: []cli.Flag{
		mnemonicFlag,
		&cli.UintFlag{Name: "start", Usage: "first account index"},
		&cli.UintFlag{Name: "count", Usage: "number of accounts", Value: 1},
	},
	Action: deriveAction,
}

func deriveAction(ctx *cli.Context) error {
	net, err := getNetwork(ctx)
	if err != nil {
		return err
	}
	seed, err := seedFromFlags(ctx)
	if err != nil {
		return err
	}
	defer domain.ClearBytes(seed)

	accounts, err := domain.DeriveAccounts(seed, net, uint32(ctx.Uint("start")), uint32(ctx.Uint("count")))
	if err != nil {
		return err
	}
	return printJSON(accounts)
}

func seedFromFlags(ctx *cli.Context) ([]byte, error) {
	mnemonic := ctx.String(mnemonicFlag.Name)
	if mnemonic == "" {
		return nil, errors.New("mnemonic is required, pass --mnemonic or set BIP322_MNEMONIC")
	}
	return domain.MnemonicToSeed(mnemonic, "")
}
