package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/linlinbupt123-crypto/bip322_aa/bip322"
	"github.com/linlinbupt123-crypto/bip322_aa/domain"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
)

var sign = cli.Command{
	Name:  "sign",
	Usage: "sign a message with the key owning an address",
	Flags: []cli.Flag{
		mnemonicFlag,
		&cli.StringFlag{Name: "accounts", Usage: "JSON file with the account list, derived from the mnemonic if absent"},
		&cli.UintFlag{Name: "scan", Usage: "accounts to derive when no account file is given", Value: 20},
		&cli.StringFlag{Name: "address", Usage: "address to sign for", Required: true},
		&cli.StringFlag{Name: "message", Usage: "message to sign"},
	},
	Action: signAction,
}

func signAction(ctx *cli.Context) error {
	net, err := getNetwork(ctx)
	if err != nil {
		return err
	}
	seed, err := seedFromFlags(ctx)
	if err != nil {
		return err
	}
	defer domain.ClearBytes(seed)

	var accounts []entity.Account
	if path := ctx.String("accounts"); path != "" {
		accounts, err = readAccounts(path)
	} else {
		accounts, err = domain.DeriveAccounts(seed, net, 0, uint32(ctx.Uint("scan")))
	}
	if err != nil {
		return err
	}

	signature, err := bip322.NewSigner(net).SignWithSeed(seed, accounts, ctx.String("address"), ctx.String("message"))
	if err != nil {
		return err
	}
	fmt.Println(signature)
	return nil
}

func readAccounts(path string) ([]entity.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var accounts []entity.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return accounts, nil
}
