package main

import (
	"github.com/urfave/cli/v2"

	"github.com/linlinbupt123-crypto/bip322_aa/bip322"
)

var verify = cli.Command{
	Name:  "verify",
	Usage: "verify a BIP-322 signature",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "address", Required: true},
		&cli.StringFlag{Name: "message"},
		&cli.StringFlag{Name: "signature", Required: true},
	},
	Action: verifyAction,
}

func verifyAction(ctx *cli.Context) error {
	net, err := getNetwork(ctx)
	if err != nil {
		return err
	}
	err = bip322.NewSigner(net).Verify(ctx.String("address"), ctx.String("message"), ctx.String("signature"))
	if err != nil {
		return err
	}
	return printJSON(map[string]bool{"valid": true})
}
