package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
)

var networkFlag = &cli.StringFlag{
	Name:  "network",
	Usage: "bitcoin network: mainnet or testnet",
	Value: "mainnet",
}

func main() {
	app := cli.NewApp()

	app.Name = "bip322cli"
	app.Usage = "offline BIP-322 signing and user operation hashing"
	app.Flags = []cli.Flag{networkFlag}
	app.Commands = append(
		app.Commands,
		&derive,
		&sign,
		&verify,
		&hash,
		&evmKey,
	)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func getNetwork(ctx *cli.Context) (chain.Network, error) {
	return chain.NetworkByName(ctx.String(networkFlag.Name))
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[bip322cli] %v\n", err)
	os.Exit(1)
}
