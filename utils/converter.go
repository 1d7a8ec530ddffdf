package utils

import (
	"math/big"
)

func WeiToGwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(1e9))
	return f.Text('f', 9) // 9 decimals
}

func GweiToWei(gwei string) (*big.Int, error) {
	f, _, err := big.ParseFloat(gwei, 10, 256, big.ToNearestEven)
	if err != nil {
		return nil, err
	}
	f.Mul(f, big.NewFloat(1e9))
	wei := new(big.Int)
	f.Int(wei)
	return wei, nil
}
