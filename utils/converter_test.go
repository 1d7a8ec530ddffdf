package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeiToGwei(t *testing.T) {
	assert.Equal(t, "1.000000000", WeiToGwei(big.NewInt(1_000_000_000)))
	assert.Equal(t, "0.000000001", WeiToGwei(big.NewInt(1)))
	assert.Equal(t, "0", WeiToGwei(nil))
}

func TestGweiToWei(t *testing.T) {
	wei, err := GweiToWei("2.5")
	require.NoError(t, err)
	assert.Equal(t, int64(2_500_000_000), wei.Int64())

	_, err = GweiToWei("abc")
	assert.Error(t, err)
}
