package bip322

import (
	"context"
	"encoding/base64"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/domain"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
	"github.com/linlinbupt123-crypto/bip322_aa/userop"
)

const (
	vectorWIF            = "L3VFeEujGtevx9w18HD1fhRbCH67Az2dpCymeRE1SoPK6XQtaN2k"
	vectorHelloSignature = "AkcwRAIgZRfIY3p7/DoVTty6YZbWS71bc5Vct9p9Fia83eRmw2QCICK/ENGfwLtptFluMGs2KsqoNSk89pO7F29zJLUx9a/sASECx/EgAxlkQpQ9hYjgGu6EBCPMVPwVIVJqO4XCsMvViHI="
	// deterministic (RFC6979) signatures of the vector key
	vectorHelloDeterministic = "AkgwRQIhAOzyynlqt93lOKJr+wmmxIens//zPzl9tqIOua93wO6MAiBi5n5EyAcPScOjf1lAqIUIQtr3zKNeavYabHyR8eGhowEhAsfxIAMZZEKUPYWI4BruhAQjzFT8FSFSajuFwrDL1Yhy"
	vectorEmptyDeterministic = "AkgwRQIhAPkJ1Q4oYS0htvyuSFHLxRQpFAY56b70UvE7Dxazen0ZAiAtZfFz1S6T6I23MWI2lK/pcNTWncuyL8UL+oMdydVgzAEhAsfxIAMZZEKUPYWI4BruhAQjzFT8FSFSajuFwrDL1Yhy"
	testMnemonic         = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

func vectorKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	wif, err := btcutil.DecodeWIF(vectorWIF)
	require.NoError(t, err)
	return wif.PrivKey
}

func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := domain.MnemonicToSeed(testMnemonic, "")
	require.NoError(t, err)
	return seed
}

func TestVerifyVector(t *testing.T) {
	s := NewSigner(chain.Mainnet)

	require.NoError(t, s.Verify(vectorAddress, "Hello World", vectorHelloSignature))

	err := s.Verify(vectorAddress, "", vectorHelloSignature)
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeInvalidSignature), "got %v", err)
}

func TestSignWithKeyVector(t *testing.T) {
	s := NewSigner(chain.Mainnet)
	key := vectorKey(t)

	tests := []struct {
		message string
		want    string
	}{
		{"Hello World", vectorHelloDeterministic},
		{"", vectorEmptyDeterministic},
	}
	for _, tt := range tests {
		signature, err := s.SignWithKey(chain.P2WPKH, key, tt.message)
		require.NoError(t, err)
		assert.Equal(t, tt.want, signature, "message %q", tt.message)
		assert.NoError(t, s.Verify(vectorAddress, tt.message, signature))
	}
}

func TestSignWithKeyRoundTrip(t *testing.T) {
	s := NewSigner(chain.Mainnet)
	key := vectorKey(t)

	tests := []struct {
		name  string
		typ   chain.AddressType
		check func(t *testing.T, signature string)
	}{
		{
			name: "p2wpkh",
			typ:  chain.P2WPKH,
			check: func(t *testing.T, signature string) {
				witness, err := DecodeWitness(signature)
				require.NoError(t, err)
				require.Len(t, witness, 2)
				assert.Equal(t, key.PubKey().SerializeCompressed(), witness[1])
			},
		},
		{
			name: "p2tr",
			typ:  chain.P2TR,
			check: func(t *testing.T, signature string) {
				witness, err := DecodeWitness(signature)
				require.NoError(t, err)
				require.Len(t, witness, 1)
				assert.Len(t, witness[0], 64)
			},
		},
		{
			name: "p2sh",
			typ:  chain.P2SH,
			check: func(t *testing.T, signature string) {
				raw, err := base64.StdEncoding.DecodeString(signature)
				require.NoError(t, err)
				require.Len(t, raw, 65)
				assert.GreaterOrEqual(t, raw[0], byte(35))
				assert.LessOrEqual(t, raw[0], byte(38))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := chain.BuildScript(tt.typ, key.PubKey(), chain.Mainnet)
			require.NoError(t, err)
			address := script.Address.EncodeAddress()

			signature, err := s.SignWithKey(tt.typ, key, "Hello World")
			require.NoError(t, err)
			tt.check(t, signature)

			require.NoError(t, s.Verify(address, "Hello World", signature))
			err = s.Verify(address, "Hello World!", signature)
			assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeInvalidSignature), "got %v", err)
		})
	}
}

func TestP2WPKHVectorAddress(t *testing.T) {
	script, err := chain.BuildScript(chain.P2WPKH, vectorKey(t).PubKey(), chain.Mainnet)
	require.NoError(t, err)
	assert.Equal(t, vectorAddress, script.Address.EncodeAddress())
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	s := NewSigner(chain.Mainnet)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	for _, typ := range []chain.AddressType{chain.P2WPKH, chain.P2TR, chain.P2SH} {
		script, err := chain.BuildScript(typ, vectorKey(t).PubKey(), chain.Mainnet)
		require.NoError(t, err)

		signature, err := s.SignWithKey(typ, other, "Hello World")
		require.NoError(t, err)

		err = s.Verify(script.Address.EncodeAddress(), "Hello World", signature)
		assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeInvalidSignature), "%s: got %v", typ, err)
	}
}

func TestVerifyErrors(t *testing.T) {
	s := NewSigner(chain.Mainnet)

	tests := []struct {
		name      string
		address   string
		signature string
		code      wrapErrors.Code
	}{
		{"invalid address", "not-an-address", vectorHelloSignature, wrapErrors.CodeInvalidAddress},
		{"legacy address", "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", vectorHelloSignature, wrapErrors.CodeUnsupportedAddressType},
		{"garbage witness", vectorAddress, "!!!", wrapErrors.CodeInvalidSignature},
		{"empty witness", vectorAddress, "AA==", wrapErrors.CodeEmptyWitness},
		{"short compact signature", "37VucYSaXLCAsxYyAPfbSi9eh4iEcbShgf", "AAEC", wrapErrors.CodeInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Verify(tt.address, "Hello World", tt.signature)
			require.Error(t, err)
			assert.True(t, wrapErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSignWithSeedErrors(t *testing.T) {
	s := NewSigner(chain.Mainnet)
	seed := testSeed(t)
	accounts, err := domain.DeriveAccounts(seed, chain.Mainnet, 0, 1)
	require.NoError(t, err)

	_, err = s.SignWithSeed(seed, nil, accounts[0].BtcAddress, "msg")
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeEmptyAccountList))

	_, err = s.SignWithSeed(seed, accounts, vectorAddress, "msg")
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeAddressNotFound))

	_, err = s.SignWithKey(chain.P2WPKH, nil, "msg")
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeKeyDerivationFailed))
}

type staticGasContext struct{}

func (staticGasContext) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 60_000, nil
}

func (staticGasContext) GetNonce(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(3), nil
}

func (staticGasContext) LatestBaseFee(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

// Fill a user operation, hash it and sign the hash with every supported
// address type of one wallet.
func TestSignUserOperationEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := NewSigner(chain.Mainnet)
	seed := testSeed(t)

	accounts, err := domain.DeriveAccounts(seed, chain.Mainnet, 0, 2)
	require.NoError(t, err)
	segwit, err := domain.DeriveAddress(seed, chain.Mainnet, chain.P2WPKH, 1)
	require.NoError(t, err)
	accounts = append(accounts, entity.Account{Index: 1, BtcAddress: segwit})

	codec := userop.NewCodec(common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032"), userop.DefaultsForUserOp())
	op, err := codec.Fill(ctx, userop.PartialUserOperation{
		Sender:   userop.Some(common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")),
		CallData: userop.Some([]byte{0xb6, 0x1d, 0x27, 0xf6}),
	}, staticGasContext{})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3), op.Nonce)

	hash, err := userop.Hash(op, codec.EntryPoint, big.NewInt(1))
	require.NoError(t, err)
	message := userop.SignatureMessage(hash)

	tests := []struct {
		name    string
		address string
		items   int
	}{
		{"p2sh", accounts[1].BtcAddress, 0},
		{"p2tr", accounts[1].OrdinalsAddress, 1},
		{"p2wpkh", segwit, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signature, err := s.SignWithSeed(seed, accounts, tt.address, message)
			require.NoError(t, err)

			if tt.items == 0 {
				raw, err := base64.StdEncoding.DecodeString(signature)
				require.NoError(t, err)
				assert.Len(t, raw, 65)
			} else {
				witness, err := DecodeWitness(signature)
				require.NoError(t, err)
				assert.Len(t, witness, tt.items)
			}
			assert.NoError(t, s.Verify(tt.address, message, signature))
		})
	}
}
