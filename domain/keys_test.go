package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := MnemonicToSeed(testMnemonic, "")
	require.NoError(t, err)
	return seed
}

func TestDerivePath(t *testing.T) {
	tests := []struct {
		addrType chain.AddressType
		net      chain.Network
		index    uint32
		want     string
	}{
		{chain.P2TR, chain.Mainnet, 0, "m/86'/0'/0'/0/0"},
		{chain.P2WPKH, chain.Testnet, 3, "m/84'/1'/0'/0/3"},
		{chain.P2SH, chain.Mainnet, 12, "m/49'/0'/0'/0/12"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			path, err := DerivePath(tt.addrType, tt.net, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.want, path.String())
		})
	}

	_, err := DerivePath(chain.AddressTypeUnknown, chain.Mainnet, 0)
	require.Error(t, err)
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeUnsupportedAddressType))
}

func TestDeriveAddress(t *testing.T) {
	seed := testSeed(t)

	tests := []struct {
		name     string
		addrType chain.AddressType
		want     string
	}{
		{"bip84", chain.P2WPKH, "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu"},
		{"bip49", chain.P2SH, "37VucYSaXLCAsxYyAPfbSi9eh4iEcbShgf"},
		{"bip86", chain.P2TR, "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := DeriveAddress(seed, chain.Mainnet, tt.addrType, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, addr)
		})
	}
}

func TestDeriveAccounts(t *testing.T) {
	accounts, err := DeriveAccounts(testSeed(t), chain.Mainnet, 0, 2)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, uint32(0), accounts[0].Index)
	assert.Equal(t, "37VucYSaXLCAsxYyAPfbSi9eh4iEcbShgf", accounts[0].BtcAddress)
	assert.Equal(t, "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr", accounts[0].OrdinalsAddress)
	assert.Len(t, accounts[0].BtcPublicKey, 66)
	assert.Len(t, accounts[0].OrdinalsPublicKey, 64)
	assert.Equal(t, uint32(1), accounts[1].Index)
	assert.NotEqual(t, accounts[0].BtcAddress, accounts[1].BtcAddress)
}

func TestDeriveSigningKey(t *testing.T) {
	seed := testSeed(t)
	accounts, err := DeriveAccounts(seed, chain.Mainnet, 0, 3)
	require.NoError(t, err)
	segwit, err := DeriveAddress(seed, chain.Mainnet, chain.P2WPKH, 4)
	require.NoError(t, err)
	accounts = append(accounts, entity.Account{Index: 4, BtcAddress: segwit})

	tests := []struct {
		name     string
		target   string
		wantType chain.AddressType
		wantPath string
	}{
		{"taproot", accounts[1].OrdinalsAddress, chain.P2TR, "m/86'/0'/0'/0/1"},
		{"nested segwit", accounts[2].BtcAddress, chain.P2SH, "m/49'/0'/0'/0/2"},
		{"native segwit", segwit, chain.P2WPKH, "m/84'/0'/0'/0/4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveSigningKey(seed, accounts, tt.target, chain.Mainnet)
			require.NoError(t, err)
			defer key.Zero()

			assert.Equal(t, tt.wantType, key.Type)
			assert.Equal(t, tt.wantPath, key.Path.String())
			assert.True(t, key.Public.IsEqual(key.Private.PubKey()))

			script, err := chain.BuildScript(key.Type, key.Public, chain.Mainnet)
			require.NoError(t, err)
			assert.Equal(t, tt.target, script.Address.EncodeAddress())
		})
	}
}

func TestDeriveSigningKeyFirstMatchWins(t *testing.T) {
	seed := testSeed(t)
	addr, err := DeriveAddress(seed, chain.Mainnet, chain.P2SH, 0)
	require.NoError(t, err)

	accounts := []entity.Account{
		{Index: 0, BtcAddress: addr},
		{Index: 7, BtcAddress: addr},
	}
	key, err := DeriveSigningKey(seed, accounts, addr, chain.Mainnet)
	require.NoError(t, err)
	defer key.Zero()
	assert.Equal(t, uint32(0), key.Index)
}

func TestDeriveSigningKeyUsesStoredIndex(t *testing.T) {
	seed := testSeed(t)
	accounts, err := DeriveAccounts(seed, chain.Mainnet, 0, 4)
	require.NoError(t, err)

	// filtered and reversed: positions no longer match indices
	subset := []entity.Account{accounts[3], accounts[1]}
	key, err := DeriveSigningKey(seed, subset, accounts[1].BtcAddress, chain.Mainnet)
	require.NoError(t, err)
	defer key.Zero()

	assert.Equal(t, uint32(1), key.Index)
	assert.Equal(t, "m/49'/0'/0'/0/1", key.Path.String())
}

func TestDeriveSigningKeyTaprootIgnoresBtcAddress(t *testing.T) {
	seed := testSeed(t)
	taproot, err := DeriveAddress(seed, chain.Mainnet, chain.P2TR, 0)
	require.NoError(t, err)

	// a taproot address stored in the wrong field does not match
	accounts := []entity.Account{{Index: 0, BtcAddress: taproot}}
	_, err = DeriveSigningKey(seed, accounts, taproot, chain.Mainnet)
	require.Error(t, err)
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeAddressNotFound))
}

func TestDeriveSigningKeyErrors(t *testing.T) {
	seed := testSeed(t)
	accounts, err := DeriveAccounts(seed, chain.Mainnet, 0, 1)
	require.NoError(t, err)

	tests := []struct {
		name     string
		accounts []entity.Account
		target   string
		code     wrapErrors.Code
	}{
		{"empty list checked first", nil, "not an address", wrapErrors.CodeEmptyAccountList},
		{"invalid address", accounts, "not an address", wrapErrors.CodeInvalidAddress},
		{"legacy address", accounts, "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", wrapErrors.CodeUnsupportedAddressType},
		{"unknown address", accounts, "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu", wrapErrors.CodeAddressNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveSigningKey(seed, tt.accounts, tt.target, chain.Mainnet)
			require.Error(t, err)
			assert.Nil(t, key)
			assert.True(t, wrapErrors.HasCode(err, tt.code), err.Error())
		})
	}
}

func TestSigningKeyZero(t *testing.T) {
	seed := testSeed(t)
	accounts, err := DeriveAccounts(seed, chain.Mainnet, 0, 1)
	require.NoError(t, err)

	key, err := DeriveSigningKey(seed, accounts, accounts[0].BtcAddress, chain.Mainnet)
	require.NoError(t, err)
	priv := key.Private

	key.Zero()
	assert.Nil(t, key.Private)
	assert.True(t, priv.Key.IsZero())

	var nilKey *SigningKey
	assert.NotPanics(t, nilKey.Zero)
}

func TestMnemonicToSeedRejectsBadChecksum(t *testing.T) {
	_, err := MnemonicToSeed("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon", "")
	require.Error(t, err)
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeInvalidRequest))
}

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic(256)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), 24)

	_, err = MnemonicToSeed(mnemonic, "")
	require.NoError(t, err)
}
