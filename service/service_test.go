package service

import (
	"context"
	"encoding/base64"
	"errors"
	"math/big"
	"sort"
	"strings"
	"testing"

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
	testMnemonic   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassphrase = "correct horse"
	testP2SH       = "37VucYSaXLCAsxYyAPfbSi9eh4iEcbShgf"
	testP2TR       = "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr"
)

var testSender = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

type memoryWalletStore struct {
	wallets map[string]*entity.HDWallet
}

func (m *memoryWalletStore) Create(_ context.Context, w *entity.HDWallet) (string, error) {
	if m.wallets == nil {
		m.wallets = map[string]*entity.HDWallet{}
	}
	m.wallets[w.UserID] = w
	return "wallet-" + w.UserID, nil
}

func (m *memoryWalletStore) GetByUserID(_ context.Context, userID string) (*entity.HDWallet, error) {
	return m.wallets[userID], nil
}

func (m *memoryWalletStore) DeleteByUserID(_ context.Context, userID string) error {
	delete(m.wallets, userID)
	return nil
}

type memoryAccountStore struct {
	accounts  []entity.Account
	createErr error
}

func (m *memoryAccountStore) CreateMany(_ context.Context, accounts []entity.Account) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.accounts = append(m.accounts, accounts...)
	return nil
}

func (m *memoryAccountStore) ListByWallet(_ context.Context, walletID string) ([]entity.Account, error) {
	var out []entity.Account
	for _, a := range m.accounts {
		if a.WalletID == walletID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *memoryAccountStore) GetMaxIndex(_ context.Context, walletID string) (int64, error) {
	max := int64(-1)
	for _, a := range m.accounts {
		if a.WalletID == walletID && int64(a.Index) > max {
			max = int64(a.Index)
		}
	}
	return max, nil
}

type scriptedGas struct {
	nonceErrs []error
	calls     int
}

func (g *scriptedGas) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 80_000, nil
}

func (g *scriptedGas) GetNonce(context.Context, common.Address) (*big.Int, error) {
	g.calls++
	if len(g.nonceErrs) > 0 {
		err := g.nonceErrs[0]
		g.nonceErrs = g.nonceErrs[1:]
		return nil, err
	}
	return big.NewInt(5), nil
}

func (g *scriptedGas) LatestBaseFee(context.Context) (*big.Int, error) {
	return big.NewInt(3_000_000_000), nil
}

func newTestServices(t *testing.T, gas userop.GasContext) (*WalletService, *UserOpService) {
	t.Helper()
	hd := domain.NewHDWallet(&memoryWalletStore{}, chain.Mainnet)
	wallets := NewWalletService(hd, &memoryAccountStore{}, 1)
	codec := userop.NewCodec(common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032"), userop.DefaultsForUserOp())
	return wallets, NewUserOpService(wallets, codec, gas, big.NewInt(1))
}

func importTestWallet(t *testing.T, wallets *WalletService) []entity.Account {
	t.Helper()
	_, accounts, err := wallets.ImportWallet(context.Background(), "user-1", testMnemonic, testPassphrase)
	require.NoError(t, err)
	return accounts
}

func TestCreateWallet(t *testing.T) {
	wallets, _ := newTestServices(t, &scriptedGas{})

	wallet, mnemonic, accounts, err := wallets.CreateWallet(context.Background(), "user-2", testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, "wallet-user-2", wallet.ID)
	assert.Len(t, strings.Fields(mnemonic), 24)
	require.Len(t, accounts, 1)
	assert.Equal(t, "wallet-user-2", accounts[0].WalletID)
}

func TestCreateWalletDiscardsWalletWhenAccountsFail(t *testing.T) {
	ctx := context.Background()
	walletRepo := &memoryWalletStore{}
	accountRepo := &memoryAccountStore{createErr: errors.New("write conflict")}
	wallets := NewWalletService(domain.NewHDWallet(walletRepo, chain.Mainnet), accountRepo, 1)

	_, _, _, err := wallets.CreateWallet(ctx, "user-3", testPassphrase)
	require.Error(t, err)
	assert.NotContains(t, walletRepo.wallets, "user-3")

	_, _, err = wallets.ImportWallet(ctx, "user-3", testMnemonic, testPassphrase)
	require.Error(t, err)
	assert.NotContains(t, walletRepo.wallets, "user-3")

	accountRepo.createErr = nil
	_, accounts, err := wallets.ImportWallet(ctx, "user-3", testMnemonic, testPassphrase)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Contains(t, walletRepo.wallets, "user-3")
}

func TestImportWalletAndDerive(t *testing.T) {
	ctx := context.Background()
	wallets, _ := newTestServices(t, &scriptedGas{})

	accounts := importTestWallet(t, wallets)
	require.Len(t, accounts, 1)
	assert.Equal(t, testP2SH, accounts[0].BtcAddress)
	assert.Equal(t, testP2TR, accounts[0].OrdinalsAddress)

	next, err := wallets.DeriveNextAccount(ctx, "user-1", testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), next.Index)

	listed, err := wallets.ListAccounts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, uint32(0), listed[0].Index)

	_, err = wallets.ListAccounts(ctx, "nobody")
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeWalletNotFound))

	_, err = wallets.DeriveNextAccount(ctx, "user-1", "wrong")
	assert.ErrorIs(t, err, domain.ErrWrongPassphrase)
}

func TestSignUserOperation(t *testing.T) {
	ctx := context.Background()
	wallets, ops := newTestServices(t, &scriptedGas{})
	importTestWallet(t, wallets)

	partial := userop.PartialUserOperation{
		Sender:   userop.Some(testSender),
		CallData: userop.Some([]byte{0xb6, 0x1d, 0x27, 0xf6}),
	}

	for _, address := range []string{testP2SH, testP2TR} {
		signed, err := ops.SignUserOperation(ctx, "user-1", testPassphrase, address, partial)
		require.NoError(t, err, address)

		raw, err := base64.StdEncoding.DecodeString(signed.Signature)
		require.NoError(t, err)
		assert.Equal(t, raw, signed.Packed.Signature)
		assert.Equal(t, int64(5), signed.Operation.Nonce.Int64())
		assert.Equal(t, userop.SignatureMessage(signed.Hash), signed.Message)

		// the hash does not cover the signature
		rehash, err := userop.Hash(signed.Operation, ops.Codec.EntryPoint, ops.ChainID)
		require.NoError(t, err)
		assert.Equal(t, signed.Hash, rehash)

		assert.NoError(t, ops.VerifyMessage(address, signed.Message, signed.Signature))
	}

	_, err := ops.SignUserOperation(ctx, "user-1", testPassphrase, "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu", partial)
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeAddressNotFound), "got %v", err)
}

func TestSignMessage(t *testing.T) {
	ctx := context.Background()
	wallets, ops := newTestServices(t, &scriptedGas{})
	importTestWallet(t, wallets)

	signature, err := ops.SignMessage(ctx, "user-1", testPassphrase, testP2TR, "hello")
	require.NoError(t, err)
	assert.NoError(t, ops.VerifyMessage(testP2TR, "hello", signature))

	_, err = ops.SignMessage(ctx, "user-1", "wrong", testP2TR, "hello")
	assert.ErrorIs(t, err, domain.ErrWrongPassphrase)

	_, err = ops.SignMessage(ctx, "nobody", testPassphrase, testP2TR, "hello")
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeWalletNotFound))
}

func TestFillRetries(t *testing.T) {
	ctx := context.Background()
	partial := userop.PartialUserOperation{Sender: userop.Some(testSender)}

	gas := &scriptedGas{nonceErrs: []error{
		wrapErrors.New(wrapErrors.CodeChainRPC, "get code", "connection reset"),
	}}
	_, ops := newTestServices(t, gas)
	op, err := ops.FillUserOperation(ctx, partial)
	require.NoError(t, err)
	assert.Equal(t, int64(5), op.Nonce.Int64())
	assert.Equal(t, 2, gas.calls)

	gas = &scriptedGas{nonceErrs: []error{userop.ErrAccountNotDeployed}}
	_, ops = newTestServices(t, gas)
	_, err = ops.FillUserOperation(ctx, partial)
	assert.True(t, wrapErrors.HasCode(err, wrapErrors.CodeNonceUnavailable))
	assert.Equal(t, 1, gas.calls)
}

func TestEVMPublicKey(t *testing.T) {
	_, ops := newTestServices(t, &scriptedGas{})

	key, typ, err := ops.EVMPublicKey(testP2TR, "")
	require.NoError(t, err)
	assert.Equal(t, chain.P2TR, typ)
	assert.True(t, strings.HasPrefix(key, "0x5120"))
}
