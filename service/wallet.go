package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/domain"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

// AccountStore persists the derived accounts of a wallet.
type AccountStore interface {
	CreateMany(ctx context.Context, accounts []entity.Account) error
	ListByWallet(ctx context.Context, walletID string) ([]entity.Account, error)
	GetMaxIndex(ctx context.Context, walletID string) (int64, error)
}

type WalletService struct {
	HDWalletDomain  *domain.HDWallet
	AccountRepo     AccountStore
	InitialAccounts uint32
}

func NewWalletService(hdSvc *domain.HDWallet, accountRepo AccountStore, initialAccounts uint32) *WalletService {
	if initialAccounts == 0 {
		initialAccounts = 1
	}
	return &WalletService{
		HDWalletDomain:  hdSvc,
		AccountRepo:     accountRepo,
		InitialAccounts: initialAccounts,
	}
}

func (s *WalletService) Network() chain.Network {
	return s.HDWalletDomain.Network
}

// CreateWallet creates a wallet for userID with its first accounts. The
// mnemonic is only ever returned here.
func (s *WalletService) CreateWallet(ctx context.Context, userID, passphrase string) (*entity.HDWallet, string, []entity.Account, error) {
	wallet, mnemonic, err := s.HDWalletDomain.CreateWallet(ctx, userID, passphrase)
	if err != nil {
		return nil, "", nil, err
	}
	accounts, err := s.storeInitialAccounts(ctx, wallet, passphrase)
	if err != nil {
		s.discardWallet(ctx, wallet)
		return nil, "", nil, err
	}
	return wallet, mnemonic, accounts, nil
}

// ImportWallet seals mnemonic for userID and derives its first accounts.
func (s *WalletService) ImportWallet(ctx context.Context, userID, mnemonic, passphrase string) (*entity.HDWallet, []entity.Account, error) {
	wallet, err := s.HDWalletDomain.ImportWallet(ctx, userID, mnemonic, passphrase)
	if err != nil {
		return nil, nil, err
	}
	accounts, err := s.storeInitialAccounts(ctx, wallet, passphrase)
	if err != nil {
		s.discardWallet(ctx, wallet)
		return nil, nil, err
	}
	return wallet, accounts, nil
}

// discardWallet removes a wallet whose first accounts could not be stored so
// the user can create or import again.
func (s *WalletService) discardWallet(ctx context.Context, wallet *entity.HDWallet) {
	if err := s.HDWalletDomain.WalletRepo.DeleteByUserID(ctx, wallet.UserID); err != nil {
		log.WithError(err).WithField("wallet_id", wallet.ID).Error("failed to discard wallet without accounts")
		return
	}
	log.WithField("wallet_id", wallet.ID).Warn("discarded wallet without accounts")
}

func (s *WalletService) storeInitialAccounts(ctx context.Context, wallet *entity.HDWallet, passphrase string) ([]entity.Account, error) {
	seed, err := domain.DecryptSeed(wallet, passphrase)
	if err != nil {
		return nil, err
	}
	defer domain.ClearBytes(seed)

	return s.deriveAndStore(ctx, wallet.ID, seed, 0, s.InitialAccounts)
}

func (s *WalletService) deriveAndStore(ctx context.Context, walletID string, seed []byte, start, count uint32) ([]entity.Account, error) {
	accounts, err := domain.DeriveAccounts(seed, s.Network(), start, count)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].WalletID = walletID
	}
	if err := s.AccountRepo.CreateMany(ctx, accounts); err != nil {
		return nil, fmt.Errorf("failed to persist accounts: %w", err)
	}
	log.WithFields(log.Fields{
		"wallet_id": walletID,
		"start":     start,
		"count":     count,
	}).Info("accounts stored")
	return accounts, nil
}

// ListAccounts returns the accounts of the wallet of userID.
func (s *WalletService) ListAccounts(ctx context.Context, userID string) ([]entity.Account, error) {
	wallet, err := s.HDWalletDomain.WalletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, wrapErrors.New(wrapErrors.CodeWalletNotFound, "list accounts", userID)
	}
	return s.AccountRepo.ListByWallet(ctx, wallet.ID)
}

// DeriveNextAccount derives and stores the account after the highest stored
// index.
func (s *WalletService) DeriveNextAccount(ctx context.Context, userID, passphrase string) (*entity.Account, error) {
	wallet, seed, err := s.HDWalletDomain.LoadSeed(ctx, userID, passphrase)
	if err != nil {
		return nil, err
	}
	defer domain.ClearBytes(seed)

	// -1 when the wallet has no accounts yet, so the next index is 0
	maxIndex, err := s.AccountRepo.GetMaxIndex(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.deriveAndStore(ctx, wallet.ID, seed, uint32(maxIndex+1), 1)
	if err != nil {
		return nil, err
	}
	return &accounts[0], nil
}

// withSeed loads the wallet of userID, its accounts and its seed, runs fn
// and clears the seed.
func (s *WalletService) withSeed(ctx context.Context, userID, passphrase string, fn func(seed []byte, accounts []entity.Account) error) error {
	wallet, seed, err := s.HDWalletDomain.LoadSeed(ctx, userID, passphrase)
	if err != nil {
		return err
	}
	defer domain.ClearBytes(seed)

	accounts, err := s.AccountRepo.ListByWallet(ctx, wallet.ID)
	if err != nil {
		return err
	}
	return fn(seed, accounts)
}
