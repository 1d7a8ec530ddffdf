package domain

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/pbkdf2"

	"github.com/linlinbupt123-crypto/bip322_aa/chain"
	"github.com/linlinbupt123-crypto/bip322_aa/entity"
	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

// KDF metadata is stored in HDWallet.SaltHex as "pbkdf2$<iterations>$<hexsalt>".
// The seed and mnemonic are sealed with AES-256-GCM under a PBKDF2-SHA256 key.
const (
	kdfLabel      = "pbkdf2"
	kdfIterations = 310_000
	mnemonicBits  = 256
)

var ErrWrongPassphrase = errors.New("incorrect passphrase or corrupted data")

// ---------- Helpers ----------

// ClearBytes zeroes b in place.
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// kdfKey derives a 32-byte AES key from passphrase+salt. The caller must clear it.
func kdfKey(passphrase string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha256.New)
}

// encrypt returns nonce|ciphertext
func encrypt(data []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

// decrypt expects nonce|ciphertext
func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	plain, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}

func encodeSaltMeta(salt []byte, iterations int) string {
	return fmt.Sprintf("%s$%d$%s", kdfLabel, iterations, hex.EncodeToString(salt))
}

func decodeSaltMeta(meta string) ([]byte, int, error) {
	parts := strings.Split(meta, "$")
	if len(parts) != 3 {
		return nil, 0, errors.New("invalid salt metadata format")
	}
	if parts[0] != kdfLabel {
		return nil, 0, errors.New("unsupported kdf")
	}
	iter, err := strconv.Atoi(parts[1])
	if err != nil || iter <= 0 {
		return nil, 0, errors.New("invalid kdf iterations")
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, 0, errors.New("invalid salt hex")
	}
	return salt, iter, nil
}

// SealWallet turns a mnemonic into a wallet record whose seed and mnemonic
// are encrypted under passphrase. Nothing is persisted.
func SealWallet(userID, mnemonic, passphrase string, net chain.Network) (*entity.HDWallet, error) {
	seed, err := MnemonicToSeed(mnemonic, "")
	if err != nil {
		return nil, err
	}
	defer ClearBytes(seed)

	master, err := hdkeychain.NewMaster(seed, net.Params())
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	xpub, err := master.Neuter()
	master.Zero()
	if err != nil {
		return nil, fmt.Errorf("failed to neuter master key: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	key := kdfKey(passphrase, salt, kdfIterations)
	defer ClearBytes(key)

	encSeed, err := encrypt(seed, key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt seed: %w", err)
	}
	mnemonicBytes := []byte(mnemonic)
	encMnemonic, err := encrypt(mnemonicBytes, key)
	ClearBytes(mnemonicBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt mnemonic: %w", err)
	}

	return &entity.HDWallet{
		UserID:            userID,
		Network:           net.Name,
		MnemonicEncrypted: encMnemonic,
		EncryptedSeed:     encSeed,
		XPub:              xpub.String(),
		SaltHex:           encodeSaltMeta(salt, kdfIterations),
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// DecryptSeed returns the plain seed of wallet. The caller must clear it.
func DecryptSeed(wallet *entity.HDWallet, passphrase string) ([]byte, error) {
	if wallet == nil {
		return nil, errors.New("wallet is nil")
	}
	salt, iterations, err := decodeSaltMeta(wallet.SaltHex)
	if err != nil {
		return nil, fmt.Errorf("invalid salt metadata: %w", err)
	}
	key := kdfKey(passphrase, salt, iterations)
	defer ClearBytes(key)

	seed, err := decrypt(wallet.EncryptedSeed, key)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return seed, nil
}

// ---------- Wallet custody ----------

type WalletStore interface {
	Create(ctx context.Context, w *entity.HDWallet) (string, error)
	GetByUserID(ctx context.Context, userID string) (*entity.HDWallet, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

type HDWallet struct {
	WalletRepo WalletStore
	Network    chain.Network
}

func NewHDWallet(repo WalletStore, net chain.Network) *HDWallet {
	return &HDWallet{WalletRepo: repo, Network: net}
}

// CreateWallet generates a 24-word mnemonic, seals and persists it. The
// mnemonic is returned once so the user can back it up.
func (s *HDWallet) CreateWallet(ctx context.Context, userID, passphrase string) (*entity.HDWallet, string, error) {
	mnemonic, err := GenerateMnemonic(mnemonicBits)
	if err != nil {
		return nil, "", err
	}
	wallet, err := s.ImportWallet(ctx, userID, mnemonic, passphrase)
	if err != nil {
		return nil, "", err
	}
	return wallet, mnemonic, nil
}

// ImportWallet seals an existing mnemonic and persists it.
func (s *HDWallet) ImportWallet(ctx context.Context, userID, mnemonic, passphrase string) (*entity.HDWallet, error) {
	wallet, err := SealWallet(userID, mnemonic, passphrase, s.Network)
	if err != nil {
		return nil, err
	}
	id, err := s.WalletRepo.Create(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to persist wallet: %w", err)
	}
	wallet.ID = id
	log.WithFields(log.Fields{"user_id": userID, "wallet_id": id}).Info("wallet stored")
	return wallet, nil
}

// LoadSeed returns the wallet of userID with its decrypted seed. The caller
// must clear the seed.
func (s *HDWallet) LoadSeed(ctx context.Context, userID, passphrase string) (*entity.HDWallet, []byte, error) {
	wallet, err := s.WalletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if wallet == nil {
		return nil, nil, wrapErrors.New(wrapErrors.CodeWalletNotFound, "load wallet", userID)
	}
	seed, err := DecryptSeed(wallet, passphrase)
	if err != nil {
		return nil, nil, err
	}
	return wallet, seed, nil
}

// VerifyPassphrase reports whether passphrase opens the wallet of userID.
func (s *HDWallet) VerifyPassphrase(ctx context.Context, userID string, passphrase string) (bool, error) {
	_, seed, err := s.LoadSeed(ctx, userID, passphrase)
	if errors.Is(err, ErrWrongPassphrase) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ClearBytes(seed)
	return true, nil
}
