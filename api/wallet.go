package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linlinbupt123-crypto/bip322_aa/request"
	"github.com/linlinbupt123-crypto/bip322_aa/service"
)

type WalletHandler struct {
	walletService *service.WalletService
}

func NewWalletHandler(ws *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: ws}
}

// CreateWallet, create HD wallet and its first accounts
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	userID := c.Param("userID")
	var req request.CreateWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	wallet, mnemonic, accounts, err := h.walletService.CreateWallet(c.Request.Context(), userID, req.Passphrase)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":   wallet,
		"mnemonic": mnemonic,
		"accounts": accounts,
	})
}

// ImportWallet, seal an existing mnemonic
func (h *WalletHandler) ImportWallet(c *gin.Context) {
	userID := c.Param("userID")
	var req request.ImportWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	wallet, accounts, err := h.walletService.ImportWallet(c.Request.Context(), userID, req.Mnemonic, req.Passphrase)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet":   wallet,
		"accounts": accounts,
	})
}

// GetAccounts, get all accounts of a user
func (h *WalletHandler) GetAccounts(c *gin.Context) {
	accounts, err := h.walletService.ListAccounts(c.Request.Context(), c.Param("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// DeriveAccount, derive the next account
func (h *WalletHandler) DeriveAccount(c *gin.Context) {
	var req request.DeriveAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.walletService.DeriveNextAccount(c.Request.Context(), c.Param("userID"), req.Passphrase)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
