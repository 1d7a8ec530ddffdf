package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/linlinbupt123-crypto/bip322_aa/request"
	"github.com/linlinbupt123-crypto/bip322_aa/service"
	"github.com/linlinbupt123-crypto/bip322_aa/userop"
)

type UserOpHandler struct {
	userOpService *service.UserOpService
}

func NewUserOpHandler(us *service.UserOpService) *UserOpHandler {
	return &UserOpHandler{userOpService: us}
}

// FillUserOperation returns the filled operation in packed form with the
// hash and the message to sign.
func (h *UserOpHandler) FillUserOperation(c *gin.Context) {
	var req request.UserOperationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	op, hash, message, err := h.userOpService.HashUserOperation(c.Request.Context(), req.ToPartial())
	if err != nil {
		abortWithError(c, err)
		return
	}
	packed, err := userop.Pack(op)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userOp":  packed,
		"hash":    hash.Hex(),
		"message": message,
	})
}

func (h *UserOpHandler) SignUserOperation(c *gin.Context) {
	var req request.SignUserOperationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	signed, err := h.userOpService.SignUserOperation(
		c.Request.Context(),
		c.Param("userID"),
		req.Passphrase,
		req.Address,
		req.UserOp.ToPartial(),
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userOp":    signed.Packed,
		"hash":      signed.Hash.Hex(),
		"message":   signed.Message,
		"signature": signed.Signature,
	})
}

func (h *UserOpHandler) SignMessage(c *gin.Context) {
	var req request.SignMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	signature, err := h.userOpService.SignMessage(c.Request.Context(), c.Param("userID"), req.Passphrase, req.Address, req.Message)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signature": signature})
}

func (h *UserOpHandler) VerifyMessage(c *gin.Context) {
	var req request.VerifyMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.userOpService.VerifyMessage(req.Address, req.Message, req.Signature); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *UserOpHandler) EVMPublicKey(c *gin.Context) {
	var req request.EVMPublicKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	key, typ, err := h.userOpService.EVMPublicKey(req.Address, req.PublicKey)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address_type": typ.String(),
		"public_key":   key,
	})
}

// Register mounts every route on r.
func Register(r gin.IRouter, wallets *WalletHandler, ops *UserOpHandler) {
	r.POST("/wallet/:userID", wallets.CreateWallet)
	r.POST("/wallet/:userID/import", wallets.ImportWallet)
	r.GET("/wallet/:userID/accounts", wallets.GetAccounts)
	r.POST("/wallet/:userID/account/new", wallets.DeriveAccount)

	r.POST("/wallet/:userID/userop/sign", ops.SignUserOperation)
	r.POST("/wallet/:userID/message/sign", ops.SignMessage)

	r.POST("/userop/fill", ops.FillUserOperation)
	r.POST("/message/verify", ops.VerifyMessage)
	r.POST("/evm-public-key", ops.EVMPublicKey)
}
