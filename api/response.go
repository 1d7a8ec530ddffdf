package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/linlinbupt123-crypto/bip322_aa/domain"
	wrapErrors "github.com/linlinbupt123-crypto/bip322_aa/errors"
)

func statusOf(err error) int {
	if errors.Is(err, domain.ErrWrongPassphrase) {
		return http.StatusUnauthorized
	}
	switch wrapErrors.CodeOf(err) {
	case wrapErrors.CodeInvalidAddress,
		wrapErrors.CodeUnsupportedAddressType,
		wrapErrors.CodeEmptyAccountList,
		wrapErrors.CodeInvalidSignature,
		wrapErrors.CodeEmptyWitness,
		wrapErrors.CodeInvalidUserOperation,
		wrapErrors.CodeNonceUnavailable,
		wrapErrors.CodeInvalidRequest:
		return http.StatusBadRequest
	case wrapErrors.CodeAddressNotFound, wrapErrors.CodeWalletNotFound:
		return http.StatusNotFound
	}
	if wrapErrors.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"error": err.Error()}
	if code := wrapErrors.CodeOf(err); code != "" {
		body["code"] = code
	}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": wrapErrors.CodeInvalidRequest})
}
