package httphandler

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ordforge/mint-engine/pkg/bip322"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
)

const (
	headerWalletAddress   = "X-Wallet-Address"
	headerWalletMessage   = "X-Wallet-Message"
	headerWalletSignature = "X-Wallet-Signature"
)

func (h *HttpHandler) requireCronSecret(ctx *fiber.Ctx) error {
	if !h.cronSecretValid(ctx) {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return ctx.Next()
}

// requireCronSecretOrAdminSignature lets operators trigger a pass manually by
// signing the request message with the admin wallet, in addition to the
// scheduler's bearer secret.
func (h *HttpHandler) requireCronSecretOrAdminSignature(ctx *fiber.Ctx) error {
	if h.cronSecretValid(ctx) || h.adminSignatureValid(ctx) {
		return ctx.Next()
	}
	return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
}

func (h *HttpHandler) requireCallbackToken(ctx *fiber.Ctx) error {
	if h.config.VideoCallbackToken == "" ||
		subtle.ConstantTimeCompare([]byte(ctx.Query("token")), []byte(h.config.VideoCallbackToken)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return ctx.Next()
}

func (h *HttpHandler) cronSecretValid(ctx *fiber.Ctx) bool {
	if h.config.CronSecret == "" {
		return false
	}
	token := strings.TrimPrefix(ctx.Get(fiber.HeaderAuthorization), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.config.CronSecret)) == 1
}

func (h *HttpHandler) adminSignatureValid(ctx *fiber.Ctx) bool {
	if h.config.AdminWalletAddress == "" {
		return false
	}
	addressStr := ctx.Get(headerWalletAddress)
	message := ctx.Get(headerWalletMessage)
	signatureStr := ctx.Get(headerWalletSignature)
	if addressStr != h.config.AdminWalletAddress || message == "" || signatureStr == "" {
		return false
	}

	address, err := btcutils.SafeNewAddress(addressStr, h.config.Network.ChainParams())
	if err != nil {
		logger.WarnContext(ctx.UserContext(), "invalid admin wallet address on cron trigger", slogx.Error(err))
		return false
	}
	signature, err := base64.StdEncoding.DecodeString(signatureStr)
	if err != nil {
		return false
	}
	return bip322.VerifyMessage(&address, signature, message)
}
