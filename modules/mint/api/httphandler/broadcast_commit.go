package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/usecase"
)

type broadcastCommitRequest struct {
	SessionId        uuid.UUID `json:"session_id"`
	SignedPSBTBase64 string    `json:"signed_psbt_base64"`
	SignedPSBTHex    string    `json:"signed_psbt_hex"`
	TxHex            string    `json:"tx_hex"`
}

func (r broadcastCommitRequest) Validate() error {
	var errList []error
	if r.SessionId == uuid.Nil {
		errList = append(errList, errors.New("'session_id' is required"))
	}
	if r.SignedPSBTBase64 == "" && r.SignedPSBTHex == "" && r.TxHex == "" {
		errList = append(errList, errors.New("one of 'signed_psbt_base64', 'signed_psbt_hex', 'tx_hex' is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type broadcastCommitResult struct {
	SessionId  uuid.UUID   `json:"sessionId"`
	CommitTxId string      `json:"commitTxId"`
	Session    mintSession `json:"session"`
}

type broadcastCommitResponse = HttpResponse[broadcastCommitResult]

func (h *HttpHandler) BroadcastCommit(ctx *fiber.Ctx) (err error) {
	var req broadcastCommitRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	signedPSBT := req.SignedPSBTBase64
	if signedPSBT == "" {
		signedPSBT = req.SignedPSBTHex
	}
	result, err := h.usecase.BroadcastCommit(ctx.UserContext(), usecase.BroadcastCommitParams{
		SessionId:  req.SessionId,
		SignedPSBT: signedPSBT,
		TxHex:      req.TxHex,
	})
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("mint session not found")
		}
		return errors.Wrap(err, "error during BroadcastCommit")
	}

	resp := broadcastCommitResponse{
		Result: &broadcastCommitResult{
			SessionId:  result.Session.Id,
			CommitTxId: result.CommitTxId,
			Session:    mapMintSessionToResponse(result.Session),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
