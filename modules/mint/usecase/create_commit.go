package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/inscribe"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/ordforge/mint-engine/pkg/btcutils/psbtutils"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type CreateCommitParams struct {
	OrdinalIds       []int64
	MinterAddress    string
	PaymentAddress   string
	PaymentPubKey    string
	ReceivingAddress string // defaults to MinterAddress
	FeeRate          decimal.Decimal
}

type CreateCommitResult struct {
	Session      *entity.MintSession
	Inscriptions []*entity.MintInscription

	// CommitPSBT is the unsigned commit PSBT, base64.
	CommitPSBT string
}

// CreateCommit builds the unsigned commit PSBT for a batch of ordinals and
// opens a mint session around it. The selected funding UTXOs are reserved for
// the session's lifetime so concurrent sessions can't double-spend them.
func (u *Usecase) CreateCommit(ctx context.Context, params CreateCommitParams) (*CreateCommitResult, error) {
	if len(params.OrdinalIds) == 0 {
		return nil, errors.Wrap(errs.ArgumentRequired, "at least one ordinal id is required")
	}
	if len(params.OrdinalIds) > inscribe.MaxBatchSize {
		return nil, errs.WithPublicMessage(
			errors.Wrapf(errs.InvalidArgument, "batch size %d exceeds maximum of %d", len(params.OrdinalIds), inscribe.MaxBatchSize),
			"",
		)
	}
	if !params.FeeRate.IsPositive() {
		return nil, errors.Wrap(errs.InvalidArgument, "fee rate must be positive")
	}
	if params.ReceivingAddress == "" {
		params.ReceivingAddress = params.MinterAddress
	}
	chainParams := u.config.Network.ChainParams()
	paymentAddress, err := btcutils.SafeNewAddress(params.PaymentAddress, chainParams)
	if err != nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid payment address: %s", err)
	}
	if _, err := btcutils.SafeNewAddress(params.MinterAddress, chainParams); err != nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid minter address: %s", err)
	}
	receivingAddress, err := btcutils.SafeNewAddress(params.ReceivingAddress, chainParams)
	if err != nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid receiving address: %s", err)
	}
	if receivingAddress.Type() != btcutils.AddressP2TR {
		return nil, errors.Wrap(errs.InvalidArgument, "receiving address must be taproot")
	}

	ordinalList, err := u.mintDg.GetOrdinalsByIds(ctx, params.OrdinalIds)
	if err != nil {
		return nil, errors.Wrap(err, "can't get ordinals")
	}

	items := make([]*inscribe.CommitItem, 0, len(ordinalList))
	for _, ordinal := range ordinalList {
		payload, err := u.payloads.Get(ctx, ordinal.ArtifactKey)
		if err != nil {
			return nil, errors.Wrapf(err, "can't get payload for ordinal %d", ordinal.Id)
		}
		item, err := inscribe.NewCommitItem(inscribe.InscriptionData{
			OrdinalId:   ordinal.Id,
			ContentType: ordinal.ContentType,
			Payload:     payload,
		}, params.FeeRate)
		if err != nil {
			return nil, errors.Wrapf(err, "ordinal %d", ordinal.Id)
		}
		items = append(items, item)
	}

	candidates, err := u.fundingCandidates(ctx, params.PaymentAddress)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	commit, err := inscribe.BuildCommitPSBT(items, candidates, paymentAddress, params.FeeRate)
	if err != nil {
		var insufficientErr *entity.InsufficientFundsError
		if errors.As(err, &insufficientErr) {
			return nil, errs.WithPublicMessage(err, "")
		}
		return nil, errors.Wrap(err, "can't build commit psbt")
	}

	psbtBase64, err := psbtutils.EncodeToString(commit.Packet, psbtutils.EncodingBase64)
	if err != nil {
		return nil, errors.Wrap(err, "can't encode commit psbt")
	}

	now := u.now()
	session := &entity.MintSession{
		Id:               uuid.New(),
		Status:           entity.MintSessionStatusPendingSignature,
		MinterAddress:    params.MinterAddress,
		PaymentAddress:   params.PaymentAddress,
		PaymentPubKey:    params.PaymentPubKey,
		ReceivingAddress: params.ReceivingAddress,
		FeeRate:          params.FeeRate,
		CommitPSBT:       psbtBase64,
		CommitFee:        commit.Fee,
		TotalRevealFee:   lo.SumBy(items, func(item *inscribe.CommitItem) int64 { return item.RevealFee }),
		TotalPostage:     inscribe.Postage * int64(len(items)),
		CreatedAt:        now,
		UpdatedAt:        now,
		ExpiresAt:        now.Add(u.config.SessionTTL),
	}
	inscriptions := make([]*entity.MintInscription, 0, len(items))
	for i, item := range items {
		inscriptions = append(inscriptions, &entity.MintInscription{
			Id:               uuid.New(),
			SessionId:        session.Id,
			OrdinalId:        item.OrdinalId,
			ContentType:      item.ContentType,
			PayloadSize:      item.PayloadSize,
			RevealPrivateKey: item.PrivateKey.Serialize(),
			LeafScript:       item.LeafScript,
			CommitVout:       uint32(i),
			CommitValue:      item.Value,
			Status:           entity.MintInscriptionStatusPending,
		})
	}
	reservations := lo.Map(commit.Selected, func(utxo entity.UTXO, _ int) *entity.ReservedUTXO {
		return &entity.ReservedUTXO{
			SessionId:  session.Id,
			TxId:       utxo.TxId,
			Vout:       utxo.Vout,
			Value:      utxo.Value,
			ReservedAt: now,
			ExpiresAt:  session.ExpiresAt,
		}
	})

	mintDgTx, err := u.mintDg.BeginMintTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't begin transaction")
	}
	defer func() {
		if err := mintDgTx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback transaction", slogx.Error(err))
		}
	}()
	if err := mintDgTx.CreateMintSession(ctx, session); err != nil {
		return nil, errors.Wrap(err, "can't create mint session")
	}
	if err := mintDgTx.CreateMintInscriptions(ctx, inscriptions); err != nil {
		return nil, errors.Wrap(err, "can't create mint inscriptions")
	}
	if err := mintDgTx.ReserveUTXOs(ctx, reservations); err != nil {
		return nil, errors.Wrap(err, "can't reserve utxos")
	}
	if err := mintDgTx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "can't commit transaction")
	}

	logger.InfoContext(ctx, "created mint session",
		slogx.Stringer("sessionId", session.Id),
		slogx.Int("items", len(items)),
		slogx.Int("fundingUtxos", len(commit.Selected)),
		slogx.Int64("commitFee", commit.Fee),
	)
	return &CreateCommitResult{
		Session:      session,
		Inscriptions: inscriptions,
		CommitPSBT:   psbtBase64,
	}, nil
}

// fundingCandidates returns the payment address' confirmed UTXOs that are not
// reserved by another live session.
func (u *Usecase) fundingCandidates(ctx context.Context, paymentAddress string) ([]entity.UTXO, error) {
	utxos, err := u.bitcoin.AddressUTXOs(ctx, paymentAddress)
	if err != nil {
		return nil, errors.Wrap(err, "can't fetch payment address utxos")
	}
	reserved, err := u.mintDg.GetLiveReservedOutpoints(ctx, uuid.Nil, u.now())
	if err != nil {
		return nil, errors.Wrap(err, "can't get reserved outpoints")
	}
	reservedSet := lo.SliceToMap(reserved, func(outpoint string) (string, struct{}) { return outpoint, struct{}{} })

	candidates := make([]entity.UTXO, 0, len(utxos))
	for _, utxo := range utxos {
		if !utxo.Status.Confirmed {
			continue
		}
		candidate := entity.UTXO{
			TxId:      utxo.TxID,
			Vout:      utxo.Vout,
			Value:     utxo.Value,
			Confirmed: true,
		}
		if _, ok := reservedSet[candidate.Outpoint()]; ok {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
