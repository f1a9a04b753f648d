package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/mint/inscribe"
	"github.com/ordforge/mint-engine/modules/mint/internal/entity"
	"github.com/ordforge/mint-engine/pkg/btcutils"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type EstimateCostParams struct {
	// Exactly one of OrdinalIds and Items must be provided.
	OrdinalIds []int64
	Items      []inscribe.ItemSpec

	FeeRate        decimal.Decimal
	PaymentAddress string // optional, defaults to a P2WPKH-sized input
	InputCount     int
}

// EstimateCost previews the full cost of minting either concrete ordinals or
// caller-described payload shapes.
func (u *Usecase) EstimateCost(ctx context.Context, params EstimateCostParams) (entity.CostEstimate, error) {
	if len(params.OrdinalIds) > 0 && len(params.Items) > 0 {
		return entity.CostEstimate{}, errors.Wrap(errs.InvalidArgument, "ordinal ids and payload specs are mutually exclusive")
	}

	items := params.Items
	if len(params.OrdinalIds) > 0 {
		ordinalList, err := u.mintDg.GetOrdinalsByIds(ctx, params.OrdinalIds)
		if err != nil {
			return entity.CostEstimate{}, errors.Wrap(err, "can't get ordinals")
		}
		items = lo.Map(ordinalList, func(ordinal *entity.Ordinal, _ int) inscribe.ItemSpec {
			return inscribe.ItemSpec{
				ContentType: ordinal.ContentType,
				PayloadSize: ordinal.PayloadSize,
			}
		})
	}

	paymentAddrType := btcutils.AddressP2WPKH
	if params.PaymentAddress != "" {
		address, err := btcutils.SafeNewAddress(params.PaymentAddress, u.config.Network.ChainParams())
		if err != nil {
			return entity.CostEstimate{}, errors.Wrapf(errs.InvalidArgument, "invalid payment address: %s", err)
		}
		paymentAddrType = address.Type()
	}

	estimate, err := inscribe.EstimateCost(items, params.FeeRate, paymentAddrType, params.InputCount)
	if err != nil {
		return entity.CostEstimate{}, errs.WithPublicMessage(err, "")
	}
	return estimate, nil
}
