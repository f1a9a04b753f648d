package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/ordforge/mint-engine/internal/postgres"
	"github.com/ordforge/mint-engine/modules/mint/datagateway"
)

var _ datagateway.MintDataGateway = (*Repository)(nil)

type Repository struct {
	db postgres.DB
	tx pgx.Tx
}

func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

// conn returns the active transaction if one is open, the pool otherwise.
func (r *Repository) conn() postgres.Queryable {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}
