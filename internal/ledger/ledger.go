// Package ledger defines the host ledger the pool engine issues requests to,
// and an in-memory implementation with atomic units.
package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/model"
)

var (
	ErrUnavailable         = errors.New("unavailable")
	ErrNotOptedIn          = errors.New("holder not opted in to asset")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownAsset        = errors.New("unknown asset")
)

// Gateway is the set of ledger requests a pool may issue. All requests made
// within one atomic unit land together or not at all.
type Gateway interface {
	CreateAsset(ctx context.Context, params model.AssetParams) (model.AssetID, error)
	OptIn(ctx context.Context, holder common.Address, asset model.AssetID) error
	Balance(ctx context.Context, holder common.Address, asset model.AssetID) (uint64, error)
	Transfer(ctx context.Context, asset model.AssetID, from, to common.Address, amount uint64) error
	UnitName(ctx context.Context, asset model.AssetID) (string, error)
	// Deposits returns the transfers applied as deposits by the atomic unit
	// currently executing, or nil outside a unit.
	Deposits(ctx context.Context) []model.TransferEvidence
}
