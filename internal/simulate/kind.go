package simulate

import (
	"errors"

	"cpamm/internal/amm"
	"cpamm/internal/ledger"
)

const kindOK = "ok"

// kinds is ordered so that specific errors match before the errors they wrap.
var kinds = []struct {
	err  error
	name string
}{
	{amm.ErrAlreadyBootstrapped, "already_bootstrapped"},
	{amm.ErrNotBootstrapped, "not_bootstrapped"},
	{amm.ErrInvalidState, "invalid_state"},
	{amm.ErrNotAuthorized, "not_authorized"},
	{amm.ErrAssetMismatch, "asset_mismatch"},
	{amm.ErrZeroAmountDeposit, "zero_amount_deposit"},
	{amm.ErrSenderMismatch, "sender_mismatch"},
	{amm.ErrReceiverMismatch, "receiver_mismatch"},
	{amm.ErrDepositNotLanded, "deposit_not_landed"},
	{amm.ErrBalanceUnavailable, "balance_unavailable"},
	{amm.ErrAssetUnavailable, "asset_unavailable"},
	{amm.ErrRedemptionExceedsCirculation, "redemption_exceeds_circulation"},
	{amm.ErrInsufficientSeedFunding, "insufficient_seed_funding"},
	{amm.ErrInvalidAssetOrdering, "invalid_asset_ordering"},
	{amm.ErrEmptyReserves, "empty_reserves"},
	{amm.ErrInsufficientOutput, "insufficient_output"},
	{amm.ErrInsufficientPoolBalance, "insufficient_pool_balance"},
	{amm.ErrArithmeticOverflow, "arithmetic_overflow"},
	{amm.ErrDivisionByZero, "division_by_zero"},
	{ledger.ErrNotOptedIn, "not_opted_in"},
	{ledger.ErrInsufficientBalance, "insufficient_balance"},
	{ledger.ErrUnknownAsset, "unknown_asset"},
	{errUnknownAction, "unknown_action"},
}

// ErrorKind names the failure class of an action error.
func ErrorKind(err error) string {
	if err == nil {
		return kindOK
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "error"
}
