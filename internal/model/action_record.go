package model

import "encoding/json"

// Action names as they appear in journals and scenarios.
const (
	ActionBootstrap        = "bootstrap"
	ActionMint             = "mint"
	ActionBurn             = "burn"
	ActionSwap             = "swap"
	ActionSetAdministrator = "set_administrator"
)

// ActionRecord is the journal entry written for every submitted action.
type ActionRecord struct {
	Pool       string             `json:"pool"`
	Sequence   uint64             `json:"sequence"`
	Action     string             `json:"action"`
	Caller     string             `json:"caller"`
	Deposits   []TransferEvidence `json:"deposits,omitempty"`
	AssetOut   []AssetID          `json:"asset_out,omitempty"`
	AmountOut  []uint64           `json:"amount_out,omitempty"`
	Ratio      uint64             `json:"ratio"`
	ReserveA   uint64             `json:"reserve_a"`
	ReserveB   uint64             `json:"reserve_b"`
	OK         bool               `json:"ok"`
	Error      string             `json:"error,omitempty"`
	Timestamp  uint64             `json:"timestamp"`
	RecordedAt string             `json:"recorded_at"`
}

// MarshalJSON ensures ActionRecord is encoded with stable field names.
func (r ActionRecord) MarshalJSON() ([]byte, error) {
	type Alias ActionRecord
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes an ActionRecord from JSON.
func (r *ActionRecord) UnmarshalJSON(data []byte) error {
	type Alias ActionRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = ActionRecord(a)
	return nil
}
