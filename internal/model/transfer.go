package model

import "github.com/ethereum/go-ethereum/common"

// TransferEvidence is a caller-supplied record of a deposit that landed in
// the same atomic unit as the pool call.
type TransferEvidence struct {
	Asset    AssetID        `json:"asset"`
	Amount   uint64         `json:"amount"`
	Sender   common.Address `json:"sender"`
	Receiver common.Address `json:"receiver"`
}
