package model

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AssetID identifies a fungible asset on the host ledger.
type AssetID uint64

// NativeAsset is the host's native currency, used to fund pool accounts.
const NativeAsset AssetID = 0

// AssetParams describes a fungible asset to be created on the ledger.
type AssetParams struct {
	Total    uint64         `json:"total"`
	Decimals uint8          `json:"decimals"`
	Manager  common.Address `json:"manager"`
	Reserve  common.Address `json:"reserve"`
	Name     string         `json:"name"`
	UnitName string         `json:"unit_name"`
}

// PoolAddress derives the account of a deployed pool instance.
func PoolAddress(instanceID uint64) common.Address {
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], instanceID)
	return common.BytesToAddress(crypto.Keccak256([]byte("appID"), id[:])[12:])
}
