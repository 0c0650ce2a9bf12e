package model

import "github.com/ethereum/go-ethereum/common"

// PoolState is the persisted record of a single pool instance.
type PoolState struct {
	InstanceID    uint64         `json:"instance_id"`
	Address       common.Address `json:"address"`
	Administrator common.Address `json:"administrator"`
	AssetA        AssetID        `json:"asset_a"`
	AssetB        AssetID        `json:"asset_b"`
	PoolShare     AssetID        `json:"pool_share"`
	Ratio         uint64         `json:"ratio"`
	Bootstrapped  bool           `json:"bootstrapped"`
}
