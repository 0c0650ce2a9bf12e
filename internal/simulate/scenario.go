package simulate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/model"
)

// Scenario describes a ledger to build and an ordered list of pool actions
// to submit against one pool instance.
type Scenario struct {
	Name          string         `json:"name"`
	InstanceID    uint64         `json:"instance_id"`
	Administrator common.Address `json:"administrator"`
	// StartTime is the journal timestamp of the first step; zero means now.
	StartTime   uint64    `json:"start_time,omitempty"`
	StepSeconds uint64    `json:"step_seconds,omitempty"`
	Assets      []Asset   `json:"assets"`
	Balances    []Balance `json:"balances"`
	Steps       []Step    `json:"steps"`
}

// Asset is created on the ledger in list order, so the first asset gets
// id 1.
type Asset struct {
	Name     string         `json:"name"`
	UnitName string         `json:"unit_name"`
	Total    uint64         `json:"total"`
	Decimals uint8          `json:"decimals"`
	Reserve  common.Address `json:"reserve"`
}

// Balance moves amount of asset from its reserve to holder during setup.
// Asset 0 mints native currency instead.
type Balance struct {
	Holder common.Address `json:"holder"`
	Asset  model.AssetID  `json:"asset"`
	Amount uint64         `json:"amount"`
}

// Step is one pool action. Fields not used by the action are ignored.
type Step struct {
	Action           string         `json:"action"`
	Caller           common.Address `json:"caller"`
	Seed             uint64         `json:"seed,omitempty"`
	AssetA           model.AssetID  `json:"asset_a,omitempty"`
	AssetB           model.AssetID  `json:"asset_b,omitempty"`
	AmountA          uint64         `json:"amount_a,omitempty"`
	AmountB          uint64         `json:"amount_b,omitempty"`
	Asset            model.AssetID  `json:"asset,omitempty"`
	Amount           uint64         `json:"amount,omitempty"`
	NewAdministrator common.Address `json:"new_administrator"`
	// Expect is "ok" or an error kind such as "insufficient_output". Empty
	// means the step is expected to succeed.
	Expect string `json:"expect,omitempty"`
}

// LoadScenario reads a scenario from a JSON file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}
