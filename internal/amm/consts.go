package amm

const (
	// TotalShareSupply is minted once at bootstrap; shares in circulation are
	// TotalShareSupply minus the pool's own share holding.
	TotalShareSupply uint64 = 10_000_000_000
	// Scale is the fixed-point denominator for rates and ratios.
	Scale uint64 = 1000
	// FeeNum is the swap fee as a fraction of Scale (0.5%).
	FeeNum uint64 = 5
	// MinSeedFunding covers share asset creation and the two opt-ins.
	MinSeedFunding uint64 = 300_000

	ShareUnitName = "dpt"
	ShareDecimals = 3
	sharePrefix   = "DPT-"
)
