package types

const (
	FlagHome      = "home"
	FlagChainID   = "chain-id"
	FlagOverwrite = "overwrite"
	FlagFounder   = "founder"
	FlagOutput    = "output"
)
