package model

import "strings"

// Pool is a tracked pool contract with its token metadata.
type Pool struct {
	Address   string `json:"address"`
	Token0    string `json:"token0"`
	Token1    string `json:"token1"`
	Decimals0 uint8  `json:"decimals0"`
	Decimals1 uint8  `json:"decimals1"`
}

// NormalizeAddress lowercases a hex address so pool identity is case-insensitive.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
