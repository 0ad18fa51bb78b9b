package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, uint64(200_000), cfg.BackfillWindow)
	require.Equal(t, uint64(5_000), cfg.ChunkWidth)
	require.Equal(t, 4, cfg.MaxConcurrent)
	require.Equal(t, 5, cfg.MaxRetries)
	require.Equal(t, time.Second, cfg.RetryBackoff)
	require.Equal(t, 30*time.Second, cfg.RateLimitCooldown)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.StringSlice("pool", nil, "")
	flags.Uint64("chunk-width", 5_000, "")
	require.NoError(t, flags.Parse([]string{
		"--rpc", "https://mainnet.base.org",
		"--pool", "0xabc,0xdef",
		"--chunk-width", "1000",
	}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	require.Equal(t, "https://mainnet.base.org", cfg.RPCURL)
	require.Equal(t, []string{"0xabc", "0xdef"}, cfg.Pools)
	require.Equal(t, uint64(1_000), cfg.ChunkWidth)
}

func TestLoadPoolsFromEnv(t *testing.T) {
	t.Setenv("POOLWATCH_POOL", "0x111, 0x222,,")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"0x111", "0x222"}, cfg.Pools)
}

func TestValidate(t *testing.T) {
	cfg := Config{RPCURL: "https://rpc", Pools: []string{"0x1"}, ChunkWidth: 100}
	require.NoError(t, cfg.Validate())

	require.Error(t, Config{Pools: []string{"0x1"}, ChunkWidth: 100}.Validate())
	require.Error(t, Config{RPCURL: "https://rpc", ChunkWidth: 100}.Validate())
	require.Error(t, Config{RPCURL: "https://rpc", Pools: []string{"0x1"}}.Validate())
}
