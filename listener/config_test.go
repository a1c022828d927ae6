package listener

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigMissingRequired(t *testing.T) {
	_, err := LoadConfig(envMap(map[string]string{"RPC_WSS_URL": "wss://rpc"}))
	require.ErrorIs(t, err, ErrMissingConfig)
	assert.Contains(t, err.Error(), "RPC_HTTP_URL")
	assert.Contains(t, err.Error(), "DISCORD_WEBHOOK_URL")
	assert.NotContains(t, err.Error(), "RPC_WSS_URL")
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(envMap(map[string]string{
		"RPC_WSS_URL":         "wss://rpc",
		"RPC_HTTP_URL":        "https://rpc",
		"DISCORD_WEBHOOK_URL": `"https://discord.test/hook"`,
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://discord.test/hook", cfg.WebhookURL)
	assert.True(t, cfg.UseEmbeds)
	assert.Equal(t, 0, cfg.NotifsPerMinute)
	assert.Equal(t, 6*time.Second, cfg.APITimeout)
	assert.Equal(t, time.Hour, cfg.DedupTTL)
	assert.Equal(t, defaultAPIBase, cfg.APIBase)
	assert.Equal(t, defaultTokenPage, cfg.TokenPagePrefix)
	assert.Equal(t, "0.0.0.0", cfg.APIHost)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Empty(t, cfg.WatchWallets)
	assert.False(t, cfg.Debug)
}

func TestLoadConfigOptions(t *testing.T) {
	w1 := "0x1111111111111111111111111111111111111111"
	w2 := "0x2222222222222222222222222222222222222222"
	cfg, err := LoadConfig(envMap(map[string]string{
		"RPC_WSS_URL":               "wss://rpc",
		"RPC_HTTP_URL":              "https://rpc",
		"DISCORD_WEBHOOK_URL":       "https://discord.test/hook",
		"WATCH_WALLETS":             w1 + ", not-an-address ," + w2 + "," + w1,
		"WALLET_LABELS":             w1 + "=whale;broken;" + w2 + "=",
		"ADDR_LABELS":               w2 + "=nad.fun pool",
		"USE_EMBEDS":                "false",
		"RATE_LIMIT_NOTIFS_PER_MIN": "5",
		"DEDUP_TTL_MINUTES":         "0",
		"API_TIMEOUT_SECONDS":       "abc",
		"DEBUG_MODE":                "TRUE",
	}))
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress(w1), common.HexToAddress(w2)}, cfg.WatchWallets)
	assert.Equal(t, map[common.Address]string{common.HexToAddress(w1): "whale"}, cfg.WalletNames)
	assert.Equal(t, "nad.fun pool", cfg.AddrLabels[common.HexToAddress(w2)])
	assert.False(t, cfg.UseEmbeds)
	assert.Equal(t, 5, cfg.NotifsPerMinute)
	assert.Equal(t, time.Duration(0), cfg.DedupTTL)
	assert.Equal(t, 6*time.Second, cfg.APITimeout)
	assert.True(t, cfg.Debug)
}
