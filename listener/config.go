package listener

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMissingConfig zorunlu ayarlardan biri boşsa döner.
var ErrMissingConfig = errors.New("zorunlu ayar eksik")

const (
	defaultExplorerTx   = "https://testnet.monadexplorer.com/tx/"
	defaultExplorerAddr = "https://testnet.monadexplorer.com/address/"
	defaultAPIBase      = "https://testnet-v3-api.nad.fun/"
	defaultTokenPage    = "https://testnet.nad.fun/tokens/"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	RPCWSSURL  string
	RPCHTTPURL string
	WebhookURL string
	RoleID     string

	WatchWallets []common.Address
	WalletNames  map[common.Address]string
	AddrLabels   map[common.Address]string

	ExplorerTxPrefix   string
	ExplorerAddrPrefix string
	APIBase            string
	TokenPagePrefix    string

	UseEmbeds       bool
	NotifsPerMinute int
	APITimeout      time.Duration
	DedupTTL        time.Duration

	APIHost       string
	APIPort       string
	LogWebhookURL string
	Debug         bool
}

// LoadConfigFromEnv ortam değişkenlerinden Config oluşturur
func LoadConfigFromEnv() (*Config, error) {
	return LoadConfig(os.Getenv)
}

// LoadConfig builds a Config from getenv. Missing endpoints are reported
// together in one ErrMissingConfig error.
func LoadConfig(getenv func(string) string) (*Config, error) {
	get := func(key string) string {
		return strings.TrimSpace(strings.Trim(getenv(key), "\"'"))
	}

	cfg := &Config{
		RPCWSSURL:          get("RPC_WSS_URL"),
		RPCHTTPURL:         get("RPC_HTTP_URL"),
		WebhookURL:         get("DISCORD_WEBHOOK_URL"),
		RoleID:             get("DISCORD_ROLE_ID"),
		ExplorerTxPrefix:   orDefault(get("EXPLORER_TX_PREFIX"), defaultExplorerTx),
		ExplorerAddrPrefix: orDefault(get("EXPLORER_ADDR_PREFIX"), defaultExplorerAddr),
		APIBase:            orDefault(get("NADFUN_API_BASE"), defaultAPIBase),
		TokenPagePrefix:    orDefault(get("NADFUN_TOKEN_PAGE"), defaultTokenPage),
		UseEmbeds:          envBool(get("USE_EMBEDS"), true),
		NotifsPerMinute:    envInt(get("RATE_LIMIT_NOTIFS_PER_MIN"), 0),
		APITimeout:         time.Duration(envInt(get("API_TIMEOUT_SECONDS"), 6)) * time.Second,
		DedupTTL:           time.Duration(envInt(get("DEDUP_TTL_MINUTES"), 60)) * time.Minute,
		APIHost:            orDefault(get("API_HOST"), "0.0.0.0"),
		APIPort:            orDefault(get("API_PORT"), "8080"),
		LogWebhookURL:      get("LOG_WEBHOOK_URL"),
		Debug:              envBool(get("DEBUG_MODE"), false),
	}

	var missing []string
	if cfg.RPCWSSURL == "" {
		missing = append(missing, "RPC_WSS_URL")
	}
	if cfg.RPCHTTPURL == "" {
		missing = append(missing, "RPC_HTTP_URL")
	}
	if cfg.WebhookURL == "" {
		missing = append(missing, "DISCORD_WEBHOOK_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	watch, invalid := ParseWatchList(get("WATCH_WALLETS"))
	for _, bad := range invalid {
		log.Printf("⚠️ Geçersiz WATCH_WALLETS adresi atlandı: %q", bad)
	}
	cfg.WatchWallets = watch
	cfg.WalletNames = ParseLabels(get("WALLET_LABELS"))
	cfg.AddrLabels = ParseLabels(get("ADDR_LABELS"))

	if cfg.APITimeout <= 0 {
		cfg.APITimeout = 6 * time.Second
	}
	if cfg.NotifsPerMinute < 0 {
		cfg.NotifsPerMinute = 0
	}
	if cfg.DedupTTL < 0 {
		cfg.DedupTTL = 0
	}
	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func envBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	return strings.ToLower(v) == "true"
}

func envInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️ Sayısal ayar okunamadı (%q), varsayılan kullanılıyor: %d", v, def)
		return def
	}
	return n
}
