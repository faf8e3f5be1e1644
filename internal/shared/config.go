package shared

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"villa_dnft/internal/domain"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	LogFile     string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SuiRPCURL   string
	SuiRPS      int
	GasBudget   uint64
	WalletURL   string
	Contract    domain.Contract
	CacheTTL    time.Duration
	Workers     int
	Owners      []string
	CORSOrigins []string
}

var defaults = map[string]any{
	"APP_ENV":           "prod",
	"HTTP_ADDR":         ":8080",
	"METRICS_ADDR":      ":9100",
	"LOG_FILE":          "",
	"MYSQL_DSN":         "root:root@tcp(localhost:3306)/villa?parseTime=true&charset=utf8mb4&loc=UTC",
	"REDIS_ADDR":        "localhost:6379",
	"REDIS_PASSWORD":    "",
	"REDIS_DB":          0,
	"SUI_RPC_URL":       "https://fullnode.mainnet.sui.io:443",
	"SUI_RPC_RPS":       5,
	"GAS_BUDGET":        50_000_000,
	"WALLET_BRIDGE_URL": "",
	"PACKAGE_ID":        domain.PlaceholderPackageID,
	"COLLECTION_ID":     domain.PlaceholderCollectionID,
	"MINTER_CAP_ID":     domain.PlaceholderMinterCapID,
	"ASSET_CAP_ID":      domain.PlaceholderAssetCapID,
	"CACHE_TTL_SECONDS": 300,
	"REFRESH_WORKERS":   8,
	"REFRESH_OWNERS":    "",
	"CORS_ORIGINS":      "*",
}

// Load reads the environment, optionally overlaid on ./villa.yaml
// (keys as in the environment).
func Load() Config {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetConfigName("villa")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Err(err).Msg("villa.yaml ignored")
		}
	}
	v.AutomaticEnv()

	c := Config{
		AppEnv:      v.GetString("APP_ENV"),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		MetricsAddr: v.GetString("METRICS_ADDR"),
		LogFile:     v.GetString("LOG_FILE"),
		MySQLDSN:    v.GetString("MYSQL_DSN"),
		RedisAddr:   v.GetString("REDIS_ADDR"),
		RedisPass:   v.GetString("REDIS_PASSWORD"),
		RedisDB:     v.GetInt("REDIS_DB"),
		SuiRPCURL:   v.GetString("SUI_RPC_URL"),
		SuiRPS:      v.GetInt("SUI_RPC_RPS"),
		GasBudget:   v.GetUint64("GAS_BUDGET"),
		WalletURL:   v.GetString("WALLET_BRIDGE_URL"),
		Contract: domain.Contract{
			PackageID:    v.GetString("PACKAGE_ID"),
			CollectionID: v.GetString("COLLECTION_ID"),
			MinterCapID:  v.GetString("MINTER_CAP_ID"),
			AssetCapID:   v.GetString("ASSET_CAP_ID"),
		},
		CacheTTL:    time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		Workers:     v.GetInt("REFRESH_WORKERS"),
		Owners:      splitList(v.GetString("REFRESH_OWNERS")),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
	}
	if !c.Contract.Configured() {
		log.Warn().Msg("PACKAGE_ID is unset; refreshes and builds are disabled")
	}
	if c.WalletURL == "" {
		log.Warn().Msg("WALLET_BRIDGE_URL is empty; submissions are disabled")
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
