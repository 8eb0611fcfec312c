package client

import (
	"fmt"

	brconfig "github.com/vctt94/bisonbotkit/config"
	"github.com/vctt94/bisonbotkit/utils"
)

// Default endpoints used when neither the .conf file nor the CLI set
// them.
const (
	DefaultBaseRPCURL = "https://api.mainnet-beta.solana.com"
	DefaultRollupURL  = "https://voble-rollup.magicblock.app"
	DefaultStatsURL   = "https://stats.voble.app"
)

// ConfigOverrides carries optional CLI/runtime overrides for config values.
type ConfigOverrides struct {
	BaseRPCURL string
	RollupURL  string
	StatsURL   string
	Username   string
}

// AppConfig is the consolidated configuration used by the voble client app.
type AppConfig struct {
	// Absolute directory where the config/logs/keys live.
	DataDir string
	// Cfg holds the loaded bisonbotkit client configuration.
	Cfg *brconfig.ClientConfig
	// Extracted voble settings (also persisted in ExtraConfig).
	BaseRPCURL string
	RollupURL  string
	StatsURL   string
	Username   string
}

// LoadAppConfig loads voble configuration from disk, applies overrides,
// and returns a consolidated AppConfig. If datadir is empty, it uses
// the default application data dir for "voble".
func LoadAppConfig(datadir string, ov ConfigOverrides) (*AppConfig, error) {
	if datadir == "" {
		datadir = utils.AppDataDir("voble", false)
	}

	cfg, err := brconfig.LoadClientConfig(datadir, "voble.conf")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Endpoints live in ExtraConfig; overrides win and are persisted.
	baseURL := cfg.GetString("baserpcurl")
	if ov.BaseRPCURL != "" {
		baseURL = ov.BaseRPCURL
		cfg.SetString("baserpcurl", baseURL)
	}
	if baseURL == "" {
		baseURL = DefaultBaseRPCURL
	}

	rollupURL := cfg.GetString("rollupurl")
	if ov.RollupURL != "" {
		rollupURL = ov.RollupURL
		cfg.SetString("rollupurl", rollupURL)
	}
	if rollupURL == "" {
		rollupURL = DefaultRollupURL
	}

	statsURL := cfg.GetString("statsurl")
	if ov.StatsURL != "" {
		statsURL = ov.StatsURL
		cfg.SetString("statsurl", statsURL)
	}
	if statsURL == "" {
		statsURL = DefaultStatsURL
	}

	username := cfg.GetString("username")
	if ov.Username != "" {
		username = ov.Username
		cfg.SetString("username", username)
	}

	return &AppConfig{
		DataDir:    datadir,
		Cfg:        cfg,
		BaseRPCURL: baseURL,
		RollupURL:  rollupURL,
		StatsURL:   statsURL,
		Username:   username,
	}, nil
}
