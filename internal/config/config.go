// Package config loads the NovaAI configuration via viper and exposes the
// runtime-mutable settings the admin surface edits.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const appName = "novaai"

// Model ids for the two gateway operations.
const (
	DefaultChatModel  = "gemini-3-pro-preview"
	DefaultVideoModel = "veo-3.1-fast-generate-preview"
)

// Config is the process-wide configuration loaded at startup.
type Config struct {
	Addr       string `json:"addr" mapstructure:"addr"`
	DataDir    string `json:"dataDir" mapstructure:"dataDir"`
	ChatModel  string `json:"chatModel" mapstructure:"chatModel"`
	VideoModel string `json:"videoModel" mapstructure:"videoModel"`

	// APIKey is the bearer credential for the remote model service,
	// supplied out-of-band (GEMINI_API_KEY / NOVAAI_APIKEY).
	APIKey string `json:"apiKey" mapstructure:"apiKey"`

	// AdminTokenSHA256 is the hex SHA-256 of the admin bearer token.
	// The plain token is never stored in configuration.
	AdminTokenSHA256 string `json:"adminTokenSha256" mapstructure:"adminTokenSha256"`

	// AttachmentLimit is the ingestion byte ceiling; 0 means the default.
	AttachmentLimit int64 `json:"attachmentLimit" mapstructure:"attachmentLimit"`

	// PollInterval is the delay between video job status checks.
	PollInterval time.Duration `json:"pollInterval" mapstructure:"pollInterval"`

	// MaxPollAttempts bounds the video poll loop; 0 polls until terminal.
	MaxPollAttempts int `json:"maxPollAttempts" mapstructure:"maxPollAttempts"`

	// Maintenance is the startup value of the maintenance flag.
	Maintenance bool `json:"maintenance" mapstructure:"maintenance"`
}

// Load reads configuration from the config file (if present) and the
// environment. Environment variables use the NOVAAI_ prefix; GEMINI_API_KEY
// is honored as the conventional name for the model credential.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("$HOME/.novaai")
		v.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":47100")
	v.SetDefault("chatModel", DefaultChatModel)
	v.SetDefault("videoModel", DefaultVideoModel)
	v.SetDefault("attachmentLimit", int64(100*1024*1024))
	v.SetDefault("pollInterval", 5*time.Second)
	v.SetDefault("maxPollAttempts", 0)
	v.SetDefault("maintenance", false)

	v.BindEnv("apiKey", "NOVAAI_APIKEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
