package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	DuneAPIKey  string
	DuneQueryID string
	TgBotToken  string
	TgChatID    string

	DataDir string

	PollInterval    time.Duration
	PollMaxAttempts int
	HTTPTimeout     time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration

	ChunkSize  int
	ChunkPause time.Duration

	PGDSN string

	RepoDir        string
	Publish        bool
	GitAuthorName  string
	GitAuthorEmail string

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
// The credential keys also bind to their bare environment names so existing
// deployments keep working without a prefix.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"dune-api-key":  "DUNE_API_KEY",
		"dune-query-id": "DUNE_QUERY_ID",
		"tg-bot-token":  "TG_BOT_TOKEN",
		"tg-chat-id":    "TG_CHAT_ID",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	v.SetDefault("data-dir", "lp_data")
	v.SetDefault("poll-interval", 10*time.Second)
	v.SetDefault("poll-max-attempts", 30)
	v.SetDefault("http-timeout", 30*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("chunk-size", 4000)
	v.SetDefault("chunk-pause", time.Second)
	v.SetDefault("repo-dir", ".")
	v.SetDefault("publish", true)
	v.SetDefault("git-author-name", "LP Monitor")
	v.SetDefault("git-author-email", "actions@github.com")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		DuneAPIKey:      v.GetString("dune-api-key"),
		DuneQueryID:     v.GetString("dune-query-id"),
		TgBotToken:      v.GetString("tg-bot-token"),
		TgChatID:        v.GetString("tg-chat-id"),
		DataDir:         v.GetString("data-dir"),
		PollInterval:    v.GetDuration("poll-interval"),
		PollMaxAttempts: v.GetInt("poll-max-attempts"),
		HTTPTimeout:     v.GetDuration("http-timeout"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		ChunkSize:       v.GetInt("chunk-size"),
		ChunkPause:      v.GetDuration("chunk-pause"),
		PGDSN:           v.GetString("pg-dsn"),
		RepoDir:         v.GetString("repo-dir"),
		Publish:         v.GetBool("publish"),
		GitAuthorName:   v.GetString("git-author-name"),
		GitAuthorEmail:  v.GetString("git-author-email"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the credentials a full run needs. It runs before any I/O
// so a misconfigured deployment fails immediately.
func (c Config) Validate() error {
	required := []struct {
		env   string
		value string
	}{
		{"DUNE_API_KEY", c.DuneAPIKey},
		{"DUNE_QUERY_ID", c.DuneQueryID},
		{"TG_BOT_TOKEN", c.TgBotToken},
		{"TG_CHAT_ID", c.TgChatID},
	}

	var missing []string
	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			missing = append(missing, item.env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
