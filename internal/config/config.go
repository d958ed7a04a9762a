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
	PlayerID        string
	SaveBackend     string
	SaveDir         string
	SaveDB          string
	SaveKey         string
	SaveVersion     string
	Tuning          string
	EventLog        string
	NPCTick         time.Duration
	NPCs            []string
	Seed            uint64
	AggregateWindow time.Duration
	AggregateState  string
	Listen          string
	MetricsAddr     string
	UserID          string
	PGDSN           string
	SyncCheckpoint  string
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MERCADO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("player-id", "player")
	v.SetDefault("save-backend", "file")
	v.SetDefault("save-dir", "./data")
	v.SetDefault("save-db", "./data/mercado.db")
	v.SetDefault("save-key", "mercado-lp-save")
	v.SetDefault("save-version", "2.0")
	v.SetDefault("npc-tick", 2*time.Second)
	v.SetDefault("aggregate-window", time.Hour)
	v.SetDefault("aggregate-state", "./data/windows.json")
	v.SetDefault("sync-checkpoint", "./data/sync.json")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
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
		PlayerID:        v.GetString("player-id"),
		SaveBackend:     strings.ToLower(v.GetString("save-backend")),
		SaveDir:         v.GetString("save-dir"),
		SaveDB:          v.GetString("save-db"),
		SaveKey:         v.GetString("save-key"),
		SaveVersion:     v.GetString("save-version"),
		Tuning:          v.GetString("tuning"),
		EventLog:        v.GetString("event-log"),
		NPCTick:         v.GetDuration("npc-tick"),
		NPCs:            getStringSlice(v, "npcs"),
		Seed:            v.GetUint64("seed"),
		AggregateWindow: v.GetDuration("aggregate-window"),
		AggregateState:  v.GetString("aggregate-state"),
		Listen:          v.GetString("listen"),
		MetricsAddr:     v.GetString("metrics-addr"),
		UserID:          v.GetString("user-id"),
		PGDSN:           v.GetString("pg-dsn"),
		SyncCheckpoint:  v.GetString("sync-checkpoint"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	switch cfg.SaveBackend {
	case "file", "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("unknown save backend %q", cfg.SaveBackend)
	}

	return cfg, nil
}

// SyncEnabled reports whether milestone sync has what it needs.
func (c Config) SyncEnabled() bool {
	return c.UserID != "" && c.PGDSN != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
