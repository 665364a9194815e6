package music_player

import (
	"fmt"
	"time"
)

// Store backends selectable with STORE_BACKEND.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds the music player module configuration.
type Config struct {
	// Lavalink is optional; without an address only the direct backend is used.
	LavalinkAddress  string `env:"LAVALINK_ADDRESS"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	YtdlpProxy string `env:"YTDLP_PROXY"`

	VoiceConnectTimeout time.Duration `env:"VOICE_CONNECT_TIMEOUT" envDefault:"30s"`
	HistoryLimit        int           `env:"HISTORY_LIMIT"         envDefault:"50"`
	DefaultVolume       int           `env:"DEFAULT_VOLUME"        envDefault:"100"`

	SearchRateLimit float64 `env:"SEARCH_RATE_LIMIT" envDefault:"2"`
	SearchBurst     int     `env:"SEARCH_BURST"      envDefault:"5"`

	StoreBackend  string `env:"STORE_BACKEND"  envDefault:"memory"`
	SQLitePath    string `env:"SQLITE_PATH"    envDefault:"nerox.db"`
	RedisAddress  string `env:"REDIS_ADDRESS"  envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`
}

// LavalinkEnabled reports whether a Lavalink node is configured.
func (c *Config) LavalinkEnabled() bool {
	return c.LavalinkAddress != ""
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	if c.LavalinkEnabled() && c.LavalinkPassword == "" {
		return fmt.Errorf("LAVALINK_PASSWORD is required when LAVALINK_ADDRESS is set")
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 150 {
		return fmt.Errorf("DEFAULT_VOLUME must be between 0 and 150, got %d", c.DefaultVolume)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must not be negative, got %d", c.HistoryLimit)
	}
	if c.VoiceConnectTimeout <= 0 {
		return fmt.Errorf("VOICE_CONNECT_TIMEOUT must be positive, got %s", c.VoiceConnectTimeout)
	}
	if c.SearchRateLimit <= 0 || c.SearchBurst <= 0 {
		return fmt.Errorf("SEARCH_RATE_LIMIT and SEARCH_BURST must be positive")
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case StoreRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	return nil
}
