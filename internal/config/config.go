package config

import "time"

// StoreConfig selects and configures the remote log store backend.
type StoreConfig struct {
	// Backend is one of "memory", "redis", "webkv".
	Backend       string `mapstructure:"backend" yaml:"backend"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	Namespace     string `mapstructure:"namespace" yaml:"namespace"`
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	Token         string `mapstructure:"token" yaml:"token"`
}

// PollConfig tunes the sync engine.
type PollConfig struct {
	Interval       time.Duration `mapstructure:"interval" yaml:"interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// Config holds client configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// StatePath is the sqlite file holding the room list and username.
	StatePath string `mapstructure:"state_path" yaml:"state_path"`
	Username  string `mapstructure:"username" yaml:"username"`

	// DefaultRoomID is joined on first run so a fresh client lands
	// somewhere other clients can reach.
	DefaultRoomID    int64  `mapstructure:"default_room_id" yaml:"default_room_id"`
	DefaultRoomTitle string `mapstructure:"default_room_title" yaml:"default_room_title"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`
	Poll  PollConfig  `mapstructure:"poll" yaml:"poll"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		LogLevel:          "info",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		StatePath:         "kvchat.db",
		Username:          "guest",
		DefaultRoomID:     26329675,
		DefaultRoomTitle:  "General",
		Store: StoreConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			Namespace: "kvchat:room:",
		},
		Poll: PollConfig{
			Interval:       time.Second,
			RequestTimeout: 10 * time.Second,
		},
	}
}
