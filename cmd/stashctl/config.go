package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/stash/codec"
	"github.com/unkn0wn-root/stash/medium"
	"github.com/unkn0wn-root/stash/medium/bolt"
	"github.com/unkn0wn-root/stash/medium/memory"
	"github.com/unkn0wn-root/stash/medium/redis"
)

// Environment variables consulted when neither flags nor the config file set a value.
const (
	envConfig = "STASH_CONFIG"
	envDB     = "STASH_DB"
)

// Config is the stashctl configuration file (TOML).
type Config struct {
	Medium      string `toml:"medium"` // "bolt" | "redis" | "memory"
	Path        string `toml:"path"`   // bolt database file
	Bucket      string `toml:"bucket"`
	RedisAddr   string `toml:"redis_addr"`
	RedisPrefix string `toml:"redis_prefix"`
	Namespace   string `toml:"namespace"`
	Codec       string `toml:"codec"` // "json" | "cbor" | "msgpack"
	MaxDecode   int    `toml:"max_decode"`
	CacheKey    string `toml:"cache_key"`
	LogLevel    string `toml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Medium:    "bolt",
		Path:      defaultString(os.Getenv(envDB), defaultDBPath()),
		RedisAddr: "127.0.0.1:6379",
		Codec:     "json",
		LogLevel:  "warn",
	}
}

// loadConfig overlays the TOML file at path onto the defaults.
// A missing file is only an error when the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) openMedium() (medium.Medium, error) {
	switch c.Medium {
	case "bolt":
		if err := ensureParentDir(c.Path); err != nil {
			return nil, err
		}
		return bolt.Open(c.Path, bolt.Options{Bucket: c.Bucket})
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: c.RedisAddr})
		return redis.New(redis.Config{Client: client, KeyPrefix: c.RedisPrefix, CloseClient: true})
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown medium %q", c.Medium)
	}
}

func (c Config) newCodec() (codec.Codec, error) {
	var cd codec.Codec
	switch c.Codec {
	case "", "json":
		cd = codec.JSON{}
	case "cbor":
		cb, err := codec.NewCBOR(true)
		if err != nil {
			return nil, err
		}
		cd = cb
	case "msgpack":
		cd = codec.Msgpack{}
	default:
		return nil, fmt.Errorf("unknown codec %q", c.Codec)
	}
	if c.MaxDecode > 0 {
		cd = codec.Limit{Inner: cd, MaxDecode: c.MaxDecode}
	}
	return cd, nil
}

func (c Config) newLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Encoding = "console"
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "stash", "stash.bbolt")
}

func defaultConfigPath() string {
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "stash", "stashctl.toml")
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
