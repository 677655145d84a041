// Package config loads settings for both binaries with viper.
//
// Values come from defaults, an optional YAML file and CIPHERKEEP_*
// environment variables, in increasing precedence. Nested keys map to
// variables with '.' replaced by '_', so vault.backend is
// CIPHERKEEP_VAULT_BACKEND.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"cipherkeep/internal/envelope"
	"cipherkeep/internal/server"
)

const envPrefix = "CIPHERKEEP"

// Config is the full configuration.
type Config struct {
	Home      string          `mapstructure:"home"`
	ServerURL string          `mapstructure:"server_url"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	KDF       envelope.Params `mapstructure:"kdf"`
	Vault     Vault           `mapstructure:"vault"`
	Log       Log             `mapstructure:"log"`
	Server    server.Config   `mapstructure:"server"`
	Directory Directory       `mapstructure:"directory"`
}

// Vault selects the local key vault backend.
type Vault struct {
	// Backend is "file" or "sqlite".
	Backend string `mapstructure:"backend"`
	// Seal encrypts every vault value with a key derived from the account
	// password.
	Seal bool `mapstructure:"seal"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Directory selects the key directory's storage.
type Directory struct {
	// Store is "memory" or "postgres".
	Store       string `mapstructure:"store"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	// MongoURI moves custody bundles to MongoDB when set.
	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDB         string `mapstructure:"mongo_db"`
	MongoCollection string `mapstructure:"mongo_collection"`
}

func setDefaults(v *viper.Viper) {
	home := ".cipherkeep"
	if dir, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(dir, ".cipherkeep")
	}
	kdf := envelope.DefaultParams()

	v.SetDefault("home", home)
	v.SetDefault("server_url", "http://127.0.0.1:8080")
	v.SetDefault("timeout", 15*time.Second)
	v.SetDefault("kdf.memory_kib", kdf.MemoryKiB)
	v.SetDefault("kdf.iterations", kdf.Iterations)
	v.SetDefault("kdf.parallelism", kdf.Parallelism)
	v.SetDefault("vault.backend", "file")
	v.SetDefault("vault.seal", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.jwt_issuer", "keydir")
	v.SetDefault("server.token_ttl", 15*time.Minute)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.bundle_rate", 1.0)
	v.SetDefault("server.bundle_burst", 5)
	v.SetDefault("server.low_water", 10)

	v.SetDefault("directory.store", "memory")
	v.SetDefault("directory.postgres_dsn", "")
	v.SetDefault("directory.mongo_uri", "")
	v.SetDefault("directory.mongo_db", "cipherkeep")
	v.SetDefault("directory.mongo_collection", "custody")
}

// New returns a viper instance with defaults and environment binding. When
// file is non-empty it must exist and is read as YAML.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		return v, nil
	}
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

// Parse decodes v into a Config and checks it.
func Parse(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load is New followed by Parse.
func Load(file string) (*Config, error) {
	v, err := New(file)
	if err != nil {
		return nil, err
	}
	return Parse(v)
}

func (c *Config) validate() error {
	switch c.Vault.Backend {
	case "file", "sqlite":
	default:
		return errors.New(`config: vault.backend must be "file" or "sqlite"`)
	}
	switch c.Directory.Store {
	case "memory":
	case "postgres":
		if c.Directory.PostgresDSN == "" {
			return errors.New("config: directory.postgres_dsn required for the postgres store")
		}
	default:
		return errors.New(`config: directory.store must be "memory" or "postgres"`)
	}
	if c.Home == "" {
		return errors.New("config: home required")
	}
	return nil
}
