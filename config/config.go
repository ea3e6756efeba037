package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DecoderConfig configures how raw errors are classified and decoded.
type DecoderConfig struct {
	UserRejectMarkers    []string `mapstructure:"user_reject_markers" yaml:"user_reject_markers"`       // Message substrings that identify a wallet rejection
	ReplayFailedReceipts bool     `mapstructure:"replay_failed_receipts" yaml:"replay_failed_receipts"` // Replay failed receipts against the transport to recover revert data
	MaxUnwrapDepth       int      `mapstructure:"max_unwrap_depth" yaml:"max_unwrap_depth"`             // How deep custom errors wrapping revert bytes are decoded
	ABIPaths             []string `mapstructure:"abi_paths" yaml:"abi_paths"`                           // ABI or artifact JSON files (or directories of them) providing custom errors
}

// TransportConfig configures the RPC transport used to replay failed transactions.
type TransportConfig struct {
	RPCURL        string        `mapstructure:"rpc_url" yaml:"rpc_url"`               // The JSON-RPC endpoint. Empty disables replay through a dialed client.
	RetryAttempts uint          `mapstructure:"retry_attempts" yaml:"retry_attempts"` // Attempts when fetching the failed transaction
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`       // Delay between transaction lookup attempts
}

// LogConfig configures the runtime logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config wraps the entire configuration for the revert decoder.
type Config struct {
	Decoder   DecoderConfig   `mapstructure:"decoder" yaml:"decoder"`
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// Validate checks the loaded values for consistency.
func (c *Config) Validate() error {
	if c.Decoder.MaxUnwrapDepth < 0 {
		return fmt.Errorf("decoder.max_unwrap_depth must not be negative, got %d", c.Decoder.MaxUnwrapDepth)
	}
	if c.Transport.RetryAttempts == 0 {
		return errors.New("transport.retry_attempts must be at least 1")
	}
	if c.Transport.RetryDelay < 0 {
		return fmt.Errorf("transport.retry_delay must not be negative, got %s", c.Transport.RetryDelay)
	}

	return nil
}

// WriteFile writes the config as YAML to filePath.
func (c *Config) WriteFile(filePath string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filePath, b, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", filePath, err)
	}

	return nil
}

// Default returns the configuration used when no file or environment variables are provided.
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		// Defaults are static and always decode.
		panic(err)
	}

	return cfg
}

// Load loads the config from the file path, falling back to env vars if the file does not exist.
// If the file exists, any env vars that are set will override the values loaded from the file.
func Load(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	// If the config file exists, we continue to read it, otherwise we fallback to using
	// environment variables
	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadEnv loads the config from the environment variables.
func LoadEnv() (*Config, error) {
	v := newViper()

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

// LoadFile loads the config from a file.
func LoadFile(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

var (
	defaults = map[string]any{
		"decoder.user_reject_markers":    []string{"rejected transaction"},
		"decoder.replay_failed_receipts": true,
		"decoder.max_unwrap_depth":       4,
		"transport.rpc_url":              "",
		"transport.retry_attempts":       3,
		"transport.retry_delay":          "500ms",
		"log.level":                      "info",
	}

	// envBindings maps a config key to the environment variables that can provide its value. The
	// first name is preferred, later names are common aliases.
	envBindings = map[string][]string{
		"decoder.user_reject_markers":    {"ERRDECODER_DECODER_USER_REJECT_MARKERS"},
		"decoder.replay_failed_receipts": {"ERRDECODER_DECODER_REPLAY_FAILED_RECEIPTS"},
		"decoder.max_unwrap_depth":       {"ERRDECODER_DECODER_MAX_UNWRAP_DEPTH"},
		"decoder.abi_paths":              {"ERRDECODER_DECODER_ABI_PATHS"},
		"transport.rpc_url":              {"ERRDECODER_TRANSPORT_RPC_URL", "ETH_RPC_URL"},
		"transport.retry_attempts":       {"ERRDECODER_TRANSPORT_RETRY_ATTEMPTS"},
		"transport.retry_delay":          {"ERRDECODER_TRANSPORT_RETRY_DELAY"},
		"log.level":                      {"ERRDECODER_LOG_LEVEL", "LOG_LEVEL"},
	}
)

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		// Prepend the key to the start of the arguments
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
