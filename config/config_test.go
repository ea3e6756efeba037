package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var (
	// fileCfg is the config that is loaded from the testdata/config.yml file.
	fileCfg = &Config{
		Decoder: DecoderConfig{
			UserRejectMarkers:    []string{"rejected transaction", "user denied"},
			ReplayFailedReceipts: false,
			MaxUnwrapDepth:       2,
			ABIPaths:             []string{"./abis"},
		},
		Transport: TransportConfig{
			RPCURL:        "http://localhost:8545",
			RetryAttempts: 5,
			RetryDelay:    250 * time.Millisecond,
		},
		Log: LogConfig{Level: "debug"},
	}

	// defaultCfg is the config produced when nothing is set.
	defaultCfg = &Config{
		Decoder: DecoderConfig{
			UserRejectMarkers:    []string{"rejected transaction"},
			ReplayFailedReceipts: true,
			MaxUnwrapDepth:       4,
		},
		Transport: TransportConfig{
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
		},
		Log: LogConfig{Level: "info"},
	}

	// envVars is the environment variables that used to set the config.
	envVars = map[string]string{
		"ERRDECODER_DECODER_USER_REJECT_MARKERS":    "denied,cancelled",
		"ERRDECODER_DECODER_REPLAY_FAILED_RECEIPTS": "true",
		"ERRDECODER_DECODER_MAX_UNWRAP_DEPTH":       "6",
		"ERRDECODER_DECODER_ABI_PATHS":              "./a,./b",
		"ERRDECODER_TRANSPORT_RPC_URL":              "http://node:8545",
		"ERRDECODER_TRANSPORT_RETRY_ATTEMPTS":       "2",
		"ERRDECODER_TRANSPORT_RETRY_DELAY":          "1s",
		"ERRDECODER_LOG_LEVEL":                      "warn",
	}

	// envCfg is the config that is loaded from the environment variables.
	envCfg = &Config{
		Decoder: DecoderConfig{
			UserRejectMarkers:    []string{"denied", "cancelled"},
			ReplayFailedReceipts: true,
			MaxUnwrapDepth:       6,
			ABIPaths:             []string{"./a", "./b"},
		},
		Transport: TransportConfig{
			RPCURL:        "http://node:8545",
			RetryAttempts: 2,
			RetryDelay:    time.Second,
		},
		Log: LogConfig{Level: "warn"},
	}
)

func Test_Load(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	tests := []struct {
		name       string
		beforeFunc func(t *testing.T)
		givePath   string
		want       *Config
		wantErr    string
	}{
		{
			name:     "load from file",
			givePath: "./testdata/config.yml",
			want:     fileCfg,
		},
		{
			name:     "load from empty file uses defaults",
			givePath: "./testdata/empty.yml",
			want:     defaultCfg,
		},
		{
			name: "override with env",
			beforeFunc: func(t *testing.T) {
				t.Helper()

				setupEnvVars(t, envVars)
			},
			givePath: "./testdata/config.yml",
			want:     envCfg,
		},
		{
			name: "fallback to env when file not found",
			beforeFunc: func(t *testing.T) {
				t.Helper()

				setupEnvVars(t, envVars)
			},
			givePath: "./testdata/invalid.yml",
			want:     envCfg,
		},
		{
			name: "alias env var",
			beforeFunc: func(t *testing.T) {
				t.Helper()

				setupEnvVars(t, map[string]string{"ETH_RPC_URL": "http://alias:8545"})
			},
			givePath: "./testdata/empty.yml",
			want: func() *Config {
				cfg := *defaultCfg
				cfg.Transport.RPCURL = "http://alias:8545"

				return &cfg
			}(),
		},
		{
			name: "invalid retry attempts",
			beforeFunc: func(t *testing.T) {
				t.Helper()

				setupEnvVars(t, map[string]string{"ERRDECODER_TRANSPORT_RETRY_ATTEMPTS": "0"})
			},
			givePath: "./testdata/empty.yml",
			wantErr:  "transport.retry_attempts must be at least 1",
		},
	}

	for _, tt := range tests { //nolint:paralleltest // see comment in setupEnvVars
		t.Run(tt.name, func(t *testing.T) {
			if tt.beforeFunc != nil {
				tt.beforeFunc(t)
			}

			got, err := Load(tt.givePath)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func Test_LoadFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		givePath string
		want     *Config
		wantErr  string
	}{
		{
			name:     "load from file",
			givePath: "./testdata/config.yml",
			want:     fileCfg,
		},
		{
			name:     "load from file with invalid path",
			givePath: "./testdata/invalid.yml",
			wantErr:  "no such file or directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := LoadFile(tt.givePath)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func Test_LoadEnv(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	setupEnvVars(t, envVars)

	got, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, envCfg, got)
}

func Test_Default(t *testing.T) {
	t.Parallel()

	assert.Equal(t, defaultCfg, Default())
}

func Test_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    func(c *Config)
		wantErr string
	}{
		{
			name: "valid",
			give: func(*Config) {},
		},
		{
			name:    "negative unwrap depth",
			give:    func(c *Config) { c.Decoder.MaxUnwrapDepth = -1 },
			wantErr: "decoder.max_unwrap_depth must not be negative",
		},
		{
			name:    "negative retry delay",
			give:    func(c *Config) { c.Transport.RetryDelay = -time.Second },
			wantErr: "transport.retry_delay must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := *defaultCfg
			tt.give(&cfg)

			err := cfg.Validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_WriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, fileCfg.WriteFile(path))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fileCfg, got)

	want, err := os.ReadFile("./testdata/config.yml")
	require.NoError(t, err)
	written, err := os.ReadFile(path)
	require.NoError(t, err)

	var wantDoc, gotDoc map[string]any
	require.NoError(t, yaml.Unmarshal(want, &wantDoc))
	require.NoError(t, yaml.Unmarshal(written, &gotDoc))
	assert.Equal(t, wantDoc, gotDoc)
}

// setupEnvVars sets up the environment variables for the test.
//
// CAUTION: Because this function uses t.Setenv which affects the entire process, tests which call
// this function cannot be run in parallel.
func setupEnvVars(t *testing.T, envVars map[string]string) {
	t.Helper()

	for key, value := range envVars {
		t.Setenv(key, value)
	}
}
