package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			cfg:     &Config{DatabaseURL: "postgres://localhost/db", AMQPURL: "amqp://localhost", Exchange: "actions", GatewayURL: "http://localhost:8080", WorkerCount: 4},
			wantErr: false,
		},
		{
			name:    "missing database URL",
			cfg:     &Config{DatabaseURL: "", AMQPURL: "amqp://localhost", Exchange: "actions", GatewayURL: "http://localhost:8080", WorkerCount: 4},
			wantErr: true,
			errMsg:  "AW_DATABASE_URL is required",
		},
		{
			name:    "missing AMQP URL",
			cfg:     &Config{DatabaseURL: "postgres://localhost/db", AMQPURL: "", Exchange: "actions", GatewayURL: "http://localhost:8080", WorkerCount: 4},
			wantErr: true,
			errMsg:  "AW_AMQP_URL is required",
		},
		{
			name:    "missing gateway URL",
			cfg:     &Config{DatabaseURL: "postgres://localhost/db", AMQPURL: "amqp://localhost", Exchange: "actions", GatewayURL: "", WorkerCount: 4},
			wantErr: true,
			errMsg:  "AW_GATEWAY_URL is required",
		},
		{
			name:    "zero workers",
			cfg:     &Config{DatabaseURL: "postgres://localhost/db", AMQPURL: "amqp://localhost", Exchange: "actions", GatewayURL: "http://localhost:8080", WorkerCount: 0},
			wantErr: true,
			errMsg:  "AW_WORKER_COUNT must be at least 1",
		},
		{
			name:    "both missing - first error wins",
			cfg:     &Config{DatabaseURL: "", AMQPURL: "", Exchange: "", WorkerCount: 0},
			wantErr: true,
			errMsg:  "AW_DATABASE_URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.errMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "actions", cfg.Exchange)
	assert.Equal(t, "actions.work", cfg.Queue)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 16, cfg.PrefetchCount)
	assert.Equal(t, "http://localhost:8080", cfg.GatewayURL)
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.LookupTimeout)
	assert.Equal(t, 8090, cfg.PortOps)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AW_LOG_LEVEL", "debug")
	t.Setenv("AW_WORKER_COUNT", "8")
	t.Setenv("AW_SWEEP_INTERVAL", "30s")
	t.Setenv("AW_OPS_PORT", "9191")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 9191, cfg.PortOps)
}

func TestLoad_CustomDatabaseURL(t *testing.T) {
	customURL := "postgres://custom:5432/testdb"
	os.Setenv("AW_DATABASE_URL", customURL)
	defer os.Unsetenv("AW_DATABASE_URL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, customURL, cfg.DatabaseURL)
}
