package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "signals_db", cfg.Database.Database)
				assert.Equal(t, "raw_uploads", cfg.RabbitMQ.Queues.Uploads)
				assert.Equal(t, "signal_stream", cfg.RabbitMQ.Queues.Signals)
				assert.Equal(t, 500*time.Millisecond, cfg.RabbitMQ.Connection.ReconnectBaseDelay)
				assert.Equal(t, 30*time.Second, cfg.RabbitMQ.Connection.ReconnectMaxDelay)
				assert.Equal(t, "signal-api-service", cfg.App.Name)
				assert.Equal(t, 60*time.Second, cfg.Ingest.StartupTimeout)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "signals_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			Queues: QueuesConfig{
				Uploads: "raw_uploads",
				Signals: "signal_stream",
			},
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "server port too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "server port too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty uploads queue",
			mutate:    func(c *Config) { c.RabbitMQ.Queues.Uploads = "" },
			wantErr:   true,
			errString: "uploads queue name is required",
		},
		{
			name:      "empty signals queue",
			mutate:    func(c *Config) { c.RabbitMQ.Queues.Signals = "" },
			wantErr:   true,
			errString: "signals queue name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateIngestConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		require.NoError(t, validConfig().ValidateIngestConfig())
	})

	t.Run("ignores server port", func(t *testing.T) {
		// The ingest service has no HTTP server.
		cfg := validConfig()
		cfg.Server.Port = 0
		require.NoError(t, cfg.ValidateIngestConfig())
	})

	t.Run("requires queue names", func(t *testing.T) {
		cfg := validConfig()
		cfg.RabbitMQ.Queues.Uploads = ""
		err := cfg.ValidateIngestConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "uploads queue name is required")
	})
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateIngestConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestQueuesConfig_Names(t *testing.T) {
	q := QueuesConfig{Uploads: "raw_uploads", Signals: "signal_stream"}
	assert.Equal(t, []string{"raw_uploads", "signal_stream"}, q.Names())
}
