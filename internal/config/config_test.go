package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AppPort != "5000" {
		t.Errorf("AppPort = %q, want 5000", cfg.AppPort)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, DriverPostgres)
	}
	if cfg.TokenExpires != 24*time.Hour {
		t.Errorf("TokenExpires = %v, want 24h", cfg.TokenExpires)
	}
	if len(cfg.Brokers()) != 0 {
		t.Errorf("Brokers() = %v, want none", cfg.Brokers())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("MONGO_TRANSACTIONS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AppPort != "9090" {
		t.Errorf("AppPort = %q, want 9090", cfg.AppPort)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.TokenExpires != 2*time.Hour {
		t.Errorf("TokenExpires = %v, want 2h", cfg.TokenExpires)
	}
	if got := cfg.Brokers(); len(got) != 2 || got[1] != "kafka-2:9092" {
		t.Errorf("Brokers() = %v", got)
	}
	if !cfg.MongoTransactions {
		t.Error("MongoTransactions = false, want true")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "app_port: \"7000\"\nlog_level: debug\nexpiry_sweep_interval: 1m\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AppPort != "7000" {
		t.Errorf("AppPort = %q, want 7000 from file", cfg.AppPort)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, env should win over file", cfg.LogLevel)
	}
	if cfg.ExpirySweepInterval != time.Minute {
		t.Errorf("ExpirySweepInterval = %v", cfg.ExpirySweepInterval)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown driver",
			env:     map[string]string{"STORE_DRIVER": "cassandra"},
			wantErr: "unsupported STORE_DRIVER",
		},
		{
			name:    "production with dev secret",
			env:     map[string]string{"ENVIRONMENT": "production"},
			wantErr: "JWT_SECRET must be changed",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"JWT_TTL": "soon"},
			wantErr: "decode config",
		},
		{
			name:    "non-positive connect rate",
			env:     map[string]string{"REALTIME_CONNECT_RATE": "0"},
			wantErr: "REALTIME_CONNECT_RATE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnvVar, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
