package keyguard

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a config file from the given path on top of
// DefaultConfig. Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness.
func ValidateConfig(cfg Config) error {
	backend := cfg.Store.Backend
	if backend == "" {
		backend = BackendMemory
	}

	switch backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return fmt.Errorf("postgres store requires a dsn")
		}
	case BackendRedis:
		if strings.TrimSpace(cfg.Store.Redis.Addr) == "" {
			return fmt.Errorf("redis store requires redis.addr")
		}
		if cfg.Store.Redis.DB < 0 {
			return fmt.Errorf("redis.db must not be negative")
		}
	case BackendMongo:
		if strings.TrimSpace(cfg.Store.Mongo.URI) == "" {
			return fmt.Errorf("mongo store requires mongo.uri")
		}
	case BackendVault:
		if strings.TrimSpace(cfg.Store.Vault.Address) == "" {
			return fmt.Errorf("vault store requires vault.address")
		}
	case BackendDynamoDB:
		if strings.TrimSpace(cfg.Store.Table) == "" {
			return fmt.Errorf("dynamodb store requires a table")
		}
		if (cfg.Store.DynamoDB.AccessKeyID == "") != (cfg.Store.DynamoDB.SecretAccessKey == "") {
			return fmt.Errorf("dynamodb.access_key_id and dynamodb.secret_access_key must be set together")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}

	if strings.ContainsAny(cfg.Header, " \t\r\n:") {
		return fmt.Errorf("invalid header name %q", cfg.Header)
	}

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(lvl)); err != nil {
			return fmt.Errorf("unknown logging level: %q", cfg.Logging.Level)
		}
	}

	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown logging format: %q", cfg.Logging.Format)
	}

	return nil
}
