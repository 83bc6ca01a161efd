package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverFile     = "file"
)

// Переменные окружения сервиса корзин.
const (
	EnvGRPCAddr                = "CART_GRPC_ADDR"
	EnvMetricsAddr             = "CART_METRICS_ADDR"
	EnvStorageDriver           = "CART_STORAGE_DRIVER"
	EnvPostgresDSN             = "CART_POSTGRES_DSN"
	EnvPostgresAutoMigrate     = "CART_POSTGRES_AUTO_MIGRATE"
	EnvPostgresMaxConns        = "CART_POSTGRES_MAX_CONNS"
	EnvFileDir                 = "CART_FILE_DIR"
	EnvKafkaBrokers            = "CART_KAFKA_BROKERS"
	EnvPersistMaxAttempts      = "CART_PERSIST_MAX_ATTEMPTS"
	EnvPersistRetryDelay       = "CART_PERSIST_RETRY_DELAY"
	EnvPersistSaveTimeout      = "CART_PERSIST_SAVE_TIMEOUT"
	EnvPersistBacklogThreshold = "CART_PERSIST_BACKLOG_THRESHOLD"
	EnvSessionIdleTTL          = "CART_SESSION_IDLE_TTL"
	EnvLogLevel                = "CART_LOG_LEVEL"
)

// Config описывает настройки запуска сервиса корзин.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	PostgresMaxConns    int
	FileDir             string

	// KafkaBrokers - список брокеров через запятую; пустая строка отключает Kafka.
	KafkaBrokers string

	PersistMaxAttempts      int
	PersistRetryDelay       time.Duration
	PersistSaveTimeout      time.Duration
	PersistBacklogThreshold int

	// SessionIdleTTL - через сколько простоя корзина выгружается из памяти; 0 отключает выгрузку.
	SessionIdleTTL time.Duration

	LogLevel string
}

// DefaultConfig возвращает базовые адреса для gRPC и HTTP-метрик.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:                ":50051",
		MetricsAddr:             ":9090",
		StorageDriver:           StorageDriverMemory,
		PostgresAutoMigrate:     true,
		PostgresMaxConns:        10,
		FileDir:                 "./data/carts",
		PersistMaxAttempts:      3,
		PersistRetryDelay:       50 * time.Millisecond,
		PersistSaveTimeout:      5 * time.Second,
		PersistBacklogThreshold: 1000,
		SessionIdleTTL:          30 * time.Minute,
		LogLevel:                "info",
	}
}

// EnvLookup - источник переменных окружения (os.LookupEnv в проде, map в тестах).
type EnvLookup func(key string) (string, bool)

// LoadConfigFromEnv читает конфигурацию из окружения.
// Некорректные значения не прерывают запуск: остаётся значение по умолчанию,
// а описание проблемы попадает в warnings.
func LoadConfigFromEnv(lookup EnvLookup) (Config, []string) {
	cfg := DefaultConfig()
	var warnings []string

	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
	}

	if v, ok := nonEmpty(lookup, EnvGRPCAddr); ok {
		cfg.GRPCAddr = v
	}
	if v, ok := nonEmpty(lookup, EnvMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := nonEmpty(lookup, EnvStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := nonEmpty(lookup, EnvPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := nonEmpty(lookup, EnvPostgresAutoMigrate); ok {
		if b, err := parseBool(v); err != nil {
			warn(EnvPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = b
		}
	}
	if v, ok := nonEmpty(lookup, EnvPostgresMaxConns); ok {
		if n, err := parseInt(v, 1); err != nil {
			warn(EnvPostgresMaxConns, v, err)
		} else {
			cfg.PostgresMaxConns = n
		}
	}
	if v, ok := nonEmpty(lookup, EnvFileDir); ok {
		cfg.FileDir = v
	}
	if v, ok := nonEmpty(lookup, EnvKafkaBrokers); ok {
		cfg.KafkaBrokers = v
	}
	if v, ok := nonEmpty(lookup, EnvPersistMaxAttempts); ok {
		if n, err := parseInt(v, 1); err != nil {
			warn(EnvPersistMaxAttempts, v, err)
		} else {
			cfg.PersistMaxAttempts = n
		}
	}
	if v, ok := nonEmpty(lookup, EnvPersistRetryDelay); ok {
		if d, err := parseDuration(v, true); err != nil {
			warn(EnvPersistRetryDelay, v, err)
		} else {
			cfg.PersistRetryDelay = d
		}
	}
	if v, ok := nonEmpty(lookup, EnvPersistSaveTimeout); ok {
		if d, err := parseDuration(v, false); err != nil {
			warn(EnvPersistSaveTimeout, v, err)
		} else {
			cfg.PersistSaveTimeout = d
		}
	}
	if v, ok := nonEmpty(lookup, EnvPersistBacklogThreshold); ok {
		if n, err := parseInt(v, 0); err != nil {
			warn(EnvPersistBacklogThreshold, v, err)
		} else {
			cfg.PersistBacklogThreshold = n
		}
	}
	if v, ok := nonEmpty(lookup, EnvSessionIdleTTL); ok {
		if d, err := parseDuration(v, true); err != nil {
			warn(EnvSessionIdleTTL, v, err)
		} else {
			cfg.SessionIdleTTL = d
		}
	}
	if v, ok := nonEmpty(lookup, EnvLogLevel); ok {
		cfg.LogLevel = strings.ToLower(v)
	}

	return cfg, warnings
}

func nonEmpty(lookup EnvLookup, key string) (string, bool) {
	if lookup == nil {
		return "", false
	}
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", raw)
	}
}

func parseInt(raw string, minValue int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	if n < minValue {
		return 0, fmt.Errorf("value %d must be >= %d", n, minValue)
	}
	return n, nil
}

func parseDuration(raw string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("duration %s is out of range", d)
	}
	return d, nil
}
