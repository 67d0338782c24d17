package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers         []string
	KafkaSourceTopic     string
	KafkaSinkTopic       string
	KafkaGroupID         string
	KafkaMaxMessageBytes int
	HTTPAddr             string
	ShutdownTimeout      time.Duration

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	BatchSize          int
	BatchFlushInterval time.Duration

	// Decoder configuration.
	DecodeWorkers           int
	DecodeSkipCorruptFrames bool

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where
// unset. When CONFIG_FILE names a YAML file, its values fill in any variable
// the environment leaves unset.
func Load() (*Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(path); err != nil {
			return nil, err
		}
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	maxMessageBytes, err := positiveInt("KAFKA_MAX_MESSAGE_BYTES", 64<<20)
	if err != nil {
		return nil, err
	}
	workers, err := positiveInt("DECODE_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	skipCorrupt, err := boolVar("DECODE_SKIP_CORRUPT_FRAMES")
	if err != nil {
		return nil, err
	}

	logMaxSize, err := positiveInt("LOG_MAX_SIZE_MB", 25)
	if err != nil {
		return nil, err
	}
	logMaxBackups, err := positiveInt("LOG_MAX_BACKUPS", 5)
	if err != nil {
		return nil, err
	}
	logMaxAge, err := positiveInt("LOG_MAX_AGE_DAYS", 7)
	if err != nil {
		return nil, err
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:     sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "nexrad-level2-volumes"),
		KafkaSinkTopic:       sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "nexrad-volume-summaries"),
		KafkaGroupID:         sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "nexrad-etl"),
		KafkaMaxMessageBytes: maxMessageBytes,
		HTTPAddr:             sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout:      shutdownTimeout,

		LogLevel:      sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:     sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  logMaxSize,
		LogMaxBackups: logMaxBackups,
		LogMaxAgeDays: logMaxAge,

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DecodeWorkers:           workers,
		DecodeSkipCorruptFrames: skipCorrupt,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// applyFile exports the scalar values of a flat YAML mapping into the process
// environment. Keys are matched case-insensitively against variable names, so
// "batch_size: 20" sets BATCH_SIZE. Variables already set win.
func applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}

	for key, v := range values {
		name := strings.ToUpper(key)
		if os.Getenv(name) != "" {
			continue
		}
		var value string
		switch v := v.(type) {
		case string:
			value = v
		case int, float64, bool:
			value = fmt.Sprint(v)
		case []any:
			parts := make([]string, 0, len(v))
			for _, p := range v {
				parts = append(parts, fmt.Sprint(p))
			}
			value = strings.Join(parts, ",")
		default:
			return fmt.Errorf("CONFIG_FILE key %q: unsupported value %T", key, v)
		}
		if err := os.Setenv(name, value); err != nil {
			return fmt.Errorf("apply CONFIG_FILE key %q: %w", key, err)
		}
	}
	return nil
}

func positiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func boolVar(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
