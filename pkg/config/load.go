package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nicktill/hikelog/pkg/sampling"
	"github.com/nicktill/hikelog/pkg/transfer"
)

// Config is the daemon configuration. Every field has a default, so an
// empty file (or no file) is a valid configuration.
type Config struct {
	Server   ServerConfig          `yaml:"server"`
	Storage  StorageConfig         `yaml:"storage"`
	Model    string                `yaml:"model"`
	Sampling sampling.Config       `yaml:"sampling"`
	Sensor   SensorConfig          `yaml:"sensor"`
	MQTT     MQTTConfig            `yaml:"mqtt"`
	Sync     transfer.SerialConfig `yaml:"sync"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	MaxStorageGB int64  `yaml:"max_storage_gb"`
	MaxMemoryMB  int64  `yaml:"max_memory_mb"`
	ImageSize    int    `yaml:"image_size"`
	InMemory     bool   `yaml:"in_memory"`
}

// SensorConfig selects the pressure sensor. Driver is "bmp" for a
// BMP180/BMP280/BME280 on I2C or "sim" for the simulated sensor.
type SensorConfig struct {
	Driver  string `yaml:"driver"`
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
}

// MQTTConfig enables publishing readings and snapshots. An empty Broker
// disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         byte   `yaml:"qos"`
}

// Load reads the YAML file at path (skipped when path is empty), fills in
// defaults and applies HIKELOG_* environment overrides.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	if err := cfg.Sampling.Validate(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Sampling.Layout(cfg.Storage.ImageSize); err != nil {
		return Config{}, fmt.Errorf("storage.image_size: %w", err)
	}
	if cfg.MQTT.QoS > 2 {
		return Config{}, fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port == "" {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = DefaultDataDir
	}
	if cfg.Storage.MaxStorageGB <= 0 {
		cfg.Storage.MaxStorageGB = DefaultMaxStorageGB
	}
	if cfg.Storage.MaxMemoryMB <= 0 {
		cfg.Storage.MaxMemoryMB = DefaultMaxMemoryMB
	}
	if cfg.Storage.ImageSize <= 0 {
		cfg.Storage.ImageSize = DefaultImageSize
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Sampling.Capacity == 0 && len(cfg.Sampling.Timescales) == 0 {
		switch cfg.Model {
		case ModelMini:
			cfg.Sampling = sampling.DefaultConfig()
		case ModelClassic:
			cfg.Sampling = sampling.ClassicConfig()
		default:
			return fmt.Errorf("unknown model %q", cfg.Model)
		}
	}
	if cfg.Sampling.Trends == (sampling.TrendConfig{}) {
		cfg.Sampling.Trends = sampling.DefaultTrends()
	}

	if cfg.Sensor.Driver == "" {
		cfg.Sensor.Driver = DefaultSensorDriver
	}
	if cfg.Sensor.Address == 0 {
		cfg.Sensor.Address = DefaultI2CAddress
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultMQTTClientID
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
	}

	if cfg.Sync.BaudRate == 0 {
		cfg.Sync.BaudRate = transfer.DefaultBaudRate
	}
	if cfg.Sync.Timeout <= 0 {
		cfg.Sync.Timeout = DefaultSyncTimeout
	}
	if cfg.Sync.Timeout%(100*time.Millisecond) != 0 {
		return fmt.Errorf("sync.timeout must be a multiple of 100ms, got %v", cfg.Sync.Timeout)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvString("HIKELOG_PORT", getEnvString("PORT", cfg.Server.Port))
	cfg.Storage.DataDir = getEnvString("HIKELOG_DATA_DIR", cfg.Storage.DataDir)
	cfg.Storage.MaxStorageGB = getEnvInt64("HIKELOG_MAX_STORAGE_GB", cfg.Storage.MaxStorageGB)
	cfg.Storage.MaxMemoryMB = getEnvInt64("HIKELOG_MAX_MEMORY_MB", cfg.Storage.MaxMemoryMB)
	cfg.Model = getEnvString("HIKELOG_MODEL", cfg.Model)
	cfg.Sensor.Driver = getEnvString("HIKELOG_SENSOR", cfg.Sensor.Driver)
	cfg.Sensor.Bus = getEnvString("HIKELOG_I2C_BUS", cfg.Sensor.Bus)
	cfg.MQTT.Broker = getEnvString("HIKELOG_MQTT_BROKER", cfg.MQTT.Broker)
	cfg.Sync.Port = getEnvString("HIKELOG_SYNC_PORT", cfg.Sync.Port)
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvInt64 gets an int64 from environment variable or returns default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %d", key, val, defaultValue)
	}
	return defaultValue
}
