package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/hikelog/pkg/sampling"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hikelog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, DefaultPort, cfg.Server.Port)
	require.Equal(t, DefaultDataDir, cfg.Storage.DataDir)
	require.Equal(t, DefaultImageSize, cfg.Storage.ImageSize)
	require.Equal(t, ModelMini, cfg.Model)
	require.Equal(t, sampling.DefaultConfig(), cfg.Sampling)
	require.Equal(t, "sim", cfg.Sensor.Driver)
	require.Equal(t, uint16(0x77), cfg.Sensor.Address)
	require.Equal(t, uint(38400), cfg.Sync.BaudRate)
	require.Equal(t, time.Second, cfg.Sync.Timeout)
	require.Empty(t, cfg.MQTT.Broker)
}

func TestLoadClassicModel(t *testing.T) {
	cfg, err := Load(writeConfig(t, "model: classic\n"))
	require.NoError(t, err)
	require.Equal(t, sampling.ClassicConfig(), cfg.Sampling)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
storage:
  data_dir: /var/lib/hikelog
  image_size: 2048
sampling:
  capacity: 100
  timescales:
    - name: 1h
      cadence: 1
    - name: 1d
      cadence: 24
      persistent: true
sensor:
  driver: bmp
  bus: /dev/i2c-1
  address: 0x76
mqtt:
  broker: tcp://localhost:1883
  topic_prefix: trail
  qos: 1
sync:
  port: /dev/ttyUSB0
  timeout: 500ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "/var/lib/hikelog", cfg.Storage.DataDir)
	require.Equal(t, 2048, cfg.Storage.ImageSize)
	require.Equal(t, 100, cfg.Sampling.Capacity)
	require.Len(t, cfg.Sampling.Timescales, 2)
	require.True(t, cfg.Sampling.Timescales[1].Persistent)
	require.Equal(t, sampling.DefaultTrends(), cfg.Sampling.Trends)
	require.Equal(t, "bmp", cfg.Sensor.Driver)
	require.Equal(t, uint16(0x76), cfg.Sensor.Address)
	require.Equal(t, "trail", cfg.MQTT.TopicPrefix)
	require.Equal(t, byte(1), cfg.MQTT.QoS)
	require.Equal(t, DefaultMQTTClientID, cfg.MQTT.ClientID)
	require.Equal(t, 500*time.Millisecond, cfg.Sync.Timeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HIKELOG_PORT", "7070")
	t.Setenv("HIKELOG_MAX_MEMORY_MB", "not-a-number")
	t.Setenv("HIKELOG_MQTT_BROKER", "tcp://broker:1883")

	cfg, err := Load(writeConfig(t, "server:\n  port: \"9090\"\n"))
	require.NoError(t, err)
	require.Equal(t, "7070", cfg.Server.Port)
	require.Equal(t, int64(DefaultMaxMemoryMB), cfg.Storage.MaxMemoryMB)
	require.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"unknown model":   "model: deluxe\n",
		"bad cadence":     "sampling:\n  capacity: 60\n  timescales:\n    - {name: a, cadence: 7}\n",
		"image too small": "storage:\n  image_size: 100\n",
		"bad qos":         "mqtt:\n  qos: 3\n",
		"sync timeout":    "sync:\n  timeout: 250ms\n",
		"malformed":       "server: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
