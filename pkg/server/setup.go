package server

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/nicktill/hikelog/pkg/baro"
	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/config"
	"github.com/nicktill/hikelog/pkg/publish"
	"github.com/nicktill/hikelog/pkg/sampling"
	"github.com/nicktill/hikelog/pkg/sensor"
	"github.com/nicktill/hikelog/pkg/storage"
	"github.com/nicktill/hikelog/pkg/storage/badger"
)

// Simulated sensor start: 21.5 C at standard sea level pressure.
const (
	simTemperature = 215
	simPressure    = 101325
)

// LoadConfig loads the configuration file (optional) and makes sure the
// data directory exists.
func LoadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if !cfg.Storage.InMemory {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
			return config.Config{}, fmt.Errorf("create data directory: %w", err)
		}
	}
	return cfg, nil
}

// InitializeStore opens the BadgerDB-backed persistent image.
func InitializeStore(cfg config.Config) (storage.Store, error) {
	log.Println("💾 Initializing BadgerDB storage with Snappy compression...")
	store, err := badger.New(badger.Config{
		Path:        cfg.Storage.DataDir,
		InMemory:    cfg.Storage.InMemory,
		MaxMemoryMB: cfg.Storage.MaxMemoryMB,
		Size:        cfg.Storage.ImageSize,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("✅ BadgerDB storage initialized (%d byte image)", cfg.Storage.ImageSize)
	return store, nil
}

// InitializeClock starts the software clock at the host's local time.
func InitializeClock() *clock.Clock {
	return clock.New(clock.FromTime(time.Now()))
}

// InitializeEngine creates the sample engine and checks the persistent
// image, erasing it if it was never initialized.
func InitializeEngine(cfg config.Config, store storage.Store, clk clock.Reader) (*sampling.Engine, error) {
	engine, err := sampling.New(cfg.Sampling, store, clk, baro.NewCalibrator())
	if err != nil {
		return nil, err
	}
	wiped, err := engine.Init(false)
	if err != nil {
		return nil, fmt.Errorf("initialize persistent image: %w", err)
	}

	layout := engine.Layout()
	if wiped {
		log.Println("🧹 Persistent image had no valid signature, initialized empty")
	} else {
		count, err := engine.Snapshots().Count()
		if err != nil {
			return nil, fmt.Errorf("count snapshots: %w", err)
		}
		log.Printf("✅ Persistent image intact (%d snapshots stored)", count)
	}
	log.Printf("⚙️  %d timescales of %d samples, room for %d snapshots",
		len(cfg.Sampling.Timescales), cfg.Sampling.Capacity, layout.SnapshotCount)
	return engine, nil
}

// InitializeSensor opens the configured sensor. The returned closer is nil
// when there is nothing to release.
func InitializeSensor(cfg config.SensorConfig) (sensor.Reader, io.Closer, error) {
	switch cfg.Driver {
	case "bmp":
		bmp, err := sensor.OpenBMP(cfg.Bus, cfg.Address)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("🌡️  BMP sensor ready at %#x", cfg.Address)
		return bmp, bmp, nil
	case "sim":
		log.Println("🌡️  Using simulated sensor")
		return sensor.NewSim(simTemperature, simPressure), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown sensor driver %q", cfg.Driver)
	}
}

// InitializePublisher connects to the MQTT broker when one is configured.
// A broker that cannot be reached is logged and publishing is disabled.
func InitializePublisher(cfg config.MQTTConfig) *publish.Publisher {
	if cfg.Broker == "" {
		return nil
	}
	pub, err := publish.Connect(cfg)
	if err != nil {
		log.Printf("⚠️  MQTT publishing disabled: %v", err)
		return nil
	}
	return pub
}
