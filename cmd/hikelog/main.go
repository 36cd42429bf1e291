package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/config"
	"github.com/nicktill/hikelog/pkg/export"
	"github.com/nicktill/hikelog/pkg/live"
	"github.com/nicktill/hikelog/pkg/server"
	"github.com/nicktill/hikelog/pkg/server/monitor"
	"github.com/nicktill/hikelog/pkg/transfer"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	log.Println("🚀 Starting hikelog...")

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	maxStorageBytes := cfg.Storage.MaxStorageGB * 1024 * 1024 * 1024
	log.Printf("⚙️  Configuration: model = %s, storage limit = %.2f GB, memory limit = %d MB",
		cfg.Model, float64(maxStorageBytes)/(1024*1024*1024), cfg.Storage.MaxMemoryMB)
	if !cfg.Storage.InMemory {
		log.Printf("📁 Data directory: %s", cfg.Storage.DataDir)
	}

	store, err := server.InitializeStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize storage: %v", err)
	}
	defer store.Close()

	clk := server.InitializeClock()
	log.Printf("🕐 Clock set to %s", clk.Now())

	engine, err := server.InitializeEngine(cfg, store, clk)
	if err != nil {
		log.Fatalf("❌ Failed to initialize sample engine: %v", err)
	}

	reader, closer, err := server.InitializeSensor(cfg.Sensor)
	if err != nil {
		log.Fatalf("❌ Failed to open sensor: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	var pub server.Publisher
	if p := server.InitializePublisher(cfg.MQTT); p != nil {
		defer p.Close()
		pub = p
		log.Printf("📤 Publishing to MQTT broker %s", cfg.MQTT.Broker)
	}

	hub := live.NewHub()
	samplerMonitor := monitor.NewSamplerMonitor()
	dataDir := cfg.Storage.DataDir
	if cfg.Storage.InMemory {
		dataDir = ""
	}
	storageMonitor := monitor.NewStorageMonitor(dataDir, maxStorageBytes, store)
	sampler := server.NewSampler(engine, reader, clk, samplerMonitor, hub, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	log.Println("📡 WebSocket hub started for live readings")

	minutes := make(chan clock.Time, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		clk.Run(ctx, config.ClockInterval, minutes)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sampler.RunSampler(ctx, minutes)
	}()

	stopGC := make(chan bool)
	wg.Add(1)
	go server.RunBadgerGC(store, stopGC, &wg)

	if cfg.Sync.Port != "" {
		responder := transfer.NewResponder(engine, server.Version)
		open := func() (io.ReadWriteCloser, error) { return transfer.OpenSerial(cfg.Sync) }
		wg.Add(1)
		go func() {
			defer wg.Done()
			server.RunSync(ctx, open, responder)
		}()
		log.Printf("🔌 Answering sync commands on %s", cfg.Sync.Port)
	}

	router := mux.NewRouter()
	handler := server.NewHandler(engine, clk, sampler, samplerMonitor, storageMonitor)
	server.SetupRoutes(router, handler, export.NewHandler(engine, engine), hub, cfg.Server.Port)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	go func() {
		log.Printf("🌐 Server starting on http://localhost:%s", cfg.Server.Port)
		log.Println("📡 API endpoints:")
		log.Println("   GET  /v1/reading        - Current reading")
		log.Println("   GET  /v1/trends         - Rates and forecast")
		log.Println("   POST /v1/snapshots      - Take a snapshot")
		log.Println("   GET  /v1/export/graphs  - Download graphs")
		log.Println("   GET  /v1/ws             - Live readings")
		log.Println("✅ Server ready to accept requests")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutdown signal received...")

	// Cancel before wg.Wait or the loops never return
	log.Println("⏸️  Stopping background tasks...")
	cancel()
	close(stopGC)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	log.Println("🔄 Gracefully shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	log.Println("⏳ Waiting for background tasks to complete...")
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("✅ All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("⚠️  Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("👋 hikelog exited cleanly")
}
