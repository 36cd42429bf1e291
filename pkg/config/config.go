package config

import "time"

// Server defaults
const (
	DefaultPort         = "8080"
	DefaultDataDir      = "./data/hikelog"
	DefaultMaxStorageGB = 1
	DefaultMaxMemoryMB  = 48
)

// Persistent image defaults
const (
	DefaultImageSize = 1024 // bytes, the size of the logger's EEPROM
	DefaultModel     = ModelMini
)

// Logger models
const (
	ModelMini    = "mini"
	ModelClassic = "classic"
)

// Background task intervals
const (
	ClockInterval    = 1 * time.Second
	BadgerGCInterval = 10 * time.Minute
	SyncRetryDelay   = 2 * time.Second
)

// Sampler limits
const (
	SamplerUnhealthyFailures = 3
	SamplerStaleAfter        = 5 * time.Minute
	SnapshotQueueSize        = 4
)

// HTTP timeouts
const (
	RequestTimeout    = 5 * time.Second
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 10 * time.Second
	MaxImportBytes    = 1 << 20
)

// Sensor defaults
const (
	DefaultSensorDriver = "sim"
	DefaultI2CAddress   = 0x77
)

// MQTT defaults
const (
	DefaultMQTTClientID    = "hikelog"
	DefaultMQTTTopicPrefix = "hikelog"
	MQTTConnectTimeout     = 10 * time.Second
	MQTTPublishTimeout     = 5 * time.Second
)

// Serial sync defaults
const (
	DefaultSyncTimeout = 1 * time.Second
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
)
