package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/config"
	"github.com/nicktill/hikelog/pkg/export"
	"github.com/nicktill/hikelog/pkg/httpx"
	"github.com/nicktill/hikelog/pkg/live"
	"github.com/nicktill/hikelog/pkg/sampling"
	"github.com/nicktill/hikelog/pkg/sensor"
	"github.com/nicktill/hikelog/pkg/server/monitor"
	"github.com/nicktill/hikelog/pkg/transfer"
	"github.com/nicktill/hikelog/pkg/units"
)

// Version is reported by the health check and the sync protocol.
const Version = "1.0.0"

var startTime = time.Now()

// Handler serves the logger API.
type Handler struct {
	engine         *sampling.Engine
	clock          *clock.Clock
	sampler        *Sampler
	samplerMonitor *monitor.SamplerMonitor
	storageMonitor *monitor.StorageMonitor
}

// NewHandler creates the API handler.
func NewHandler(engine *sampling.Engine, clk *clock.Clock, sampler *Sampler, samplerMonitor *monitor.SamplerMonitor, storageMonitor *monitor.StorageMonitor) *Handler {
	return &Handler{
		engine:         engine,
		clock:          clk,
		sampler:        sampler,
		samplerMonitor: samplerMonitor,
		storageMonitor: storageMonitor,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string                `json:"status"`
	Version string                `json:"version"`
	Uptime  string                `json:"uptime"`
	Clock   clock.Time            `json:"clock"`
	Sampler monitor.SamplerStatus `json:"sampler"`
}

// unitSystem reads the units query parameter.
func unitSystem(w http.ResponseWriter, r *http.Request) (units.System, bool) {
	sys, err := units.ParseSystem(r.URL.Query().Get("units"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return 0, false
	}
	return sys, true
}

// HandleHealth handles GET /v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.samplerMonitor.Status()
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
		Uptime:  time.Since(startTime).Round(time.Second).String(),
		Clock:   h.clock.Now(),
		Sampler: status,
	}

	code := http.StatusOK
	if !status.Healthy {
		response.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	httpx.RespondJSON(w, code, response)
}

// HandleStorage handles GET /v1/storage
func (h *Handler) HandleStorage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.storageMonitor.Usage()
	if err != nil {
		log.Printf("❌ Failed to calculate storage usage: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, usage)
}

// HandleReading handles GET /v1/reading
func (h *Handler) HandleReading(w http.ResponseWriter, r *http.Request) {
	sys, ok := unitSystem(w, r)
	if !ok {
		return
	}
	reading, at, ok := h.engine.LastReading()
	if !ok {
		httpx.RespondErrorString(w, http.StatusNotFound, "no reading yet")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, newReadingView(reading, at, h.engine.Calibrator(), sys))
}

// TimescaleInfo describes one timescale.
type TimescaleInfo struct {
	Number    int `json:"number"`
	Capacity  int `json:"capacity"`
	NextIndex int `json:"next_index"`
	sampling.Timescale
}

// HandleTimescales handles GET /v1/timescales
func (h *Handler) HandleTimescales(w http.ResponseWriter, r *http.Request) {
	timescales := h.engine.Timescales()
	infos := make([]TimescaleInfo, len(timescales))
	for i, ts := range timescales {
		next, err := h.engine.NextWriteIndex(i)
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, err)
			return
		}
		infos[i] = TimescaleInfo{Number: i, Capacity: h.engine.Capacity(), NextIndex: next, Timescale: ts}
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"timescales": infos,
		"layout":     h.engine.Layout(),
	})
}

// HandleSamples handles GET /v1/timescales/{ts}/samples
func (h *Handler) HandleSamples(w http.ResponseWriter, r *http.Request) {
	sys, ok := unitSystem(w, r)
	if !ok {
		return
	}
	ts, err := strconv.Atoi(mux.Vars(r)["ts"])
	if err != nil {
		httpx.RespondErrorString(w, http.StatusBadRequest, "timescale must be a number")
		return
	}

	next, err := h.engine.NextWriteIndex(ts)
	if errors.Is(err, sampling.ErrUnknownTimescale) {
		httpx.RespondError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	dump, err := h.engine.Graphs()
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, newGraphView(ts, next, dump.Graphs[ts], dump.Time, sys))
}

// HandleTrends handles GET /v1/trends
// Query params:
//   - destination: altitude to reach, for the time to destination estimate
//   - units: unit of destination, "imperial" (feet) or "metric" (meters)
func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	sys, ok := unitSystem(w, r)
	if !ok {
		return
	}
	trends, err := h.engine.Trends()
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	view := newTrendsView(trends)

	if dest := r.URL.Query().Get("destination"); dest != "" {
		v, err := strconv.Atoi(dest)
		if err != nil {
			httpx.RespondErrorString(w, http.StatusBadRequest, "destination must be a whole number")
			return
		}
		reading, _, ok := h.engine.LastReading()
		if !ok {
			httpx.RespondErrorString(w, http.StatusConflict, "no reading yet")
			return
		}
		current := int(reading.AltitudeFeet + 0.5)
		view.Destination = newDestination(units.AltitudeFeetFromInput(v, sys), current, trends.RateOfAscent)
	}
	httpx.RespondJSON(w, http.StatusOK, view)
}

// HandleSnapshots handles GET /v1/snapshots
func (h *Handler) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	sys, ok := unitSystem(w, r)
	if !ok {
		return
	}
	snaps, err := h.engine.ChronologicalSnapshots()
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]SnapshotView, len(snaps))
	for i, s := range snaps {
		views[i] = newSnapshotView(s, sys)
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": views,
		"count":     len(views),
		"max":       h.engine.Snapshots().Max(),
	})
}

// HandleTakeSnapshot handles POST /v1/snapshots
func (h *Handler) HandleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.RequestTimeout)
	defer cancel()

	snap, err := h.sampler.Snapshot(ctx)
	switch {
	case errors.Is(err, sensor.ErrBus):
		httpx.RespondError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		log.Printf("❌ Snapshot failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, newSnapshotView(snap, units.Imperial))
}

// CalibrateRequest sets the altitude of the current position, or the
// sea-level pressure directly when SeaLevel is given (inches of mercury or
// millibars).
type CalibrateRequest struct {
	Altitude int    `json:"altitude"`
	SeaLevel *int   `json:"sea_level,omitempty"`
	Units    string `json:"units"`
}

// CalibrationResponse is the calibration state.
type CalibrationResponse struct {
	SeaLevelPressure    float64 `json:"sea_level_pressure"`
	CalibrationAltitude int     `json:"calibration_altitude_feet"`
}

func (h *Handler) calibration() CalibrationResponse {
	cal := h.engine.Calibrator()
	return CalibrationResponse{
		SeaLevelPressure:    cal.SeaLevel(),
		CalibrationAltitude: cal.CalibrationAltitude(),
	}
}

// HandleGetCalibration handles GET /v1/calibrate
func (h *Handler) HandleGetCalibration(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, h.calibration())
}

// HandleCalibrate handles POST /v1/calibrate. The last reading's pressure
// is taken as the station pressure at the given altitude.
func (h *Handler) HandleCalibrate(w http.ResponseWriter, r *http.Request) {
	var req CalibrateRequest
	if err := httpx.DecodeJSON(w, r, config.MaxImportBytes, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	sys, err := units.ParseSystem(req.Units)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	if req.SeaLevel != nil {
		// half millibars * 50 = pascals
		p0 := float64(units.HalfMbFromInput(*req.SeaLevel, sys) * 50)
		if p0 <= 0 {
			httpx.RespondErrorString(w, http.StatusBadRequest, "sea level pressure must be positive")
			return
		}
		h.engine.Calibrator().SetSeaLevel(p0)
		log.Printf("🎯 Sea level pressure set to %.0f Pa", p0)
		httpx.RespondJSON(w, http.StatusOK, h.calibration())
		return
	}

	reading, _, ok := h.engine.LastReading()
	if !ok {
		httpx.RespondErrorString(w, http.StatusConflict, "no reading to calibrate against yet")
		return
	}
	feet := units.AltitudeFeetFromInput(req.Altitude, sys)
	p0 := h.engine.Calibrator().Calibrate(float64(reading.PressureCentiMb), feet)
	log.Printf("🎯 Calibrated to %d ft (sea level pressure %.0f Pa)", feet, p0)
	httpx.RespondJSON(w, http.StatusOK, h.calibration())
}

// HandleResetCalibration handles DELETE /v1/calibrate
func (h *Handler) HandleResetCalibration(w http.ResponseWriter, r *http.Request) {
	h.engine.Calibrator().Reset()
	log.Println("🎯 Calibration reset to the standard atmosphere")
	httpx.RespondJSON(w, http.StatusOK, h.calibration())
}

// HandleReset handles POST /v1/reset: every stored sample and snapshot is
// erased.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Init(true); err != nil {
		log.Printf("❌ Reset failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	log.Println("🧹 Logger memory cleared")
	httpx.RespondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// HandleGetClock handles GET /v1/clock
func (h *Handler) HandleGetClock(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, h.clock.Now())
}

// HandleSetClock handles PUT /v1/clock
func (h *Handler) HandleSetClock(w http.ResponseWriter, r *http.Request) {
	var t clock.Time
	if err := httpx.DecodeJSON(w, r, config.MaxImportBytes, &t); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateClock(t); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	h.clock.Set(t)
	log.Printf("🕒 Clock set to %s", t)
	httpx.RespondJSON(w, http.StatusOK, h.clock.Now())
}

// validateClock rejects fields that time.Date would silently normalize.
func validateClock(t clock.Time) error {
	if t.Year < 0 || t.Year > 99 {
		return fmt.Errorf("year must be between 2000 and 2099")
	}
	if t.Month < 1 || t.Month > 12 {
		return fmt.Errorf("month must be between 1 and 12")
	}
	daysInMonth := time.Date(2000+t.Year, time.Month(t.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if t.Day < 1 || t.Day > daysInMonth {
		return fmt.Errorf("day %d does not exist in month %d", t.Day, t.Month)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("time of day out of range")
	}
	return nil
}

// HandleDumpGraphs handles GET /v1/dump/graphs: the graph section of the
// sync protocol, as a host tool would receive it.
func (h *Handler) HandleDumpGraphs(w http.ResponseWriter, r *http.Request) {
	dump, err := h.engine.Graphs()
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	payload, err := transfer.EncodeGraphs(dump)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	writeRaw(w, payload)
}

// HandleDumpSnapshots handles GET /v1/dump/snapshots
func (h *Handler) HandleDumpSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.engine.ChronologicalSnapshots()
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	payload, err := transfer.EncodeSnapshots(snaps)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	writeRaw(w, payload)
}

func writeRaw(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	if _, err := w.Write(payload); err != nil {
		log.Printf("❌ Failed to write dump: %v", err)
	}
}

// SetupRoutes configures all HTTP routes for the server.
func SetupRoutes(
	router *mux.Router,
	h *Handler,
	exportHandler *export.Handler,
	hub *live.Hub,
	port string,
) {
	router.Use(corsMiddleware(port))

	api := router.PathPrefix("/v1").Subrouter()

	// Health and storage
	api.HandleFunc("/health", h.HandleHealth).Methods("GET")
	api.HandleFunc("/storage", h.HandleStorage).Methods("GET")

	// Readings and stored samples
	api.HandleFunc("/reading", h.HandleReading).Methods("GET")
	api.HandleFunc("/timescales", h.HandleTimescales).Methods("GET")
	api.HandleFunc("/timescales/{ts}/samples", h.HandleSamples).Methods("GET")
	api.HandleFunc("/trends", h.HandleTrends).Methods("GET")

	// Snapshots
	api.HandleFunc("/snapshots", h.HandleSnapshots).Methods("GET")
	api.HandleFunc("/snapshots", h.HandleTakeSnapshot).Methods("POST")

	// Settings
	api.HandleFunc("/calibrate", h.HandleGetCalibration).Methods("GET")
	api.HandleFunc("/calibrate", h.HandleCalibrate).Methods("POST")
	api.HandleFunc("/calibrate", h.HandleResetCalibration).Methods("DELETE")
	api.HandleFunc("/clock", h.HandleGetClock).Methods("GET")
	api.HandleFunc("/clock", h.HandleSetClock).Methods("PUT")
	api.HandleFunc("/reset", h.HandleReset).Methods("POST")

	// Export/import and raw sync payloads
	api.HandleFunc("/export/graphs", exportHandler.HandleGraphs).Methods("GET")
	api.HandleFunc("/export/snapshots", exportHandler.HandleSnapshots).Methods("GET")
	api.HandleFunc("/import/snapshots", exportHandler.HandleImport).Methods("POST")
	api.HandleFunc("/dump/graphs", h.HandleDumpGraphs).Methods("GET")
	api.HandleFunc("/dump/snapshots", h.HandleDumpSnapshots).Methods("GET")

	// WebSocket for live readings
	api.HandleFunc("/ws", hub.HandleWebSocket).Methods("GET")
}

// corsMiddleware creates CORS middleware that restricts to localhost origins only.
func corsMiddleware(port string) func(http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:" + port: true,
		"http://127.0.0.1:" + port: true,
		"http://localhost:3000":    true,
		"http://127.0.0.1:3000":    true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
