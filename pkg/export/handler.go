package export

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nicktill/hikelog/pkg/units"
)

// Handler handles export/import HTTP endpoints
type Handler struct {
	exporter *Exporter
	importer *Importer
}

// NewHandler creates a new export/import handler
func NewHandler(src Source, target Restorer) *Handler {
	return &Handler{
		exporter: NewExporter(src),
		importer: NewImporter(target),
	}
}

// parseOptions reads the format and units query parameters.
func parseOptions(r *http.Request) (string, units.System, error) {
	query := r.URL.Query()

	format := query.Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "json" && format != "csv" {
		return "", 0, fmt.Errorf("invalid format, must be 'json' or 'csv'")
	}

	sys, err := units.ParseSystem(query.Get("units"))
	if err != nil {
		return "", 0, err
	}
	return format, sys, nil
}

func setDownloadHeaders(w http.ResponseWriter, name, format string) {
	timestamp := time.Now().Format("20060102-150405")
	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/csv")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=hikelog-%s-%s.%s", name, timestamp, format))
}

// HandleGraphs handles GET /v1/export/graphs
// Query params:
//   - format: "json" or "csv" (default: csv)
//   - units: "imperial" or "metric" (default: imperial)
func (h *Handler) HandleGraphs(w http.ResponseWriter, r *http.Request) {
	format, sys, err := parseOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	setDownloadHeaders(w, "graphs", format)
	result, err := h.exporter.ExportGraphs(w, format, sys)
	if err != nil {
		log.Printf("❌ Graph export failed: %v", err)
		http.Error(w, fmt.Sprintf("Export failed: %v", err), http.StatusInternalServerError)
		return
	}
	log.Printf("✅ Exported %d graph samples (%s)", result.RowsExported, format)
}

// HandleSnapshots handles GET /v1/export/snapshots
// Query params are the same as HandleGraphs.
func (h *Handler) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	format, sys, err := parseOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	setDownloadHeaders(w, "snapshots", format)
	result, err := h.exporter.ExportSnapshots(w, format, sys)
	if err != nil {
		log.Printf("❌ Snapshot export failed: %v", err)
		http.Error(w, fmt.Sprintf("Export failed: %v", err), http.StatusInternalServerError)
		return
	}
	log.Printf("✅ Exported %d snapshots (%s)", result.RowsExported, format)
}

// HandleImport handles POST /v1/import/snapshots
// Accepts a JSON snapshot export and restores it into the snapshot log
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}

	result, err := h.importer.ImportSnapshots(r.Body)
	if err != nil {
		log.Printf("❌ Import failed: %v", err)
		http.Error(w, fmt.Sprintf("Import failed: %v", err), http.StatusBadRequest)
		return
	}

	if len(result.Errors) > 0 {
		log.Printf("⚠️  Import completed with %d validation errors", len(result.Errors))
		for i, err := range result.Errors {
			if i < 10 {
				log.Printf("   - %s", err)
			}
		}
	}
	log.Printf("✅ Imported %d snapshots from %s", result.SnapshotsImported, result.TimeRange)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("❌ Failed to encode import response: %v", err)
	}
}
