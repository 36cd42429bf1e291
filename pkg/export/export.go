package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/sampling"
	"github.com/nicktill/hikelog/pkg/units"
)

// FormatVersion is written into JSON exports and checked on import.
const FormatVersion = "1.0"

// Source supplies the data to export.
type Source interface {
	Graphs() (sampling.GraphDump, error)
	ChronologicalSnapshots() ([]sample.Snapshot, error)
}

// Exporter handles exporting logger data to various formats
type Exporter struct {
	source Source
}

// NewExporter creates a new exporter
func NewExporter(src Source) *Exporter {
	return &Exporter{source: src}
}

// ExportResult contains stats about the export
type ExportResult struct {
	RowsExported int       `json:"rows_exported"`
	Format       string    `json:"format"`
	ExportedAt   time.Time `json:"exported_at"`
}

// Metadata heads every JSON export.
type Metadata struct {
	ExportedAt time.Time `json:"exported_at"`
	Format     string    `json:"format"`
	Version    string    `json:"version"`
	Count      int       `json:"count"`
}

// GraphsDocument is the JSON form of a graph export.
type GraphsDocument struct {
	Metadata Metadata           `json:"metadata"`
	Graphs   sampling.GraphDump `json:"graphs"`
}

// SnapshotsDocument is the JSON form of a snapshot export, and the input of
// an import.
type SnapshotsDocument struct {
	Metadata  Metadata          `json:"metadata"`
	Snapshots []sample.Snapshot `json:"snapshots"`
}

// ExportGraphs writes every timescale as "json" or "csv".
func (e *Exporter) ExportGraphs(w io.Writer, format string, sys units.System) (*ExportResult, error) {
	dump, err := e.source.Graphs()
	if err != nil {
		return nil, fmt.Errorf("failed to read graphs: %w", err)
	}

	var rows int
	switch format {
	case "json":
		rows = countSamples(dump)
		doc := GraphsDocument{Graphs: dump}
		doc.Metadata = newMetadata(format, rows)
		err = encodeJSON(w, doc)
	case "csv":
		rows, err = WriteGraphsCSV(w, dump, sys)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{RowsExported: rows, Format: format, ExportedAt: time.Now()}, nil
}

// ExportSnapshots writes the snapshot log, oldest first, as "json" or "csv".
func (e *Exporter) ExportSnapshots(w io.Writer, format string, sys units.System) (*ExportResult, error) {
	snaps, err := e.source.ChronologicalSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}

	var rows int
	switch format {
	case "json":
		rows = len(snaps)
		doc := SnapshotsDocument{Snapshots: snaps}
		doc.Metadata = newMetadata(format, rows)
		err = encodeJSON(w, doc)
	case "csv":
		rows, err = WriteSnapshotsCSV(w, snaps, sys)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{RowsExported: rows, Format: format, ExportedAt: time.Now()}, nil
}

func newMetadata(format string, count int) Metadata {
	return Metadata{ExportedAt: time.Now(), Format: format, Version: FormatVersion, Count: count}
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func countSamples(dump sampling.GraphDump) int {
	n := 0
	for _, g := range dump.Graphs {
		for _, s := range g.Samples {
			if !s.IsEmpty() {
				n++
			}
		}
	}
	return n
}

// Header returns the CSV column names for sys.
func Header(sys units.System) []string {
	if sys == units.Metric {
		return []string{"Time", "Temperature (deg C)", "Altitude (m)", "Pressure (mb)"}
	}
	return []string{"Time", "Temperature (deg F)", "Altitude (ft)", "Pressure (in)"}
}

// WriteGraphsCSV writes each graph as a title row, a header and one row
// per written sample. Sample times count back from the dump's clock
// reading, aligned down to the graph's cadence. It returns the number of
// sample rows written.
func WriteGraphsCSV(w io.Writer, dump sampling.GraphDump, sys units.System) (int, error) {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	ref := dump.Time.Std(time.UTC)
	rows := 0
	for g, graph := range dump.Graphs {
		if err := writer.Write([]string{fmt.Sprintf("Graph %d", g+1)}); err != nil {
			return rows, fmt.Errorf("failed to write CSV title: %w", err)
		}
		if err := writer.Write(Header(sys)); err != nil {
			return rows, fmt.Errorf("failed to write CSV header: %w", err)
		}

		cadence := time.Duration(graph.Timescale.Cadence) * time.Minute
		if cadence <= 0 {
			return rows, fmt.Errorf("graph %d has cadence %d", g+1, graph.Timescale.Cadence)
		}
		// samples are taken when minutes since midnight is a multiple of the cadence
		aligned := ref.Add(-time.Duration(dump.Time.MinuteOfDay()%graph.Timescale.Cadence) * time.Minute)
		at := aligned.Add(-cadence * time.Duration(len(graph.Samples)-1))

		for _, s := range graph.Samples {
			t := at
			at = at.Add(cadence)
			if s.IsEmpty() {
				continue
			}
			if err := writer.Write(row(t, s, sys)); err != nil {
				return rows, fmt.Errorf("failed to write CSV row: %w", err)
			}
			rows++
		}
	}
	writer.Flush()
	return rows, writer.Error()
}

// WriteSnapshotsCSV writes a header and one row per snapshot. It returns
// the number of rows written.
func WriteSnapshotsCSV(w io.Writer, snaps []sample.Snapshot, sys units.System) (int, error) {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(Header(sys)); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}
	rows := 0
	for _, snap := range snaps {
		year, month, day, hour, minute := snap.Time.Unpack()
		t := time.Date(2000+year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
		if err := writer.Write(row(t, snap.Sample, sys)); err != nil {
			return rows, fmt.Errorf("failed to write CSV row: %w", err)
		}
		rows++
	}
	writer.Flush()
	return rows, writer.Error()
}

func row(t time.Time, s sample.Sample, sys units.System) []string {
	return []string{
		t.Format("1/2/06 3:04 PM"),
		units.ValueString(units.Temperature, s.TemperatureHalfF(), sys),
		units.ValueString(units.Altitude, s.Altitude2Ft(), sys),
		pressureColumn(s.PressureHalfMb(), sys),
	}
}

// pressureColumn converts without the truncation used for display.
func pressureColumn(halfMb int, sys units.System) string {
	if sys == units.Metric {
		return units.ValueString(units.Pressure, halfMb, sys)
	}
	return strconv.FormatFloat(float64(halfMb)/2*0.0295333727, 'f', 2, 64)
}
