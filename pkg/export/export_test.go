package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/hikelog/pkg/baro"
	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/sampling"
	"github.com/nicktill/hikelog/pkg/storage/memory"
	"github.com/nicktill/hikelog/pkg/units"
)

// 68.0 F, 1013 mb, 1000 ft
var reading = sample.Sample{Temperature: 156, Pressure: 1626, Altitude: 1192}

type fakeSource struct {
	dump  sampling.GraphDump
	snaps []sample.Snapshot
}

func (f *fakeSource) Graphs() (sampling.GraphDump, error) { return f.dump, nil }

func (f *fakeSource) ChronologicalSnapshots() ([]sample.Snapshot, error) { return f.snaps, nil }

func newSource() *fakeSource {
	return &fakeSource{
		dump: sampling.GraphDump{
			Time: clock.Time{Year: 26, Month: 10, Day: 19, Hour: 7, Minute: 7, Second: 30},
			Graphs: []sampling.Graph{
				{Timescale: sampling.Timescale{Cadence: 1}, Samples: []sample.Sample{{}, reading, reading}},
				{Timescale: sampling.Timescale{Cadence: 5}, Samples: []sample.Sample{reading, reading}},
			},
		},
		snaps: []sample.Snapshot{{Time: sample.PackTimestamp(26, 1, 5, 9, 15), Sample: reading}},
	}
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	reader := csv.NewReader(bytes.NewReader(b))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteGraphsCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	rows, err := WriteGraphsCSV(buf, newSource().dump, units.Imperial)
	require.NoError(t, err)
	require.Equal(t, 4, rows)

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 8)
	require.Equal(t, []string{"Graph 1"}, records[0])
	require.Equal(t, Header(units.Imperial), records[1])
	// the unwritten first slot is skipped but still occupies 7:05
	require.Equal(t, []string{"10/19/26 7:06 AM", "68.0", "1000", "29.92"}, records[2])
	require.Equal(t, "10/19/26 7:07 AM", records[3][0])

	// 7:07 aligns down to 7:05 on the five minute graph
	require.Equal(t, []string{"Graph 2"}, records[4])
	require.Equal(t, "10/19/26 7:00 AM", records[6][0])
	require.Equal(t, "10/19/26 7:05 AM", records[7][0])
}

func TestWriteSnapshotsCSVMetric(t *testing.T) {
	buf := &bytes.Buffer{}
	rows, err := WriteSnapshotsCSV(buf, newSource().snaps, units.Metric)
	require.NoError(t, err)
	require.Equal(t, 1, rows)

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 2)
	require.Equal(t, "Temperature (deg C)", records[0][1])
	require.Equal(t, []string{"1/5/26 9:15 AM", "20.0", "304", "1013.0"}, records[1])
}

func TestExportGraphsJSON(t *testing.T) {
	exporter := NewExporter(newSource())
	buf := &bytes.Buffer{}

	result, err := exporter.ExportGraphs(buf, "json", units.Imperial)
	require.NoError(t, err)
	require.Equal(t, 4, result.RowsExported)

	var doc GraphsDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, FormatVersion, doc.Metadata.Version)
	require.Equal(t, 4, doc.Metadata.Count)
	require.Len(t, doc.Graphs.Graphs, 2)
	require.Equal(t, reading, doc.Graphs.Graphs[0].Samples[1])

	_, err = exporter.ExportGraphs(buf, "xml", units.Imperial)
	require.Error(t, err)
}

func newEngine(t *testing.T) *sampling.Engine {
	t.Helper()
	clk := clock.New(clock.Time{Year: 26, Month: 10, Day: 19})
	e, err := sampling.New(sampling.DefaultConfig(), memory.New(1024), clk, baro.NewCalibrator())
	require.NoError(t, err)
	_, err = e.Init(false)
	require.NoError(t, err)
	return e
}

func TestSnapshotExportImportRoundTrip(t *testing.T) {
	src := newEngine(t)
	for i := 0; i < 3; i++ {
		_, err := src.StoreSnapshot(150+i, 90000+100*i, sample.PackTimestamp(26, 10, 19, 8, i))
		require.NoError(t, err)
	}

	buf := &bytes.Buffer{}
	_, err := NewExporter(src).ExportSnapshots(buf, "json", units.Imperial)
	require.NoError(t, err)

	dst := newEngine(t)
	result, err := NewImporter(dst).ImportSnapshots(buf)
	require.NoError(t, err)
	require.Equal(t, 3, result.SnapshotsImported)
	require.Empty(t, result.Errors)

	want, err := src.ChronologicalSnapshots()
	require.NoError(t, err)
	got, err := dst.ChronologicalSnapshots()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestImportSkipsInvalidSnapshots(t *testing.T) {
	doc := SnapshotsDocument{Snapshots: []sample.Snapshot{
		{Time: sample.PackTimestamp(26, 2, 1, 8, 0), Sample: reading},
		{Time: 0, Sample: reading},
		{Time: sample.PackTimestamp(26, 2, 30, 8, 0), Sample: reading},
		{Time: sample.PackTimestamp(26, 1, 31, 8, 0), Sample: reading},
	}}
	b, err := json.Marshal(doc)
	require.NoError(t, err)

	dst := newEngine(t)
	result, err := NewImporter(dst).ImportSnapshots(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, 2, result.SnapshotsImported)
	require.Len(t, result.Errors, 2)
	require.Equal(t, "Jan 31 2026 08:00A to Feb 01 2026 08:00A", result.TimeRange)

	got, err := dst.ChronologicalSnapshots()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, sample.PackTimestamp(26, 1, 31, 8, 0), got[0].Time)
}

func TestHandler(t *testing.T) {
	h := NewHandler(newSource(), newEngine(t))

	rec := httptest.NewRecorder()
	h.HandleSnapshots(rec, httptest.NewRequest(http.MethodGet, "/v1/export/snapshots", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "Time,Temperature (deg F)"))

	rec = httptest.NewRecorder()
	h.HandleGraphs(rec, httptest.NewRequest(http.MethodGet, "/v1/export/graphs?format=xml", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleGraphs(rec, httptest.NewRequest(http.MethodGet, "/v1/export/graphs?units=cubits", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleImport(rec, httptest.NewRequest(http.MethodPost, "/v1/import/snapshots", strings.NewReader("{}")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
