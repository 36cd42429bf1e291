package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/units"
)

// Restorer accepts already quantized snapshots.
type Restorer interface {
	RestoreSnapshot(sample.Snapshot) error
}

// Importer restores snapshots from a JSON export
type Importer struct {
	target Restorer
}

// NewImporter creates a new importer
func NewImporter(target Restorer) *Importer {
	return &Importer{target: target}
}

// ImportResult contains stats about the import operation
type ImportResult struct {
	SnapshotsImported int       `json:"snapshots_imported"`
	TimeRange         string    `json:"time_range"`
	ImportedAt        time.Time `json:"imported_at"`
	Errors            []string  `json:"errors,omitempty"`
}

// ImportSnapshots reads a SnapshotsDocument and restores every valid
// snapshot, oldest first, so that a full log keeps the newest ones.
func (im *Importer) ImportSnapshots(r io.Reader) (*ImportResult, error) {
	var doc SnapshotsDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if doc.Metadata.Version != "" && doc.Metadata.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported export version %q", doc.Metadata.Version)
	}

	var validationErrors []string
	valid := make([]sample.Snapshot, 0, len(doc.Snapshots))
	for i, snap := range doc.Snapshots {
		if err := validateSnapshot(snap); err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("snapshot %d: %v", i, err))
			continue
		}
		valid = append(valid, snap)
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Time < valid[j].Time })

	for i, snap := range valid {
		if err := im.target.RestoreSnapshot(snap); err != nil {
			return nil, fmt.Errorf("failed to restore snapshot %d: %w", i, err)
		}
	}

	result := &ImportResult{
		SnapshotsImported: len(valid),
		TimeRange:         "empty",
		ImportedAt:        time.Now(),
		Errors:            validationErrors,
	}
	if len(valid) > 0 {
		result.TimeRange = fmt.Sprintf("%s to %s",
			units.SnapshotString(valid[0].Time), units.SnapshotString(valid[len(valid)-1].Time))
	}
	return result, nil
}

// validateSnapshot rejects empty slots and timestamps that do not name a
// real minute.
func validateSnapshot(s sample.Snapshot) error {
	if s.IsEmpty() {
		return fmt.Errorf("timestamp cannot be zero")
	}
	year, month, day, hour, minute := s.Time.Unpack()
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return fmt.Errorf("invalid timestamp %d", s.Time)
	}
	t := time.Date(2000+year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	if t.Day() != day {
		return fmt.Errorf("invalid date %d-%02d-%02d", 2000+year, month, day)
	}
	return nil
}
