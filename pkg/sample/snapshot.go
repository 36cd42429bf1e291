package sample

import (
	"encoding/binary"
	"fmt"
)

// SnapshotSize is the packed width of a Snapshot in bytes.
const SnapshotSize = 4 + Size

// Timestamp is a date and minute packed as
// ((((year*13+month)*32+day)*24+hour)*60+minute), year counted from 2000.
// Zero marks an empty snapshot slot.
type Timestamp uint32

// PackTimestamp builds a Timestamp. year is years since 2000.
func PackTimestamp(year, month, day, hour, minute int) Timestamp {
	v := uint32(year)
	v = v*13 + uint32(month)
	v = v*32 + uint32(day)
	v = v*24 + uint32(hour)
	v = v*60 + uint32(minute)
	return Timestamp(v)
}

// Unpack splits t into its fields. Months past 12 decode as 12.
func (t Timestamp) Unpack() (year, month, day, hour, minute int) {
	v := uint32(t)
	minute = int(v % 60)
	v /= 60
	hour = int(v % 24)
	v /= 24
	day = int(v % 32)
	v /= 32
	month = int(v % 13)
	if month > 12 {
		month = 12
	}
	v /= 13
	year = int(v)
	return
}

// Snapshot is a user-captured, timestamped Sample.
type Snapshot struct {
	Time   Timestamp `json:"time"`
	Sample Sample    `json:"sample"`
}

// IsEmpty reports whether the slot holding s was never written.
func (s Snapshot) IsEmpty() bool {
	return s.Time == 0
}

// MarshalBinary returns the timestamp (little-endian) followed by the packed sample.
func (s Snapshot) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, SnapshotSize)
	b = binary.LittleEndian.AppendUint32(b, uint32(s.Time))
	return s.Sample.AppendBinary(b)
}

// UnmarshalBinary decodes an 8-byte snapshot record.
func (s *Snapshot) UnmarshalBinary(b []byte) error {
	if len(b) < SnapshotSize {
		return fmt.Errorf("snapshot: need %d bytes, got %d", SnapshotSize, len(b))
	}
	s.Time = Timestamp(binary.LittleEndian.Uint32(b))
	return s.Sample.UnmarshalBinary(b[4:])
}
