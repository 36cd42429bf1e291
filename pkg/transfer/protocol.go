// Package transfer implements the sync protocol used to pull graphs and
// snapshots off a logger over a byte stream.
//
// A request is the bytes "CMD" followed by a command byte. The logger
// answers "LOG", the command payload, and one byte holding the XOR of
// every payload byte.
package transfer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/sampling"
)

// Commands.
const (
	CmdVersion   byte = '1'
	CmdGraphs    byte = '2'
	CmdSnapshots byte = '3'
)

const (
	// FormatVersion is the only graph and snapshot section version understood.
	FormatVersion = 1

	// VersionSize is the fixed length of the NUL padded version payload.
	VersionSize = 10

	graphsHeaderSize    = 9
	snapshotsHeaderSize = 2
)

var (
	commandPrefix  = []byte("CMD")
	responsePrefix = []byte("LOG")
)

var (
	ErrUnsupportedVersion = errors.New("transfer: unsupported format version")
	ErrChecksum           = errors.New("transfer: checksum mismatch")
	ErrNoResponse         = errors.New("transfer: no response header")
	ErrShortPayload       = errors.New("transfer: payload truncated")
)

// Checksum returns the XOR of every byte of b.
func Checksum(b []byte) byte {
	var c byte
	for _, v := range b {
		c ^= v
	}
	return c
}

// EncodeVersion returns the version payload for v.
func EncodeVersion(v string) []byte {
	b := make([]byte, VersionSize)
	copy(b[:VersionSize-1], v)
	return b
}

// DecodeVersion returns the string before the first NUL.
func DecodeVersion(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// EncodeGraphs returns the graph section for dump.
func EncodeGraphs(dump sampling.GraphDump) ([]byte, error) {
	perGraph := 0
	if len(dump.Graphs) > 0 {
		perGraph = len(dump.Graphs[0].Samples)
	}
	if len(dump.Graphs) > 255 || perGraph > 255 {
		return nil, fmt.Errorf("transfer: %d graphs of %d samples do not fit the header", len(dump.Graphs), perGraph)
	}

	now := dump.Time
	b := make([]byte, 0, graphsHeaderSize+len(dump.Graphs)*(2+perGraph*sample.Size))
	b = append(b,
		FormatVersion,
		byte(len(dump.Graphs)),
		byte(perGraph),
		byte(now.Second), byte(now.Minute), byte(now.Hour),
		byte(now.Day), byte(now.Month), byte(now.Year),
	)
	for i, g := range dump.Graphs {
		if len(g.Samples) != perGraph {
			return nil, fmt.Errorf("transfer: graph %d has %d samples, want %d", i, len(g.Samples), perGraph)
		}
		b = binary.BigEndian.AppendUint16(b, uint16(g.Timescale.Cadence))
		for _, s := range g.Samples {
			b, _ = s.AppendBinary(b)
		}
	}
	return b, nil
}

// graphsLength returns the full section length given its header.
func graphsLength(header []byte) (int, error) {
	if header[0] != FormatVersion {
		return 0, fmt.Errorf("%w: graphs version %d", ErrUnsupportedVersion, header[0])
	}
	graphs, perGraph := int(header[1]), int(header[2])
	return graphsHeaderSize + graphs*(2+perGraph*sample.Size), nil
}

// DecodeGraphs parses a graph section. Decoded timescales carry only
// their cadence.
func DecodeGraphs(b []byte) (sampling.GraphDump, error) {
	if len(b) < graphsHeaderSize {
		return sampling.GraphDump{}, ErrShortPayload
	}
	n, err := graphsLength(b)
	if err != nil {
		return sampling.GraphDump{}, err
	}
	if len(b) < n {
		return sampling.GraphDump{}, ErrShortPayload
	}

	dump := sampling.GraphDump{
		Time: clock.Time{
			Second: int(b[3]),
			Minute: int(b[4]),
			Hour:   int(b[5]),
			Day:    int(b[6]),
			Month:  int(b[7]),
			Year:   int(b[8]),
		},
	}
	graphs, perGraph := int(b[1]), int(b[2])
	p := b[graphsHeaderSize:]
	for g := 0; g < graphs; g++ {
		graph := sampling.Graph{
			Timescale: sampling.Timescale{Cadence: int(binary.BigEndian.Uint16(p))},
			Samples:   make([]sample.Sample, perGraph),
		}
		p = p[2:]
		for i := range graph.Samples {
			graph.Samples[i] = sample.Unpack(binary.LittleEndian.Uint32(p))
			p = p[sample.Size:]
		}
		dump.Graphs = append(dump.Graphs, graph)
	}
	return dump, nil
}

// EncodeSnapshots returns the snapshot section for snaps, oldest first.
func EncodeSnapshots(snaps []sample.Snapshot) ([]byte, error) {
	if len(snaps) > 255 {
		return nil, fmt.Errorf("transfer: %d snapshots do not fit the header", len(snaps))
	}
	b := make([]byte, 0, snapshotsHeaderSize+len(snaps)*sample.SnapshotSize)
	b = append(b, FormatVersion, byte(len(snaps)))
	for _, s := range snaps {
		b = binary.LittleEndian.AppendUint32(b, uint32(s.Time))
		b, _ = s.Sample.AppendBinary(b)
	}
	return b, nil
}

func snapshotsLength(header []byte) (int, error) {
	if header[0] != FormatVersion {
		return 0, fmt.Errorf("%w: snapshots version %d", ErrUnsupportedVersion, header[0])
	}
	return snapshotsHeaderSize + int(header[1])*sample.SnapshotSize, nil
}

// DecodeSnapshots parses a snapshot section.
func DecodeSnapshots(b []byte) ([]sample.Snapshot, error) {
	if len(b) < snapshotsHeaderSize {
		return nil, ErrShortPayload
	}
	n, err := snapshotsLength(b)
	if err != nil {
		return nil, err
	}
	if len(b) < n {
		return nil, ErrShortPayload
	}

	count := int(b[1])
	snaps := make([]sample.Snapshot, count)
	p := b[snapshotsHeaderSize:]
	for i := range snaps {
		if err := snaps[i].UnmarshalBinary(p[:sample.SnapshotSize]); err != nil {
			return nil, err
		}
		p = p[sample.SnapshotSize:]
	}
	return snaps, nil
}
