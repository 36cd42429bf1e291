package transfer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/sampling"
)

const (
	// DefaultScanLimit is how many bytes the client reads looking for the
	// response prefix before giving up.
	DefaultScanLimit = 300

	// DefaultByteDelay paces command bytes so a slow logger keeps up.
	DefaultByteDelay = 20 * time.Millisecond
)

// Client issues sync commands on the host side.
type Client struct {
	rw        io.ReadWriter
	in        *bufio.Reader
	ScanLimit int
	ByteDelay time.Duration
}

// NewClient returns a client talking over rw.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{
		rw:        rw,
		in:        bufio.NewReader(rw),
		ScanLimit: DefaultScanLimit,
		ByteDelay: DefaultByteDelay,
	}
}

// Version returns the logger's firmware version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	payload, err := c.roundTrip(ctx, CmdVersion, func(r io.Reader) ([]byte, error) {
		return readN(r, nil, VersionSize)
	})
	if err != nil {
		return "", err
	}
	return DecodeVersion(payload), nil
}

// Graphs fetches every timescale. The raw section is returned alongside
// the decoded one.
func (c *Client) Graphs(ctx context.Context) (sampling.GraphDump, []byte, error) {
	payload, err := c.roundTrip(ctx, CmdGraphs, func(r io.Reader) ([]byte, error) {
		header, err := readN(r, nil, graphsHeaderSize)
		if err != nil {
			return nil, err
		}
		n, err := graphsLength(header)
		if err != nil {
			return nil, err
		}
		return readN(r, header, n-graphsHeaderSize)
	})
	if err != nil {
		return sampling.GraphDump{}, nil, err
	}
	dump, err := DecodeGraphs(payload)
	return dump, payload, err
}

// Snapshots fetches the snapshot log, oldest first. The raw section is
// returned alongside the decoded one.
func (c *Client) Snapshots(ctx context.Context) ([]sample.Snapshot, []byte, error) {
	payload, err := c.roundTrip(ctx, CmdSnapshots, func(r io.Reader) ([]byte, error) {
		header, err := readN(r, nil, snapshotsHeaderSize)
		if err != nil {
			return nil, err
		}
		n, err := snapshotsLength(header)
		if err != nil {
			return nil, err
		}
		return readN(r, header, n-snapshotsHeaderSize)
	})
	if err != nil {
		return nil, nil, err
	}
	snaps, err := DecodeSnapshots(payload)
	return snaps, payload, err
}

func (c *Client) roundTrip(ctx context.Context, cmd byte, read func(io.Reader) ([]byte, error)) ([]byte, error) {
	if err := c.send(ctx, cmd); err != nil {
		return nil, err
	}
	if err := c.awaitPrefix(); err != nil {
		return nil, err
	}
	payload, err := read(c.in)
	if err != nil {
		return nil, err
	}
	sum, err := c.in.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("transfer: read checksum: %w", err)
	}
	if sum != Checksum(payload) {
		return nil, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, sum, Checksum(payload))
	}
	return payload, nil
}

// send writes two idle bytes, the command prefix and cmd, one byte at a time.
func (c *Client) send(ctx context.Context, cmd byte) error {
	frame := []byte{0, 0}
	frame = append(frame, commandPrefix...)
	frame = append(frame, cmd)

	for i, b := range frame {
		if i > 0 && c.ByteDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.ByteDelay):
			}
		}
		if _, err := c.rw.Write([]byte{b}); err != nil {
			return fmt.Errorf("transfer: send command: %w", err)
		}
	}
	return nil
}

func (c *Client) awaitPrefix() error {
	matched := 0
	for n := 0; n < c.ScanLimit; n++ {
		b, err := c.in.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoResponse, err)
		}
		switch {
		case b == responsePrefix[matched]:
			matched++
			if matched == len(responsePrefix) {
				return nil
			}
		case b == responsePrefix[0]:
			matched = 1
		default:
			matched = 0
		}
	}
	return ErrNoResponse
}

// readN reads n bytes from r and appends them to dst.
func readN(r io.Reader, dst []byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortPayload, err)
	}
	return append(dst, buf...), nil
}
