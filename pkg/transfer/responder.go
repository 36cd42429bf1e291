package transfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/sampling"
)

// Source supplies the data served by a Responder.
type Source interface {
	Graphs() (sampling.GraphDump, error)
	ChronologicalSnapshots() ([]sample.Snapshot, error)
}

// Responder answers sync commands on the logger side.
type Responder struct {
	source  Source
	version string
}

// NewResponder returns a responder serving src and reporting version.
func NewResponder(src Source, version string) *Responder {
	return &Responder{source: src, version: version}
}

// Serve reads commands from rw and answers each one until rw reports
// io.EOF or ctx is done. Bytes outside a command frame are skipped.
func (r *Responder) Serve(ctx context.Context, rw io.ReadWriter) error {
	in := bufio.NewReader(rw)
	matched := 0

	for ctx.Err() == nil {
		c, err := in.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch {
		case c == commandPrefix[matched]:
			matched++
		case c == commandPrefix[0]:
			matched = 1
			continue
		default:
			matched = 0
			continue
		}
		if matched < len(commandPrefix) {
			continue
		}
		matched = 0

		cmd, err := in.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if cmd == 0 {
			continue
		}
		if err := r.respond(rw, cmd); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (r *Responder) respond(w io.Writer, cmd byte) error {
	payload, err := r.payload(cmd)
	if err != nil {
		// the host sees a bad checksum or a short payload and retries
		log.Printf("sync: command %q failed: %v", cmd, err)
		payload = nil
	}

	frame := make([]byte, 0, len(responsePrefix)+len(payload)+1)
	frame = append(frame, responsePrefix...)
	frame = append(frame, payload...)
	frame = append(frame, Checksum(payload))
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("sync: write response: %w", err)
	}
	return nil
}

func (r *Responder) payload(cmd byte) ([]byte, error) {
	switch cmd {
	case CmdVersion:
		return EncodeVersion(r.version), nil
	case CmdGraphs:
		dump, err := r.source.Graphs()
		if err != nil {
			return nil, err
		}
		return EncodeGraphs(dump)
	case CmdSnapshots:
		snaps, err := r.source.ChronologicalSnapshots()
		if err != nil {
			return nil, err
		}
		return EncodeSnapshots(snaps)
	default:
		return nil, nil
	}
}
