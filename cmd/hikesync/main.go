// Command hikesync downloads graphs and snapshots from a logger over its
// serial sync port and writes them to stdout.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nicktill/hikelog/pkg/export"
	"github.com/nicktill/hikelog/pkg/transfer"
	"github.com/nicktill/hikelog/pkg/units"
)

type options struct {
	port      string
	baud      uint
	timeout   time.Duration
	version   bool
	graphs    bool
	snapshots bool
	raw       bool
	units     string
}

func main() {
	var opts options
	flag.StringVar(&opts.port, "p", "", "serial port of the logger (required)")
	flag.UintVar(&opts.baud, "b", transfer.DefaultBaudRate, "baud rate")
	flag.DurationVar(&opts.timeout, "t", time.Second, "read timeout, a multiple of 100ms")
	flag.BoolVar(&opts.version, "v", false, "print the firmware version")
	flag.BoolVar(&opts.graphs, "g", false, "download graphs")
	flag.BoolVar(&opts.snapshots, "s", false, "download snapshots")
	flag.BoolVar(&opts.raw, "r", false, "write raw payloads instead of CSV")
	flag.StringVar(&opts.units, "u", "imperial", "units for CSV output: imperial or metric")
	flag.Parse()

	// stdout carries the data
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	if err := run(opts, os.Stdout); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(opts options, out io.Writer) error {
	if opts.port == "" {
		return fmt.Errorf("no serial port given (-p)")
	}
	if !opts.version && !opts.graphs && !opts.snapshots {
		return fmt.Errorf("nothing to do: pass -v, -g or -s")
	}
	if opts.timeout%(100*time.Millisecond) != 0 {
		return fmt.Errorf("timeout %v is not a multiple of 100ms", opts.timeout)
	}
	sys, err := units.ParseSystem(opts.units)
	if err != nil {
		return err
	}

	port, err := transfer.OpenSerial(transfer.SerialConfig{
		Port:     opts.port,
		BaudRate: opts.baud,
		Timeout:  opts.timeout,
	})
	if err != nil {
		return err
	}
	defer port.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := bufio.NewWriter(out)
	defer w.Flush()
	return download(ctx, transfer.NewClient(port), opts, sys, w)
}

// download runs the requested commands in order: version, graphs,
// snapshots.
func download(ctx context.Context, client *transfer.Client, opts options, sys units.System, w io.Writer) error {
	if opts.version {
		v, err := client.Version(ctx)
		if err != nil {
			return fmt.Errorf("version: %w", err)
		}
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}

	if opts.graphs {
		dump, raw, err := client.Graphs(ctx)
		if err != nil {
			return fmt.Errorf("graphs: %w", err)
		}
		if opts.raw {
			if _, err := w.Write(raw); err != nil {
				return err
			}
		} else {
			n, err := export.WriteGraphsCSV(w, dump, sys)
			if err != nil {
				return err
			}
			log.Printf("📈 %d samples in %d graphs", n, len(dump.Graphs))
		}
	}

	if opts.snapshots {
		snaps, raw, err := client.Snapshots(ctx)
		if err != nil {
			return fmt.Errorf("snapshots: %w", err)
		}
		if opts.raw {
			if _, err := w.Write(raw); err != nil {
				return err
			}
		} else {
			n, err := export.WriteSnapshotsCSV(w, snaps, sys)
			if err != nil {
				return err
			}
			log.Printf("📸 %d snapshots", n)
		}
	}
	return nil
}
