// Package export writes logger graphs and snapshots as CSV or JSON, and
// restores snapshots from a JSON export.
//
// # CSV Format
//
// Graph exports hold one block per timescale: a "Graph N" title row, the
// header row, then one row per written sample, oldest first:
//
//	Graph 1
//	Time,Temperature (deg F),Altitude (ft),Pressure (in)
//	10/19/26 7:05 AM,68.0,1000,29.92
//
// Sample times are reconstructed from the clock reading taken with the
// dump: the newest sample of a timescale with cadence c was taken at the
// most recent minute of the day divisible by c, and each older sample c
// minutes before the next.
//
// Snapshot exports are the header followed by one row per snapshot.
//
// # HTTP API
//
//	GET  /v1/export/graphs?format=csv&units=metric
//	GET  /v1/export/snapshots?format=json
//	POST /v1/import/snapshots   (Content-Type: application/json)
//
// Import validates each snapshot and skips invalid ones rather than
// failing the whole request; skipped entries are listed in ImportResult.
package export
