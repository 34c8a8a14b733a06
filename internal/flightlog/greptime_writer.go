package flightlog

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"ksp-autopilot/internal/telemetry"
)

// greptimeClient is the slice of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter streams flight samples to GreptimeDB via the ingester
// client, for dashboards over long test campaigns. GreptimeDB creates the
// table on first write.
type GreptimeDBWriter struct {
	client greptimeClient
	table  string
	log    *slog.Logger
}

// NewGreptimeDBWriter connects the ingester client. The endpoint is
// "host" or "host:port"; without a port the client default applies.
func NewGreptimeDBWriter(endpoint, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host := endpoint
	port := 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port > 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client: client,
		table:  telemetry.FlightTableName,
		log:    log,
	}, nil
}

// WriteSample inserts a single flight sample.
func (w *GreptimeDBWriter) WriteSample(row telemetry.FlightSample) error {
	return w.WriteSamples([]telemetry.FlightSample{row})
}

// WriteSamples inserts multiple flight samples.
func (w *GreptimeDBWriter) WriteSamples(rows []telemetry.FlightSample) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := sampleTable(w.table, rows)
	if err != nil {
		return err
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log.Error("greptime write failed", "err", err)
		return err
	}
	w.log.Debug("greptime write", "rows", len(rows))
	return nil
}

// sampleTable builds one ingester table carrying the given rows. Column order
// fixes the AddRow value order: tags, phase, the float fields, time index.
func sampleTable(name string, rows []telemetry.FlightSample) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, tag := range []string{"flight_id", "vessel", "body"} {
		if err := tbl.AddTagColumn(tag, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddFieldColumn("phase", types.STRING); err != nil {
		return nil, err
	}
	for _, field := range []string{
		"elapsed_s", "altitude", "apoapsis", "periapsis",
		"vertical_speed", "horizontal_speed", "speed",
		"pitch", "heading", "fuel", "oxidizer",
	} {
		if err := tbl.AddFieldColumn(field, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.FlightID, r.Vessel, r.Body, r.Phase,
			r.ElapsedS, r.Altitude, r.Apoapsis, r.Periapsis,
			r.VerticalSpeed, r.HorizontalSpeed, r.Speed,
			r.Pitch, r.Heading, r.Fuel, r.Oxidizer,
			r.Timestamp,
		); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
