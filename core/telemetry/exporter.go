package telemetry

import (
	"context"
	"time"

	"drift-reconciler/core/reconcile"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

// Measurement is the InfluxDB measurement written for every attempt.
const Measurement = "reconciliation"

// PointWriter is satisfied by api.WriteAPIBlocking.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Exporter writes one point per finalized attempt.
type Exporter struct {
	writer PointWriter
	logger *zap.Logger
}

var _ reconcile.Observer = (*Exporter)(nil)

// NewExporter creates an exporter on top of writer.
func NewExporter(writer PointWriter, logger *zap.Logger) *Exporter {
	return &Exporter{writer: writer, logger: logger}
}

// Connect builds an exporter backed by a blocking InfluxDB write API.
// The returned func closes the client.
func Connect(cfg Config, logger *zap.Logger) (*Exporter, func()) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return NewExporter(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), logger), client.Close
}

// Point converts a finalized record into an InfluxDB point.
func Point(record reconcile.Record) *write.Point {
	p := influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("tenant", record.TenantID).
		AddTag("entity_type", record.EntityType).
		AddTag("status", string(record.Status)).
		AddField("record_id", record.ID).
		AddField("window_start", record.WindowStart).
		AddField("window_end", record.WindowEnd).
		AddField("duration_ms", record.EndedAt-record.StartedAt).
		AddField("missing", record.MissingCount).
		AddField("duplicates", record.DuplicateCount).
		AddField("mismatches", record.MismatchCount).
		AddField("failed_repairs", record.FailedRepairs).
		SetTime(time.UnixMilli(record.EndedAt))
	if record.DetectionStatus != "" {
		p.AddTag("detection_status", string(record.DetectionStatus))
	}
	if record.FailureReason != "" {
		p.AddField("failure_reason", record.FailureReason)
	}
	return p
}

// AttemptFinished exports the record. Write errors are logged only.
func (e *Exporter) AttemptFinished(ctx context.Context, record reconcile.Record, _ reconcile.Drift) {
	if err := e.writer.WritePoint(ctx, Point(record)); err != nil {
		e.logger.Warn("Failed to export reconciliation record",
			zap.String("record_id", record.ID),
			zap.Error(err))
	}
}
