package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"drift-reconciler/core/reconcile"
	"drift-reconciler/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ErrReportNotFound is returned when no report exists for a record.
var ErrReportNotFound = errors.New("drift report not found")

// Report is the archived form of one finalized attempt.
type Report struct {
	Record reconcile.Record `json:"record"`
	Drift  reconcile.Drift  `json:"drift"`
}

// Archiver writes drift reports to object storage.
type Archiver struct {
	client storage.Client
	bucket string
	cfg    Config
	logger *zap.Logger
}

var _ reconcile.Observer = (*Archiver)(nil)

// NewArchiver creates an archiver writing into bucket.
func NewArchiver(client storage.Client, bucket string, cfg Config, logger *zap.Logger) *Archiver {
	return &Archiver{client: client, bucket: bucket, cfg: cfg, logger: logger}
}

// Key returns the object key of the report of one record.
func (a *Archiver) Key(tenantID, entityType, recordID string) string {
	return path.Join(a.cfg.Prefix, tenantID, entityType, recordID+".json")
}

// AttemptFinished uploads the report of a finalized attempt.
// Upload failures are logged; the attempt outcome is already persisted.
func (a *Archiver) AttemptFinished(ctx context.Context, record reconcile.Record, drift reconcile.Drift) {
	if a.cfg.OnlyDrift && drift.IsClean() {
		return
	}
	if err := a.Put(ctx, Report{Record: record, Drift: drift}); err != nil {
		a.logger.Warn("Failed to archive drift report",
			zap.String("tenant", record.TenantID),
			zap.String("entity", record.EntityType),
			zap.String("record_id", record.ID),
			zap.Error(err))
	}
}

// Put uploads a report.
func (a *Archiver) Put(ctx context.Context, report Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode drift report: %w", err)
	}

	key := a.Key(report.Record.TenantID, report.Record.EntityType, report.Record.ID)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Get reads the report of one record back.
func (a *Archiver) Get(ctx context.Context, tenantID, entityType, recordID string) (*Report, error) {
	key := a.Key(tenantID, entityType, recordID)
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, a.readError(key, err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, a.readError(key, err)
	}

	var report Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &report, nil
}

func (a *Archiver) readError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s: %w", key, ErrReportNotFound)
	}
	return fmt.Errorf("failed to read %s: %w", key, err)
}

// List returns the record ids with an archived report, newest first.
func (a *Archiver) List(ctx context.Context, tenantID, entityType string) ([]string, error) {
	prefix := path.Join(a.cfg.Prefix, tenantID, entityType) + "/"

	ids := make([]string, 0)
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if !strings.HasSuffix(name, ".json") || strings.Contains(name, "/") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	// UUIDv7 ids sort by creation time.
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}
