package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"drift-reconciler/core/reconcile"
	"drift-reconciler/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRecord() reconcile.Record {
	return reconcile.Record{
		ID:         "0190f1c2-0000-7000-8000-000000000001",
		TenantID:   "acme",
		EntityType: "executions",
		Status:     reconcile.StatusSuccess,
	}
}

func newArchiver(client *mocks.Client, onlyDrift bool) *Archiver {
	return NewArchiver(client, "reconciliation", Config{Prefix: "drift-reports", OnlyDrift: onlyDrift}, zap.NewNop())
}

func TestKey(t *testing.T) {
	a := newArchiver(new(mocks.Client), true)
	assert.Equal(t, "drift-reports/acme/executions/r1.json", a.Key("acme", "executions", "r1"))
}

func TestAttemptFinished_UploadsDrift(t *testing.T) {
	client := new(mocks.Client)
	a := newArchiver(client, true)

	record := testRecord()
	drift := reconcile.Drift{Missing: []string{"e1"}, Extra: []string{}, Mismatches: map[string]reconcile.StatusPair{}}

	var uploaded []byte
	client.On("PutObject", mock.Anything, "reconciliation", "drift-reports/acme/executions/"+record.ID+".json",
		mock.Anything, mock.AnythingOfType("int64"), mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "application/json"
		})).
		Run(func(args mock.Arguments) {
			uploaded, _ = io.ReadAll(args.Get(3).(io.Reader))
		}).
		Return(minio.UploadInfo{}, nil)

	a.AttemptFinished(context.Background(), record, drift)

	client.AssertExpectations(t)
	var report Report
	require.NoError(t, json.Unmarshal(uploaded, &report))
	assert.Equal(t, []string{"e1"}, report.Drift.Missing)
	assert.Equal(t, record.ID, report.Record.ID)
}

func TestAttemptFinished_SkipsCleanAttempts(t *testing.T) {
	client := new(mocks.Client)
	a := newArchiver(client, true)

	a.AttemptFinished(context.Background(), testRecord(), reconcile.Drift{})

	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAttemptFinished_UploadFailureIsSwallowed(t *testing.T) {
	client := new(mocks.Client)
	a := newArchiver(client, false)
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("connection reset"))

	assert.NotPanics(t, func() {
		a.AttemptFinished(context.Background(), testRecord(), reconcile.Drift{})
	})
	client.AssertExpectations(t)
}

func TestGet(t *testing.T) {
	client := new(mocks.Client)
	a := newArchiver(client, true)

	body, _ := json.Marshal(Report{Record: testRecord(), Drift: reconcile.Drift{Extra: []string{"x"}}})
	client.On("GetObject", mock.Anything, "reconciliation", "drift-reports/acme/executions/r1.json", mock.Anything).
		Return(io.NopCloser(bytes.NewReader(body)), nil)

	report, err := a.Get(context.Background(), "acme", "executions", "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, report.Drift.Extra)
}

func TestGet_NotFound(t *testing.T) {
	client := new(mocks.Client)
	a := newArchiver(client, true)
	client.On("GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})

	_, err := a.Get(context.Background(), "acme", "executions", "missing")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestList(t *testing.T) {
	client := new(mocks.Client)
	a := newArchiver(client, true)

	ch := make(chan minio.ObjectInfo, 4)
	ch <- minio.ObjectInfo{Key: "drift-reports/acme/executions/0001.json"}
	ch <- minio.ObjectInfo{Key: "drift-reports/acme/executions/0003.json"}
	ch <- minio.ObjectInfo{Key: "drift-reports/acme/executions/nested/0002.json"}
	ch <- minio.ObjectInfo{Key: "drift-reports/acme/executions/README"}
	close(ch)
	client.On("ListObjects", mock.Anything, "reconciliation", minio.ListObjectsOptions{
		Prefix:    "drift-reports/acme/executions/",
		Recursive: true,
	}).Return((<-chan minio.ObjectInfo)(ch))

	ids, err := a.List(context.Background(), "acme", "executions")
	require.NoError(t, err)
	assert.Equal(t, []string{"0003", "0001"}, ids)
}

func TestList_Error(t *testing.T) {
	client := new(mocks.Client)
	a := newArchiver(client, true)

	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: errors.New("bucket gone")}
	close(ch)
	client.On("ListObjects", mock.Anything, mock.Anything, mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

	_, err := a.List(context.Background(), "acme", "executions")
	assert.ErrorContains(t, err, "bucket gone")
}
