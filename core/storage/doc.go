// Package storage wraps the MinIO client used for S3 compatible object storage.
//
// Only the operations needed to archive and read back drift reports are
// exposed through Client, so tests can substitute mocks.Client.
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
