// Package archive keeps a JSON report of every attempt that found drift.
//
// Reports are stored under <prefix>/<tenant>/<entity>/<recordID>.json and
// carry the finalized record together with the ids that were missing, extra
// or carried a stale status.
package archive
