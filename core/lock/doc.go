// Package lock provides the leased mutual-exclusion primitive used to serialize
// reconciliation attempts across replicas.
//
// RedisLocker is the production backend, built on bsm/redislock. MemoryLocker
// offers the same lease semantics inside a single process and backs tests and
// single-node deployments.
//
// A lease expires on its own after its TTL even while the holder is still running.
// Callers that may outlive the lease refresh it with Lock.Refresh.
package lock
