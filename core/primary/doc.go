// Package primary reads the authoritative document store (MongoDB).
//
// MongoAdapter implements reconcile.Primary for one collection. It never writes.
// Entity specific rules, such as excluding child executions, live in the
// Profile filter rather than in code.
//
// MongoAdapter also lists tenants through Distinct, which the scheduler uses
// when no explicit tenant list is configured.
package primary
