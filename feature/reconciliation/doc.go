// Package reconciliation exposes the reconciliation engine over HTTP.
//
// # HTTP Endpoints
//
//   - POST /reconciliation/:entity/run : Runs one attempt. Body {"tenant_id", "window_start", "window_end"};
//     the window defaults to the scheduler lookback ending now.
//   - GET /reconciliation/:entity/latest?tenant= : Newest record of the pair.
//   - GET /reconciliation/:entity/history?tenant=&limit= : Newest records, 50 by default.
//   - GET /reconciliation/:entity/counts?tenant=&start=&end= : Row counts of both stores, read only.
//   - GET /reconciliation/:entity/reports?tenant= : Record ids with an archived drift report.
//   - GET /reconciliation/:entity/reports/:id?tenant= : One archived drift report.
//
// A run that could not take the pair lock answers 409, other store failures 503.
// A skipped run answers 200 with status SUCCESS and the record that caused the skip.
package reconciliation
