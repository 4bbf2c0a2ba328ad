// Package pipeline declares the reconciled entity types of the pipeline
// platform and wires their adapters into the engine.
//
//   - applications: no status lifecycle, only row-count drift is repaired.
//   - executions: top-level pipeline executions; child executions are excluded.
//   - deployments: top-level deployment stages.
//
// Each entity is data only: a primary.Profile and a mirror.Profile. Adding an
// entity type means adding one Entity to Entities.
package pipeline
