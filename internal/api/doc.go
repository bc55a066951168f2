// Package api defines wire-format types and read services for the CLI and
// HTTP surface. It translates internal store models into transport-friendly
// DTOs so consumers can render queue state, claims, summaries, and the audit
// trail without coupling to internal types.
//
// # Key Types
//
// ArtifactView: transport representation of a note artifact with stage,
// transcript, and retry details.
//
// ArtifactDetail: artifact plus its claims, summaries, and audit events.
//
// QueueHealth: per-stage artifact counts with failed and in-flight totals.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (store.Stage, claims.Status)
// are exposed as lowercase strings. Timestamps use RFC3339. Intake lives here
// too so the CLI and HTTP submit paths share one artifact_received audit
// record.
package api
