// Package daemon coordinates the long-running sidelined process.
//
// It wires configuration, the artifact store, and the pipeline manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon also hosts the token-authenticated HTTP surface that exposes
// intake, queue state, the audit event stream, and flag listings.
//
// Keep orchestration logic here: individual pipeline stages live in their own
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
