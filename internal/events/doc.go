// Package events defines the append-only pipeline event taxonomy: one type
// per observable transition, each bound to a stage and a metadata schema.
// The store validates against this registry before persisting.
package events
