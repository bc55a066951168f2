// Package store owns all SQLite persistence for the pipeline: artifacts and
// their stage machine, extracted claims, the append-only event trail, draft
// summaries with revocation bookkeeping, trust feedback, feature flags, and
// the roster tables entity resolution matches against.
//
// Stage transitions use compare-and-swap guards so concurrent workers can
// share one database, and multi-row writes (claim batches, draft batches,
// revocations) are transactional.
package store
