// Package claims defines the claim domain model: topics, statuses, entity
// mentions, and the validation applied to extractor output before anything
// is persisted. A claim is one discrete assertion about a player, team, or
// session pulled out of a coach's note.
package claims
