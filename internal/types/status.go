package types

// Status is the lifecycle status of a persisted resource. Soft-deleted
// resources keep their rows but are excluded from queries.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
