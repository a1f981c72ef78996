package student

import (
	"context"
	"time"
)

// Repository is the record store the follow-up job reads from and writes back to.
type Repository interface {
	// ListCandidates returns every record eligible for follow-up, following pagination to the end.
	ListCandidates(ctx context.Context) ([]*Status, error)
	// SetLastContact sets the contact-date field to the calendar day of at.
	SetLastContact(ctx context.Context, id string, at time.Time) error
	// AddTag adds tag to the record's follow-up tags. Returns added=false when it was already present.
	AddTag(ctx context.Context, id string, tag string) (added bool, err error)
	// SetPlacementStatus overwrites the placement-status field.
	SetPlacementStatus(ctx context.Context, id string, status string) error
}
