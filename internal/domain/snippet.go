package domain

import "time"

// SnippetKind distinguishes how a snippet row came to exist.
type SnippetKind string

const (
	// SnippetKindEntry is a note the user wrote themselves.
	SnippetKindEntry SnippetKind = "entry"
	// SnippetKindImported came from an integration sync.
	SnippetKindImported SnippetKind = "imported"
	// SnippetKindReflection is a generated weekly write-up. Its presence is
	// what marks an ISO week as already generated.
	SnippetKindReflection SnippetKind = "reflection"
)

// Snippet is one dated work note or generated reflection, keyed to the ISO
// week (Monday-start) it belongs to.
type Snippet struct {
	ID        string
	UserID    string
	Kind      SnippetKind
	Source    string
	Content   string
	ISOYear   int
	ISOWeek   int
	WeekStart time.Time
	WeekEnd   time.Time
	CreatedAt time.Time
}
