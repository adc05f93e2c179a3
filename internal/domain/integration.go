package domain

import "time"

// Integration is an external activity source (issue tracker, VCS host) the
// user connected. Sync jobs read these; nothing else in the core does.
type Integration struct {
	ID        string
	UserID    string
	Kind      string
	Enabled   bool
	Config    []byte
	CreatedAt time.Time
}
