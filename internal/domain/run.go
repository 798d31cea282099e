package domain

import "time"

// Run is a persisted scheduling run
type Run struct {
	ID             string
	StartDate      time.Time
	SortBy         SortKey
	InstanceCount  int
	BatchCount     int
	Exchanges      int
	Postponements  int
	SameDateGroups int
	StartedAt      time.Time
	FinishedAt     time.Time
}
