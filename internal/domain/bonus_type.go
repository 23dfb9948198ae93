package domain

import "time"

// BonusType is a catalog entry backing the public form's bonus dropdown.
type BonusType struct {
	ID          string
	Name        string
	Label       string
	Icon        string
	Description string
	IsActive    bool
	SortOrder   int
	CreatedAt   time.Time
}
