package model

import "time"

// Event categories and statuses used by generated chore events.
const (
	EventCategoryChore = "CHORE"
	EventCategoryOther = "OTHER"

	EventStatusScheduled = "SCHEDULED"
	EventStatusCancelled = "CANCELLED"
)

type Event struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	CreatedBy   *int64     `json:"created_by"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Status      string     `json:"status"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	IsAllDay    bool       `json:"is_all_day"`
	IsPrivate   bool       `json:"is_private"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
