package model

import "time"

// Chore statuses.
const (
	ChoreStatusPending    = "PENDING"
	ChoreStatusInProgress = "IN_PROGRESS"
	ChoreStatusCompleted  = "COMPLETED"
)

// Recurrence frequencies.
const (
	FrequencyDaily    = "DAILY"
	FrequencyWeekly   = "WEEKLY"
	FrequencyBiweekly = "BIWEEKLY"
	FrequencyMonthly  = "MONTHLY"
	FrequencyYearly   = "YEARLY"
)

type RecurrenceRule struct {
	ID        int64  `json:"id"`
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
}

type Chore struct {
	ID               int64      `json:"id"`
	HouseholdID      int64      `json:"household_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Status           string     `json:"status"`
	DueDate          *time.Time `json:"due_date"`
	RecurrenceRuleID *int64     `json:"recurrence_rule_id"`
	EventID          *int64     `json:"event_id"`
	CreatedBy        *int64     `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

type ChoreAssignment struct {
	ID         int64     `json:"id"`
	ChoreID    int64     `json:"chore_id"`
	UserID     int64     `json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}
