package model

import "time"

type Thread struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	AuthorID    *int64     `json:"author_id"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

type Message struct {
	ID        int64      `json:"id"`
	ThreadID  int64      `json:"thread_id"`
	AuthorID  *int64     `json:"author_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
