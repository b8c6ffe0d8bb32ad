package model

import "time"

// Household roles.
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

type Household struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Currency  string     `json:"currency"`
	Timezone  string     `json:"timezone"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type HouseholdMember struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	UserID      int64      `json:"user_id"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	IsAccepted  bool       `json:"is_accepted"`
	JoinedAt    *time.Time `json:"joined_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Eligible reports whether the member counts towards household activity.
func (m HouseholdMember) Eligible() bool {
	return m.IsActive && m.IsAccepted
}
