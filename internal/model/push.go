package model

import "time"

// Notification type constants
const (
	NotifTypeNewMessage      = "NEW_MESSAGE"
	NotifTypeChoreAssigned   = "CHORE_ASSIGNED"
	NotifTypeExpenseUpdated  = "EXPENSE_UPDATED"
	NotifTypePaymentReminder = "PAYMENT_REMINDER"
	NotifTypeEventReminder   = "EVENT_REMINDER"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationSettings holds a user's per-category opt-ins.
type NotificationSettings struct {
	ID             int64 `json:"id"`
	UserID         int64 `json:"user_id"`
	MessageNotif   bool  `json:"message_notif"`
	ChoreNotif     bool  `json:"chore_notif"`
	FinanceNotif   bool  `json:"finance_notif"`
	CalendarNotif  bool  `json:"calendar_notif"`
	RemindersNotif bool  `json:"reminders_notif"`
}

// PushSubscription is a registered device token for web push.
type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
