package store

import "fmt"

// Model names accepted by Store. Each maps to one table.
const (
	ModelUser                 = "user"
	ModelHousehold            = "household"
	ModelHouseholdMember      = "householdMember"
	ModelRecurrenceRule       = "recurrenceRule"
	ModelEvent                = "event"
	ModelChore                = "chore"
	ModelChoreAssignment      = "choreAssignment"
	ModelExpense              = "expense"
	ModelExpenseSplit         = "expenseSplit"
	ModelTransaction          = "transaction"
	ModelThread               = "thread"
	ModelMessage              = "message"
	ModelAttachment           = "attachment"
	ModelNotification         = "notification"
	ModelNotificationSettings = "notificationSettings"
	ModelPushSubscription     = "pushSubscription"
)

type table struct {
	name    string
	columns []string
	known   map[string]struct{}
}

func newTable(name string, columns ...string) *table {
	t := &table{name: name, columns: columns, known: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		t.known[c] = struct{}{}
	}
	return t
}

func (t *table) has(col string) bool {
	_, ok := t.known[col]
	return ok
}

var schema = map[string]*table{
	ModelUser: newTable("users",
		"id", "email", "name", "password_hash", "created_at", "updated_at", "deleted_at"),
	ModelHousehold: newTable("households",
		"id", "name", "currency", "timezone", "created_at", "updated_at", "deleted_at"),
	ModelHouseholdMember: newTable("household_members",
		"id", "household_id", "user_id", "role", "is_active", "is_accepted", "joined_at", "created_at", "updated_at"),
	ModelRecurrenceRule: newTable("recurrence_rules",
		"id", "frequency", "interval", "created_at", "updated_at"),
	ModelEvent: newTable("events",
		"id", "household_id", "created_by", "title", "description", "category", "status",
		"start_time", "end_time", "is_all_day", "is_private", "created_at", "updated_at", "deleted_at"),
	ModelChore: newTable("chores",
		"id", "household_id", "title", "description", "status", "due_date", "recurrence_rule_id",
		"event_id", "created_by", "created_at", "updated_at", "deleted_at"),
	ModelChoreAssignment: newTable("chore_assignments",
		"id", "chore_id", "user_id", "assigned_at"),
	ModelExpense: newTable("expenses",
		"id", "household_id", "paid_by", "description", "amount", "category", "due_date",
		"created_at", "updated_at", "deleted_at"),
	ModelExpenseSplit: newTable("expense_splits",
		"id", "expense_id", "user_id", "amount", "created_at"),
	ModelTransaction: newTable("transactions",
		"id", "household_id", "expense_id", "from_user_id", "to_user_id", "amount", "status",
		"created_at", "updated_at", "deleted_at"),
	ModelThread: newTable("threads",
		"id", "household_id", "author_id", "title", "created_at", "updated_at", "deleted_at"),
	ModelMessage: newTable("messages",
		"id", "thread_id", "author_id", "content", "created_at", "updated_at", "deleted_at"),
	ModelAttachment: newTable("attachments",
		"id", "message_id", "url", "file_type", "created_at", "updated_at", "deleted_at"),
	ModelNotification: newTable("notifications",
		"id", "user_id", "type", "message", "is_read", "created_at"),
	ModelNotificationSettings: newTable("notification_settings",
		"id", "user_id", "message_notif", "chore_notif", "finance_notif", "calendar_notif",
		"reminders_notif", "created_at", "updated_at"),
	ModelPushSubscription: newTable("push_subscriptions",
		"id", "user_id", "endpoint", "p256dh_key", "auth_key", "device_name", "created_at"),
}

func lookup(model string) (*table, error) {
	t, ok := schema[model]
	if !ok {
		return nil, fmt.Errorf("%w: unknown model %q", ErrInvalidQuery, model)
	}
	return t, nil
}

// HasColumn reports whether model is registered and carries col.
func HasColumn(model, col string) bool {
	t, ok := schema[model]
	return ok && t.has(col)
}
