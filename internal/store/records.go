package store

import "github.com/dukerupert/homebase/internal/model"

// Decoders from generic rows to domain records.

func UserFromRow(r Row) model.User {
	return model.User{
		ID:           r.Int64("id"),
		Email:        r.String("email"),
		Name:         r.String("name"),
		PasswordHash: r.String("password_hash"),
		CreatedAt:    r.Time("created_at"),
		UpdatedAt:    r.Time("updated_at"),
		DeletedAt:    r.TimePtr("deleted_at"),
	}
}

func HouseholdFromRow(r Row) model.Household {
	return model.Household{
		ID:        r.Int64("id"),
		Name:      r.String("name"),
		Currency:  r.String("currency"),
		Timezone:  r.String("timezone"),
		CreatedAt: r.Time("created_at"),
		UpdatedAt: r.Time("updated_at"),
		DeletedAt: r.TimePtr("deleted_at"),
	}
}

func HouseholdMemberFromRow(r Row) model.HouseholdMember {
	return model.HouseholdMember{
		ID:          r.Int64("id"),
		HouseholdID: r.Int64("household_id"),
		UserID:      r.Int64("user_id"),
		Role:        r.String("role"),
		IsActive:    r.Bool("is_active"),
		IsAccepted:  r.Bool("is_accepted"),
		JoinedAt:    r.TimePtr("joined_at"),
		CreatedAt:   r.Time("created_at"),
		UpdatedAt:   r.Time("updated_at"),
	}
}

func RecurrenceRuleFromRow(r Row) model.RecurrenceRule {
	return model.RecurrenceRule{
		ID:        r.Int64("id"),
		Frequency: r.String("frequency"),
		Interval:  int(r.Int64("interval")),
	}
}

func EventFromRow(r Row) model.Event {
	return model.Event{
		ID:          r.Int64("id"),
		HouseholdID: r.Int64("household_id"),
		CreatedBy:   r.Int64Ptr("created_by"),
		Title:       r.String("title"),
		Description: r.String("description"),
		Category:    r.String("category"),
		Status:      r.String("status"),
		StartTime:   r.Time("start_time"),
		EndTime:     r.Time("end_time"),
		IsAllDay:    r.Bool("is_all_day"),
		IsPrivate:   r.Bool("is_private"),
		CreatedAt:   r.Time("created_at"),
		UpdatedAt:   r.Time("updated_at"),
		DeletedAt:   r.TimePtr("deleted_at"),
	}
}

func ChoreFromRow(r Row) model.Chore {
	return model.Chore{
		ID:               r.Int64("id"),
		HouseholdID:      r.Int64("household_id"),
		Title:            r.String("title"),
		Description:      r.String("description"),
		Status:           r.String("status"),
		DueDate:          r.TimePtr("due_date"),
		RecurrenceRuleID: r.Int64Ptr("recurrence_rule_id"),
		EventID:          r.Int64Ptr("event_id"),
		CreatedBy:        r.Int64Ptr("created_by"),
		CreatedAt:        r.Time("created_at"),
		UpdatedAt:        r.Time("updated_at"),
		DeletedAt:        r.TimePtr("deleted_at"),
	}
}

func ChoreAssignmentFromRow(r Row) model.ChoreAssignment {
	return model.ChoreAssignment{
		ID:         r.Int64("id"),
		ChoreID:    r.Int64("chore_id"),
		UserID:     r.Int64("user_id"),
		AssignedAt: r.Time("assigned_at"),
	}
}

func ExpenseFromRow(r Row) model.Expense {
	return model.Expense{
		ID:          r.Int64("id"),
		HouseholdID: r.Int64("household_id"),
		PaidBy:      r.Int64Ptr("paid_by"),
		Description: r.String("description"),
		Amount:      r.Float64("amount"),
		Category:    r.String("category"),
		DueDate:     r.TimePtr("due_date"),
		CreatedAt:   r.Time("created_at"),
		UpdatedAt:   r.Time("updated_at"),
		DeletedAt:   r.TimePtr("deleted_at"),
	}
}

func ExpenseSplitFromRow(r Row) model.ExpenseSplit {
	return model.ExpenseSplit{
		ID:        r.Int64("id"),
		ExpenseID: r.Int64("expense_id"),
		UserID:    r.Int64("user_id"),
		Amount:    r.Float64("amount"),
	}
}

func ThreadFromRow(r Row) model.Thread {
	return model.Thread{
		ID:          r.Int64("id"),
		HouseholdID: r.Int64("household_id"),
		AuthorID:    r.Int64Ptr("author_id"),
		Title:       r.String("title"),
		CreatedAt:   r.Time("created_at"),
		UpdatedAt:   r.Time("updated_at"),
		DeletedAt:   r.TimePtr("deleted_at"),
	}
}

func MessageFromRow(r Row) model.Message {
	return model.Message{
		ID:        r.Int64("id"),
		ThreadID:  r.Int64("thread_id"),
		AuthorID:  r.Int64Ptr("author_id"),
		Content:   r.String("content"),
		CreatedAt: r.Time("created_at"),
		UpdatedAt: r.Time("updated_at"),
		DeletedAt: r.TimePtr("deleted_at"),
	}
}

func NotificationFromRow(r Row) model.Notification {
	return model.Notification{
		ID:        r.Int64("id"),
		UserID:    r.Int64("user_id"),
		Type:      r.String("type"),
		Message:   r.String("message"),
		IsRead:    r.Bool("is_read"),
		CreatedAt: r.Time("created_at"),
	}
}

func NotificationSettingsFromRow(r Row) model.NotificationSettings {
	return model.NotificationSettings{
		ID:             r.Int64("id"),
		UserID:         r.Int64("user_id"),
		MessageNotif:   r.Bool("message_notif"),
		ChoreNotif:     r.Bool("chore_notif"),
		FinanceNotif:   r.Bool("finance_notif"),
		CalendarNotif:  r.Bool("calendar_notif"),
		RemindersNotif: r.Bool("reminders_notif"),
	}
}

func PushSubscriptionFromRow(r Row) model.PushSubscription {
	return model.PushSubscription{
		ID:         r.Int64("id"),
		UserID:     r.Int64("user_id"),
		Endpoint:   r.String("endpoint"),
		P256dhKey:  r.String("p256dh_key"),
		AuthKey:    r.String("auth_key"),
		DeviceName: r.String("device_name"),
		CreatedAt:  r.Time("created_at"),
	}
}
