// Package notify decides whether a notification may be dispatched and sends
// it over email and push.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/homebase/internal/email"
	"github.com/dukerupert/homebase/internal/metrics"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
)

// ErrDispatch marks a failed delivery channel. It is logged, never fatal.
var ErrDispatch = errors.New("dispatch failed")

// EmailSender delivers a single email.
type EmailSender interface {
	Send(ctx context.Context, msg email.Message) error
}

// PushSender delivers a push notification to every device of a user.
type PushSender interface {
	Send(ctx context.Context, userID int64, title, body string, data map[string]string) error
}

// Enabled applies the type to preference-flag mapping.
func Enabled(prefs model.NotificationSettings, notifType string) bool {
	switch notifType {
	case model.NotifTypeNewMessage:
		return prefs.MessageNotif
	case model.NotifTypeChoreAssigned:
		return prefs.ChoreNotif
	case model.NotifTypeExpenseUpdated, model.NotifTypePaymentReminder:
		return prefs.FinanceNotif
	case model.NotifTypeEventReminder:
		return prefs.CalendarNotif || prefs.RemindersNotif
	default:
		return true
	}
}

// Subject returns the email subject and push title for a notification type.
func Subject(notifType string) string {
	switch notifType {
	case model.NotifTypeNewMessage:
		return "New Message in Your Household"
	case model.NotifTypeChoreAssigned:
		return "New Chore Assignment"
	case model.NotifTypeExpenseUpdated:
		return "Expense Update"
	case model.NotifTypePaymentReminder:
		return "Payment Reminder"
	case model.NotifTypeEventReminder:
		return "Event Reminder"
	default:
		return "New Notification"
	}
}

// Recipient is the delivery target resolved for a user.
type Recipient struct {
	UserID     int64
	Email      string
	HasDevices bool
}

// Outcome records which channels were attempted and how they fared.
type Outcome struct {
	EmailSent  bool
	PushSent   bool
	EmailError error
	PushError  error
}

// Failed reports whether any attempted channel failed.
func (o Outcome) Failed() bool {
	return o.EmailError != nil || o.PushError != nil
}

// Err joins the channel errors, or returns nil.
func (o Outcome) Err() error {
	return errors.Join(o.EmailError, o.PushError)
}

// Deliverer is the shared persist-then-dispatch path used by the jobs.
// A nil Email or Push sender disables that channel.
type Deliverer struct {
	store  store.Store
	email  EmailSender
	push   PushSender
	logger *slog.Logger
	now    func() time.Time
}

func NewDeliverer(st store.Store, emailSender EmailSender, pushSender PushSender, logger *slog.Logger) *Deliverer {
	return &Deliverer{
		store:  st,
		email:  emailSender,
		push:   pushSender,
		logger: logger,
		now:    time.Now,
	}
}

// Recipient loads the user (soft-delete filtered) and whether they have any
// registered device.
func (d *Deliverer) Recipient(ctx context.Context, userID int64) (Recipient, error) {
	row, err := d.store.FindUnique(ctx, store.ModelUser, userID)
	if err != nil {
		return Recipient{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	devices, err := d.store.FindMany(ctx, store.ModelPushSubscription, store.Query{
		Where: store.Where{"user_id": userID},
		Limit: 1,
	})
	if err != nil {
		return Recipient{}, fmt.Errorf("load devices for user %d: %w", userID, err)
	}
	return Recipient{
		UserID:     userID,
		Email:      row.String("email"),
		HasDevices: len(devices) > 0,
	}, nil
}

// Recipients resolves many users at once: one query for users and one for
// devices. Users that are missing or soft-deleted are absent from the map.
func (d *Deliverer) Recipients(ctx context.Context, userIDs []int64) (map[int64]Recipient, error) {
	out := make(map[int64]Recipient, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	ids := anyIDs(userIDs)

	users, err := d.store.FindMany(ctx, store.ModelUser, store.Query{Where: store.Where{"id": store.In(ids...)}})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	devices, err := d.store.FindMany(ctx, store.ModelPushSubscription, store.Query{Where: store.Where{"user_id": store.In(ids...)}})
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}
	hasDevices := make(map[int64]bool, len(devices))
	for _, r := range devices {
		hasDevices[r.Int64("user_id")] = true
	}

	for _, r := range users {
		id := r.Int64("id")
		out[id] = Recipient{UserID: id, Email: r.String("email"), HasDevices: hasDevices[id]}
	}
	return out, nil
}

// PreferencesFor loads the notification settings of many users in one query.
// Users without settings are absent from the map.
func (d *Deliverer) PreferencesFor(ctx context.Context, userIDs []int64) (map[int64]model.NotificationSettings, error) {
	out := make(map[int64]model.NotificationSettings, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := d.store.FindMany(ctx, store.ModelNotificationSettings, store.Query{
		Where: store.Where{"user_id": store.In(anyIDs(userIDs)...)},
	})
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	for _, r := range rows {
		p := store.NotificationSettingsFromRow(r)
		out[p.UserID] = p
	}
	return out, nil
}

func anyIDs(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// Dispatch sends n over every channel the recipient supports. A failing
// channel does not prevent the other from being tried.
func (d *Deliverer) Dispatch(ctx context.Context, to Recipient, n model.Notification) Outcome {
	var out Outcome
	subject := Subject(n.Type)

	if to.Email != "" && d.email != nil {
		err := d.email.Send(ctx, email.Message{To: to.Email, Subject: subject, Text: n.Message})
		metrics.Deliveries.WithLabelValues("email", metrics.Outcome(err)).Inc()
		if err != nil {
			out.EmailError = fmt.Errorf("%w: email to user %d: %v", ErrDispatch, to.UserID, err)
			d.logger.Error("send notification email", "notification_id", n.ID, "user_id", to.UserID, "error", err)
		} else {
			out.EmailSent = true
		}
	}

	if to.HasDevices && d.push != nil {
		err := d.push.Send(ctx, to.UserID, subject, n.Message, map[string]string{"type": n.Type})
		metrics.Deliveries.WithLabelValues("push", metrics.Outcome(err)).Inc()
		if err != nil {
			out.PushError = fmt.Errorf("%w: push to user %d: %v", ErrDispatch, to.UserID, err)
			d.logger.Error("send notification push", "notification_id", n.ID, "user_id", to.UserID, "error", err)
		} else {
			out.PushSent = true
		}
	}

	return out
}

// Deliver persists a notification for userID, dispatches it, and marks it
// read so the dispatch job does not send it a second time. The returned
// error covers persistence and recipient lookup; channel failures are
// reported in the Outcome.
func (d *Deliverer) Deliver(ctx context.Context, userID int64, notifType, message string) (model.Notification, Outcome, error) {
	to, err := d.Recipient(ctx, userID)
	if err != nil {
		return model.Notification{}, Outcome{}, err
	}

	row, err := d.store.Create(ctx, store.ModelNotification, store.Row{
		"user_id":    userID,
		"type":       notifType,
		"message":    message,
		"is_read":    false,
		"created_at": d.now(),
	})
	if err != nil {
		return model.Notification{}, Outcome{}, fmt.Errorf("create notification: %w", err)
	}
	n := store.NotificationFromRow(row)

	out := d.Dispatch(ctx, to, n)
	if err := d.MarkRead(ctx, n.ID); err != nil {
		return n, out, err
	}
	n.IsRead = true
	return n, out, nil
}

// MarkRead flips is_read on a notification.
func (d *Deliverer) MarkRead(ctx context.Context, notificationID int64) error {
	n, err := d.store.Update(ctx, store.ModelNotification, store.Where{"id": notificationID}, store.Row{"is_read": true})
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", notificationID, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
