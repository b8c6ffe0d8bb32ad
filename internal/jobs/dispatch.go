package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/notify"
	"github.com/dukerupert/homebase/internal/store"
)

// NotificationDispatchJob sends every unread notification whose type the
// user has enabled, then marks it read.
type NotificationDispatchJob struct {
	store     store.Store
	deliverer *notify.Deliverer
	logger    *slog.Logger
}

func NewNotificationDispatchJob(st store.Store, d *notify.Deliverer, logger *slog.Logger) *NotificationDispatchJob {
	return &NotificationDispatchJob{store: st, deliverer: d, logger: logger}
}

func (j *NotificationDispatchJob) Name() string { return "notification-dispatch" }

// Run is a single pass. Unread notifications, their users' preferences,
// users and devices are each loaded in one query. Per-notification errors
// are logged and counted; only the loads fail the run.
func (j *NotificationDispatchJob) Run(ctx context.Context) (Result, error) {
	var res Result

	rows, err := j.store.FindMany(ctx, store.ModelNotification, store.Query{
		Where: store.Where{"is_read": false},
	})
	if err != nil {
		return res, fmt.Errorf("load unread notifications: %w", err)
	}
	if len(rows) == 0 {
		return res, nil
	}

	pending := make([]model.Notification, 0, len(rows))
	var userIDs []int64
	seen := make(map[int64]bool)
	for _, row := range rows {
		n := store.NotificationFromRow(row)
		pending = append(pending, n)
		if !seen[n.UserID] {
			seen[n.UserID] = true
			userIDs = append(userIDs, n.UserID)
		}
	}

	prefs, err := j.deliverer.PreferencesFor(ctx, userIDs)
	if err != nil {
		return res, err
	}
	recipients, err := j.deliverer.Recipients(ctx, userIDs)
	if err != nil {
		return res, err
	}

	for _, n := range pending {
		log := j.logger.With("notification_id", n.ID, "user_id", n.UserID, "type", n.Type)

		p, ok := prefs[n.UserID]
		if !ok {
			log.Warn("no notification preferences, skipping")
			res.Skipped++
			continue
		}
		if !notify.Enabled(p, n.Type) {
			res.Skipped++
			continue
		}

		to, ok := recipients[n.UserID]
		if !ok {
			log.Error("recipient not found")
			res.Failed++
			continue
		}

		out := j.deliverer.Dispatch(ctx, to, n)
		if err := j.deliverer.MarkRead(ctx, n.ID); err != nil {
			log.Error("mark read", "error", err)
			res.Failed++
			continue
		}
		if out.Failed() {
			log.Warn("notification dispatched with channel errors", "error", out.Err())
		}
		res.Processed++
	}

	return res, nil
}
