package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/notify"
	"github.com/dukerupert/homebase/internal/store"
)

// ReminderHorizon is how far ahead ReminderJob looks for due items.
const ReminderHorizon = 24 * time.Hour

// DueDateLayout renders due dates in reminder messages.
const DueDateLayout = "Mon Jan 2 2006 15:04 MST"

// ReminderJob creates and delivers reminders for chores and expenses due
// within ReminderHorizon.
type ReminderJob struct {
	store     store.Store
	deliverer *notify.Deliverer
	logger    *slog.Logger
	now       func() time.Time
}

func NewReminderJob(st store.Store, d *notify.Deliverer, logger *slog.Logger) *ReminderJob {
	return &ReminderJob{store: st, deliverer: d, logger: logger, now: time.Now}
}

func (j *ReminderJob) Name() string { return "reminders" }

// Run is a single pass. A failing reminder never stops the others; the
// returned error joins every per-item failure.
func (j *ReminderJob) Run(ctx context.Context) (Result, error) {
	now := j.now().UTC()
	horizon := now.Add(ReminderHorizon)

	var res Result
	var errs []error
	households := make(map[int64]string)

	if err := j.choreReminders(ctx, now, horizon, households, &res, &errs); err != nil {
		return res, err
	}
	if err := j.expenseReminders(ctx, now, horizon, households, &res, &errs); err != nil {
		return res, err
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("%d reminders failed: %w", len(errs), errors.Join(errs...))
	}
	return res, nil
}

func (j *ReminderJob) choreReminders(ctx context.Context, now, horizon time.Time, households map[int64]string, res *Result, errs *[]error) error {
	rows, err := j.store.FindMany(ctx, store.ModelChore, store.Query{
		Where: store.Where{
			"due_date": store.Between(now, horizon),
			"status":   store.Ne(model.ChoreStatusCompleted),
		},
		OrderBy: "due_date",
	})
	if err != nil {
		return fmt.Errorf("load due chores: %w", err)
	}

	for _, row := range rows {
		chore := store.ChoreFromRow(row)
		log := j.logger.With("chore_id", chore.ID)

		household, err := j.householdName(ctx, chore.HouseholdID, households)
		if err != nil {
			log.Warn("skipping chore reminder", "household_id", chore.HouseholdID, "error", err)
			res.Skipped++
			continue
		}

		assignments, err := j.store.FindMany(ctx, store.ModelChoreAssignment, store.Query{
			Where: store.Where{"chore_id": chore.ID},
		})
		if err != nil {
			log.Error("load assignees", "error", err)
			*errs = append(*errs, fmt.Errorf("chore %d: %w", chore.ID, err))
			res.Failed++
			continue
		}

		for _, a := range assignments {
			userID := a.Int64("user_id")
			if chore.DueDate == nil {
				log.Warn("chore has no due date, skipping reminder", "user_id", userID)
				res.Skipped++
				continue
			}
			msg := ChoreReminderMessage(chore.Title, household, *chore.DueDate)
			j.deliver(ctx, log, userID, model.NotifTypeChoreAssigned, msg, res, errs)
		}
	}
	return nil
}

func (j *ReminderJob) expenseReminders(ctx context.Context, now, horizon time.Time, households map[int64]string, res *Result, errs *[]error) error {
	rows, err := j.store.FindMany(ctx, store.ModelExpense, store.Query{
		Where:   store.Where{"due_date": store.Between(now, horizon)},
		OrderBy: "due_date",
	})
	if err != nil {
		return fmt.Errorf("load due expenses: %w", err)
	}

	for _, row := range rows {
		expense := store.ExpenseFromRow(row)
		log := j.logger.With("expense_id", expense.ID)

		household, err := j.householdName(ctx, expense.HouseholdID, households)
		if err != nil {
			log.Warn("skipping expense reminder", "household_id", expense.HouseholdID, "error", err)
			res.Skipped++
			continue
		}

		splits, err := j.store.FindMany(ctx, store.ModelExpenseSplit, store.Query{
			Where: store.Where{"expense_id": expense.ID},
		})
		if err != nil {
			log.Error("load splits", "error", err)
			*errs = append(*errs, fmt.Errorf("expense %d: %w", expense.ID, err))
			res.Failed++
			continue
		}

		for _, s := range splits {
			split := store.ExpenseSplitFromRow(s)
			msg := PaymentReminderMessage(split.Amount, expense.Description, household, expense.DueDate)
			j.deliver(ctx, log, split.UserID, model.NotifTypePaymentReminder, msg, res, errs)
		}
	}
	return nil
}

func (j *ReminderJob) deliver(ctx context.Context, log *slog.Logger, userID int64, notifType, msg string, res *Result, errs *[]error) {
	n, out, err := j.deliverer.Deliver(ctx, userID, notifType, msg)
	if err != nil {
		log.Error("deliver reminder", "user_id", userID, "error", err)
		*errs = append(*errs, err)
		res.Failed++
		return
	}
	if out.Failed() {
		*errs = append(*errs, out.Err())
		res.Failed++
		return
	}
	log.Debug("reminder sent", "notification_id", n.ID, "user_id", userID, "email", out.EmailSent, "push", out.PushSent)
	res.Processed++
}

func (j *ReminderJob) householdName(ctx context.Context, id int64, cache map[int64]string) (string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	row, err := j.store.FindUnique(ctx, store.ModelHousehold, id)
	if err != nil {
		return "", err
	}
	cache[id] = row.String("name")
	return cache[id], nil
}

func ChoreReminderMessage(title, household string, due time.Time) string {
	return fmt.Sprintf("Reminder: Chore \"%s\" in household \"%s\" is due on %s.", title, household, due.UTC().Format(DueDateLayout))
}

func PaymentReminderMessage(amount float64, description, household string, due *time.Time) string {
	dueText := "No due date"
	if due != nil {
		dueText = due.UTC().Format(DueDateLayout)
	}
	return fmt.Sprintf("Reminder: You owe $%.2f for expense \"%s\" in household \"%s\" due on %s.", amount, description, household, dueText)
}
