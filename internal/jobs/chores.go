package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
	"github.com/dukerupert/homebase/internal/websocket"
)

// frequencyDays maps a recurrence frequency to the due-date offset of the
// next instance.
var frequencyDays = map[string]int{
	model.FrequencyDaily:    1,
	model.FrequencyWeekly:   7,
	model.FrequencyBiweekly: 14,
	model.FrequencyMonthly:  30,
	model.FrequencyYearly:   365,
}

// EventChoreCreated is broadcast to the household room for every generated
// chore instance.
const EventChoreCreated = "chore_created"

// ChoreSchedulerJob materialises the next instance of every recurring chore.
// The assignee is picked uniformly at random; there is no rotation.
type ChoreSchedulerJob struct {
	store       store.Store
	broadcaster websocket.Broadcaster
	logger      *slog.Logger
	now         func() time.Time
	intn        func(n int) int
}

func NewChoreSchedulerJob(st store.Store, b websocket.Broadcaster, logger *slog.Logger) *ChoreSchedulerJob {
	return &ChoreSchedulerJob{
		store:       st,
		broadcaster: b,
		logger:      logger,
		now:         time.Now,
		intn:        rand.IntN,
	}
}

func (j *ChoreSchedulerJob) Name() string { return "chore-scheduler" }

// created is what a committed instance reports to the household room.
type created struct {
	ChoreID    int64     `json:"chore_id"`
	EventID    int64     `json:"event_id"`
	SourceID   int64     `json:"source_chore_id"`
	Title      string    `json:"title"`
	AssigneeID int64     `json:"assignee_id"`
	DueDate    time.Time `json:"due_date"`
}

func (j *ChoreSchedulerJob) Run(ctx context.Context) (Result, error) {
	var res Result

	households, err := j.store.FindMany(ctx, store.ModelHousehold, store.Query{})
	if err != nil {
		return res, fmt.Errorf("load households: %w", err)
	}

	for _, h := range households {
		hid := h.Int64("id")
		log := j.logger.With("household_id", hid)

		members, err := j.eligibleMembers(ctx, hid)
		if err != nil {
			log.Error("load members", "error", err)
			res.Failed++
			continue
		}
		if len(members) == 0 {
			continue
		}

		admin, ok := findAdmin(members)
		if !ok {
			log.Warn("household has no admin, skipping recurring chores")
			res.Skipped++
			continue
		}

		chores, err := j.store.FindMany(ctx, store.ModelChore, store.Query{
			Where: store.Where{"household_id": hid, "recurrence_rule_id": store.NotNull()},
		})
		if err != nil {
			log.Error("load recurring chores", "error", err)
			res.Failed++
			continue
		}

		for _, row := range chores {
			chore := store.ChoreFromRow(row)
			c, err := j.spawn(ctx, chore, admin, members)
			if err != nil {
				log.Error("spawn chore instance", "chore_id", chore.ID, "error", err)
				res.Failed++
				continue
			}
			if c == nil {
				res.Skipped++
				continue
			}
			j.broadcaster.EmitToHousehold(EventChoreCreated, hid, c)
			res.Processed++
		}
	}

	return res, nil
}

func (j *ChoreSchedulerJob) eligibleMembers(ctx context.Context, householdID int64) ([]model.HouseholdMember, error) {
	rows, err := j.store.FindMany(ctx, store.ModelHouseholdMember, store.Query{
		Where: store.Where{"household_id": householdID, "is_active": true, "is_accepted": true},
	})
	if err != nil {
		return nil, err
	}

	members := make([]model.HouseholdMember, 0, len(rows))
	for _, r := range rows {
		members = append(members, store.HouseholdMemberFromRow(r))
	}
	return members, nil
}

func findAdmin(members []model.HouseholdMember) (model.HouseholdMember, bool) {
	for _, m := range members {
		if m.Role == model.RoleAdmin {
			return m, true
		}
	}
	return model.HouseholdMember{}, false
}

// spawn creates the event and chore instance in one transaction. A nil
// result with a nil error means the chore was skipped.
func (j *ChoreSchedulerJob) spawn(ctx context.Context, chore model.Chore, admin model.HouseholdMember, members []model.HouseholdMember) (*created, error) {
	ruleRow, err := j.store.FindUnique(ctx, store.ModelRecurrenceRule, *chore.RecurrenceRuleID)
	if err != nil {
		return nil, fmt.Errorf("load recurrence rule: %w", err)
	}
	rule := store.RecurrenceRuleFromRow(ruleRow)

	days, ok := frequencyDays[rule.Frequency]
	if !ok {
		j.logger.Warn("unknown recurrence frequency", "chore_id", chore.ID, "frequency", rule.Frequency)
		return nil, nil
	}

	now := j.now().UTC()
	assignee := members[j.intn(len(members))]
	out := &created{
		SourceID:   chore.ID,
		Title:      chore.Title,
		AssigneeID: assignee.UserID,
		DueDate:    now.AddDate(0, 0, days),
	}

	err = j.store.Tx(ctx, func(tx store.Store) error {
		event, err := tx.Create(ctx, store.ModelEvent, store.Row{
			"household_id": chore.HouseholdID,
			"created_by":   admin.UserID,
			"title":        "Chore: " + chore.Title,
			"description":  chore.Description,
			"category":     model.EventCategoryChore,
			"status":       model.EventStatusScheduled,
			"start_time":   now,
			"end_time":     now.Add(24 * time.Hour),
			"is_all_day":   true,
			"is_private":   false,
		})
		if err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		out.EventID = event.Int64("id")

		instance, err := tx.Create(ctx, store.ModelChore, store.Row{
			"household_id": chore.HouseholdID,
			"title":        chore.Title,
			"description":  chore.Description,
			"status":       model.ChoreStatusPending,
			"due_date":     out.DueDate,
			"event_id":     out.EventID,
			"created_by":   admin.UserID,
		})
		if err != nil {
			return fmt.Errorf("create chore: %w", err)
		}
		out.ChoreID = instance.Int64("id")

		if _, err := tx.Create(ctx, store.ModelChoreAssignment, store.Row{
			"chore_id":    out.ChoreID,
			"user_id":     assignee.UserID,
			"assigned_at": now,
		}); err != nil {
			return fmt.Errorf("assign chore: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
