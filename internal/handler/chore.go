package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/homebase/internal/apperr"
	"github.com/dukerupert/homebase/internal/auth"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
	"github.com/dukerupert/homebase/internal/websocket"
)

type ChoreHandler struct {
	store  store.Store
	hub    websocket.Broadcaster
	logger *slog.Logger
}

func NewChoreHandler(st store.Store, hub websocket.Broadcaster, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{store: st, hub: hub, logger: logger}
}

type choreRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	DueDate     *time.Time `json:"due_date"`
	Frequency   string     `json:"frequency" validate:"omitempty,oneof=DAILY WEEKLY BIWEEKLY MONTHLY YEARLY"`
	AssigneeIDs []int64    `json:"assignee_ids" validate:"dive,gt=0"`
}

type choreResponse struct {
	model.Chore
	AssigneeIDs []int64 `json:"assignee_ids"`
}

// List handles GET /api/households/{hid}/chores?status=PENDING
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	where := store.Where{"household_id": auth.HouseholdID(r.Context())}
	if status := r.URL.Query().Get("status"); status != "" {
		where["status"] = strings.ToUpper(status)
	}

	rows, err := h.store.FindMany(r.Context(), store.ModelChore, store.Query{Where: where, OrderBy: "due_date"})
	if err != nil {
		h.logger.Error("list chores", "error", err)
		apperr.Write(w, err)
		return
	}

	out := make([]choreResponse, 0, len(rows))
	for _, row := range rows {
		c := store.ChoreFromRow(row)
		assignees, err := h.assignees(r.Context(), h.store, c.ID)
		if err != nil {
			apperr.Write(w, err)
			return
		}
		out = append(out, choreResponse{Chore: c, AssigneeIDs: assignees})
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/households/{hid}/chores. Every assignee gets an
// unread CHORE_ASSIGNED notification for the dispatch job to deliver.
func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac, _ := auth.FromContext(ctx)

	var req choreRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Frequency = strings.ToUpper(strings.TrimSpace(req.Frequency))
	if err := validateRequest(req); err != nil {
		apperr.Write(w, err)
		return
	}
	if err := h.checkMembers(ctx, ac.HouseholdID, req.AssigneeIDs); err != nil {
		apperr.Write(w, err)
		return
	}

	var chore model.Chore
	var notes []model.Notification
	err := h.store.Tx(ctx, func(tx store.Store) error {
		values := store.Row{
			"household_id": ac.HouseholdID,
			"title":        req.Title,
			"description":  req.Description,
			"status":       model.ChoreStatusPending,
			"due_date":     req.DueDate,
			"created_by":   ac.UserID,
		}
		if req.Frequency != "" {
			rule, err := tx.Create(ctx, store.ModelRecurrenceRule, store.Row{"frequency": req.Frequency})
			if err != nil {
				return err
			}
			values["recurrence_rule_id"] = rule.Int64("id")
		}

		row, err := tx.Create(ctx, store.ModelChore, values)
		if err != nil {
			return err
		}
		chore = store.ChoreFromRow(row)

		for _, uid := range req.AssigneeIDs {
			if _, err := tx.Create(ctx, store.ModelChoreAssignment, store.Row{"chore_id": chore.ID, "user_id": uid}); err != nil {
				return err
			}
			n, err := tx.Create(ctx, store.ModelNotification, store.Row{
				"user_id": uid,
				"type":    model.NotifTypeChoreAssigned,
				"message": fmt.Sprintf("You have been assigned a new chore: %s", chore.Title),
			})
			if err != nil {
				return err
			}
			notes = append(notes, store.NotificationFromRow(n))
		}
		return nil
	})
	if err != nil {
		h.logger.Error("create chore", "household_id", ac.HouseholdID, "error", err)
		apperr.Write(w, err)
		return
	}

	resp := choreResponse{Chore: chore, AssigneeIDs: req.AssigneeIDs}
	if resp.AssigneeIDs == nil {
		resp.AssigneeIDs = []int64{}
	}
	h.hub.EmitToHousehold("chore_created", ac.HouseholdID, resp)
	for _, n := range notes {
		h.hub.EmitToUser("notification", n.UserID, n)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Delete handles DELETE /api/households/{hid}/chores/{id}
func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hid := auth.HouseholdID(ctx)
	id, err := parseIDParam(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	n, err := h.store.DeleteMany(ctx, store.ModelChore, store.Where{"id": id, "household_id": hid})
	if err != nil {
		h.logger.Error("delete chore", "id", id, "error", err)
		apperr.Write(w, err)
		return
	}
	if n == 0 {
		apperr.Write(w, apperr.NotFound("chore not found"))
		return
	}

	h.hub.EmitToHousehold("chore_deleted", hid, map[string]int64{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) assignees(ctx context.Context, st store.Store, choreID int64) ([]int64, error) {
	rows, err := st.FindMany(ctx, store.ModelChoreAssignment, store.Query{Where: store.Where{"chore_id": choreID}})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Int64("user_id"))
	}
	return ids, nil
}

func (h *ChoreHandler) checkMembers(ctx context.Context, householdID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	ids := make([]any, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id
	}
	rows, err := h.store.FindMany(ctx, store.ModelHouseholdMember, store.Query{Where: store.Where{
		"household_id": householdID,
		"user_id":      store.In(ids...),
		"is_active":    true,
		"is_accepted":  true,
	}})
	if err != nil {
		return err
	}
	found := make(map[int64]bool, len(rows))
	for _, r := range rows {
		found[r.Int64("user_id")] = true
	}
	for _, id := range userIDs {
		if !found[id] {
			return apperr.Validation(fmt.Sprintf("user %d is not a member of this household", id))
		}
	}
	return nil
}
