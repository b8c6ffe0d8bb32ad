package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/homebase/internal/apperr"
	"github.com/dukerupert/homebase/internal/auth"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
	"github.com/dukerupert/homebase/internal/websocket"
)

type NotificationHandler struct {
	store  store.Store
	hub    websocket.Broadcaster
	logger *slog.Logger
}

func NewNotificationHandler(st store.Store, hub websocket.Broadcaster, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{store: st, hub: hub, logger: logger}
}

// List handles GET /api/notifications?unread=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	where := store.Where{"user_id": auth.UserID(r.Context())}
	if r.URL.Query().Get("unread") == "true" {
		where["is_read"] = false
	}

	rows, err := h.store.FindMany(r.Context(), store.ModelNotification, store.Query{
		Where:   where,
		OrderBy: "created_at",
		Desc:    true,
		Limit:   100,
	})
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		apperr.Write(w, err)
		return
	}

	out := make([]model.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.NotificationFromRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	userID := auth.UserID(r.Context())

	n, err := h.store.Update(r.Context(), store.ModelNotification,
		store.Where{"id": id, "user_id": userID},
		store.Row{"is_read": true})
	if err != nil {
		h.logger.Error("mark notification read", "id", id, "error", err)
		apperr.Write(w, err)
		return
	}
	if n == 0 {
		apperr.Write(w, apperr.NotFound("notification not found"))
		return
	}

	h.hub.EmitToUser("notification_read", userID, map[string]int64{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

type preferencesRequest struct {
	MessageNotif   *bool `json:"message_notif"`
	ChoreNotif     *bool `json:"chore_notif"`
	FinanceNotif   *bool `json:"finance_notif"`
	CalendarNotif  *bool `json:"calendar_notif"`
	RemindersNotif *bool `json:"reminders_notif"`
}

// GetPreferences handles GET /api/notifications/preferences
func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	row, err := h.store.FindFirst(r.Context(), store.ModelNotificationSettings, store.Query{
		Where: store.Where{"user_id": auth.UserID(r.Context())},
	})
	if err != nil {
		if store.IsNotFound(err) {
			apperr.Write(w, apperr.NotFound("no notification preferences"))
			return
		}
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.NotificationSettingsFromRow(row))
}

// UpdatePreferences handles PUT /api/notifications/preferences. Flags left
// out of the body keep their value; a missing record is created.
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	userID := auth.UserID(r.Context())

	values := store.Row{}
	set := func(col string, v *bool) {
		if v != nil {
			values[col] = *v
		}
	}
	set("message_notif", req.MessageNotif)
	set("chore_notif", req.ChoreNotif)
	set("finance_notif", req.FinanceNotif)
	set("calendar_notif", req.CalendarNotif)
	set("reminders_notif", req.RemindersNotif)

	var saved store.Row
	err := h.store.Tx(r.Context(), func(tx store.Store) error {
		where := store.Where{"user_id": userID}
		existing, err := tx.FindFirst(r.Context(), store.ModelNotificationSettings, store.Query{Where: where})
		switch {
		case store.IsNotFound(err):
			values["user_id"] = userID
			saved, err = tx.Create(r.Context(), store.ModelNotificationSettings, values)
			return err
		case err != nil:
			return err
		case len(values) == 0:
			saved = existing
			return nil
		}
		if _, err := tx.Update(r.Context(), store.ModelNotificationSettings, where, values); err != nil {
			return err
		}
		saved, err = tx.FindFirst(r.Context(), store.ModelNotificationSettings, store.Query{Where: where})
		return err
	})
	if err != nil {
		h.logger.Error("update notification preferences", "user_id", userID, "error", err)
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.NotificationSettingsFromRow(saved))
}
