package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/homebase/internal/apperr"
	"github.com/dukerupert/homebase/internal/auth"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
	"github.com/dukerupert/homebase/internal/websocket"
)

type MessageHandler struct {
	store  store.Store
	hub    websocket.Broadcaster
	logger *slog.Logger
}

func NewMessageHandler(st store.Store, hub websocket.Broadcaster, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{store: st, hub: hub, logger: logger}
}

type messageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// thread loads {tid} and checks it belongs to the caller's household.
func (h *MessageHandler) thread(ctx context.Context, r *http.Request) (model.Thread, error) {
	tid, err := parsePathID(r, "tid")
	if err != nil {
		return model.Thread{}, err
	}
	row, err := h.store.FindUnique(ctx, store.ModelThread, tid)
	if err != nil {
		return model.Thread{}, err
	}
	t := store.ThreadFromRow(row)
	if t.HouseholdID != auth.HouseholdID(ctx) {
		return model.Thread{}, apperr.NotFound("thread not found")
	}
	return t, nil
}

// Create handles POST /api/households/{hid}/threads/{tid}/messages. Other
// household members get an unread NEW_MESSAGE notification.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac, _ := auth.FromContext(ctx)

	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validateRequest(req); err != nil {
		apperr.Write(w, err)
		return
	}

	thread, err := h.thread(ctx, r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	var msg model.Message
	var notes []model.Notification
	err = h.store.Tx(ctx, func(tx store.Store) error {
		row, err := tx.Create(ctx, store.ModelMessage, store.Row{
			"thread_id": thread.ID,
			"author_id": ac.UserID,
			"content":   req.Content,
		})
		if err != nil {
			return err
		}
		msg = store.MessageFromRow(row)

		members, err := tx.FindMany(ctx, store.ModelHouseholdMember, store.Query{Where: store.Where{
			"household_id": thread.HouseholdID,
			"user_id":      store.Ne(ac.UserID),
			"is_active":    true,
			"is_accepted":  true,
		}})
		if err != nil {
			return err
		}
		for _, m := range members {
			n, err := tx.Create(ctx, store.ModelNotification, store.Row{
				"user_id": m.Int64("user_id"),
				"type":    model.NotifTypeNewMessage,
				"message": fmt.Sprintf("New message in %q", thread.Title),
			})
			if err != nil {
				return err
			}
			notes = append(notes, store.NotificationFromRow(n))
		}
		return nil
	})
	if err != nil {
		h.logger.Error("create message", "thread_id", thread.ID, "error", err)
		apperr.Write(w, err)
		return
	}

	h.hub.EmitToThread("message_created", thread.ID, thread.HouseholdID, msg)
	for _, n := range notes {
		h.hub.EmitToUser("notification", n.UserID, n)
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Delete handles DELETE /api/households/{hid}/threads/{tid}/messages/{id}.
// Only the author or a household admin may delete.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	thread, err := h.thread(ctx, r)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	row, err := h.store.FindUnique(ctx, store.ModelMessage, id)
	if err != nil {
		apperr.Write(w, err)
		return
	}
	msg := store.MessageFromRow(row)
	if msg.ThreadID != thread.ID {
		apperr.Write(w, apperr.NotFound("message not found"))
		return
	}
	isAuthor := msg.AuthorID != nil && *msg.AuthorID == auth.UserID(ctx)
	if !isAuthor && !auth.IsAdmin(ctx) {
		apperr.Write(w, apperr.Forbidden("only the author or an admin can delete this message"))
		return
	}

	if err := h.store.Delete(ctx, store.ModelMessage, id); err != nil {
		h.logger.Error("delete message", "id", id, "error", err)
		apperr.Write(w, err)
		return
	}

	h.hub.EmitToThread("message_deleted", thread.ID, thread.HouseholdID, map[string]int64{"id": id})
	w.WriteHeader(http.StatusNoContent)
}
