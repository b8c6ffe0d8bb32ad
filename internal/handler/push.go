package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/homebase/internal/apperr"
	"github.com/dukerupert/homebase/internal/auth"
	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/push"
	"github.com/dukerupert/homebase/internal/store"
)

type PushHandler struct {
	store   store.Store
	service *push.Service
	logger  *slog.Logger
}

func NewPushHandler(st store.Store, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{store: st, service: svc, logger: logger}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint" validate:"required,url"`
	P256dh     string `json:"p256dh" validate:"required"`
	Auth       string `json:"auth" validate:"required"`
	DeviceName string `json:"device_name" validate:"max=100"`
}

// Subscribe handles POST /api/push/subscriptions. Re-subscribing an endpoint
// moves it to the caller and refreshes its keys.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		apperr.Write(w, err)
		return
	}
	req.Endpoint = strings.TrimSpace(req.Endpoint)
	if err := validateRequest(req); err != nil {
		apperr.Write(w, err)
		return
	}

	values := store.Row{
		"user_id":     userID,
		"p256dh_key":  req.P256dh,
		"auth_key":    req.Auth,
		"device_name": req.DeviceName,
	}

	var saved store.Row
	err := h.store.Tx(ctx, func(tx store.Store) error {
		where := store.Where{"endpoint": req.Endpoint}
		_, err := tx.FindFirst(ctx, store.ModelPushSubscription, store.Query{Where: where})
		if errors.Is(err, store.ErrNotFound) {
			values["endpoint"] = req.Endpoint
			saved, err = tx.Create(ctx, store.ModelPushSubscription, values)
			return err
		}
		if err != nil {
			return err
		}
		if _, err := tx.Update(ctx, store.ModelPushSubscription, where, values); err != nil {
			return err
		}
		saved, err = tx.FindFirst(ctx, store.ModelPushSubscription, store.Query{Where: where})
		return err
	})
	if err != nil {
		h.logger.Error("save push subscription", "user_id", userID, "error", err)
		apperr.Write(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, store.PushSubscriptionFromRow(saved))
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	n, err := h.store.DeleteMany(r.Context(), store.ModelPushSubscription, store.Where{"id": id, "user_id": auth.UserID(r.Context())})
	if err != nil {
		h.logger.Error("delete push subscription", "error", err)
		apperr.Write(w, err)
		return
	}
	if n == 0 {
		apperr.Write(w, apperr.NotFound("subscription not found"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.FindMany(r.Context(), store.ModelPushSubscription, store.Query{
		Where: store.Where{"user_id": auth.UserID(r.Context())},
	})
	if err != nil {
		apperr.Write(w, err)
		return
	}
	subs := make([]model.PushSubscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, store.PushSubscriptionFromRow(row))
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// TestNotification handles POST /api/push/test
func (h *PushHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if err := h.service.Send(r.Context(), userID, "Test Notification", "Push notifications are working!", map[string]string{"type": "TEST"}); err != nil {
		h.logger.Error("test push send", "user_id", userID, "error", err)
		apperr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
