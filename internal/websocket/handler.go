package websocket

import (
	"errors"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/homebase/internal/apperr"
	"github.com/dukerupert/homebase/internal/auth"
)

// HandleWebSocket authenticates the handshake, then upgrades the connection
// and runs it as a Hub client. The token is read from the Authorization
// header or the token query parameter.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			token = r.URL.Query().Get("token")
		}

		reg, err := hub.RegisterConnection(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				apperr.Write(w, apperr.Auth("invalid or missing token"))
				return
			}
			hub.logger.Error("register connection", "error", err)
			apperr.Write(w, err)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			hub.logger.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, reg)
		hub.logger.Info("websocket connected", "client_id", client.id, "user_id", reg.UserID, "households", len(reg.HouseholdIDs))
		client.Run(r.Context())
	}
}
