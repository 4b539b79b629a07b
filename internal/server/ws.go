package server

import (
	"net/http"

	"github.com/gokatarajesh/permit-prep/internal/logging"
	"github.com/gokatarajesh/permit-prep/internal/practice"
	httperrors "github.com/gokatarajesh/permit-prep/pkg/http/errors"
	ws "github.com/gokatarajesh/permit-prep/pkg/http/ws"
)

// practiceSocket upgrades GET /ws/practice?profile=<id>. Browsers cannot set
// headers on the handshake, so the profile may come from the query string.
func practiceSocket(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("profile")
		if raw == "" {
			raw = r.Header.Get(ProfileHeader)
		}
		profile, err := practice.ValidateProfile(raw)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidProfile, "profile query parameter is required", "profile")
			return
		}

		logger := logging.FromContext(r.Context()).With().Str("profile", profile).Logger()
		conn, err := WSUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		c := ws.NewConnection(conn, logger)
		hub.Register(profile, c)
		go c.WritePump()

		c.ReadPump(func(msg ws.Message) error {
			switch msg.Type {
			case ws.TypePing:
				return c.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
			default:
				reply, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: "unknown_message_type", Message: "unsupported message: " + msg.Type})
				if err != nil {
					return err
				}
				reply.RequestID = msg.RequestID
				return c.Send(reply)
			}
		})
		hub.Unregister(profile, c)
	}
}
