package http

import (
	"net/http"
	"time"

	"flagguess/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const wsWriteTimeout = 10 * time.Second

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// serveLeaderboardWS streams the leaderboard to a logged-in client: the
// current board first, then a new one after every recorded answer.
func (h *Handler) serveLeaderboardWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params, session domain.Session) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel, err := h.leaderboard.Subscribe(r.Context())
	if err != nil {
		h.log.WithError(err).Error("leaderboard subscribe failed")
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}})
		return
	}
	defer cancel()

	// Clients only listen; reading is how we notice they went away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log := h.log.WithField("user", session.Username)
	log.Debug("leaderboard stream opened")
	defer log.Debug("leaderboard stream closed")

	for {
		select {
		case board, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: board}); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.WithError(err).Debug("ws write error")
				}
				return
			}
		case <-closed:
			return
		}
	}
}
