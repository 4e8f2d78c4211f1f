package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// registerWSRoute streams hub events. A new client first receives a
// connection event and, when a session is attached, the current state.
func registerWSRoute(mux *http.ServeMux, hub *Hub, sessions SessionControl) {
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("ws upgrade error", "error", err)
			return
		}
		defer func() { _ = conn.Close() }()

		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)

		greeting := []any{ConnectionEvent{
			Event:     newEvent("connection", time.Now().UTC()),
			Connected: true,
		}}
		if sessions != nil {
			greeting = append(greeting, stateChanged(sessions.Status(), time.Now().UTC()))
		}
		for _, ev := range greeting {
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}

		go discardIncoming(conn)

		for msg := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	})
}

// discardIncoming reads until the client goes away so control frames are
// handled and the write loop notices the close.
func discardIncoming(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			_ = conn.Close()
			return
		}
	}
}
