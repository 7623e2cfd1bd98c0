// File: server/handlers.go
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"runtime/debug"

	"golang.org/x/net/websocket"
)

// HandleSnapshot serves the current state of the field as JSON.
func (s *Server) HandleSnapshot() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered in snapshot handler", "panic", rec, "stack", string(debug.Stack()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.message()); err != nil {
			s.logger.Warn("writing snapshot", "error", err)
		}
	}
}

// HandleSubscribe registers the connection with the broadcaster and keeps it
// open until the client leaves or the broadcaster closes it.
func (s *Server) HandleSubscribe() func(ws *websocket.Conn) {
	return func(ws *websocket.Conn) {
		connectionAddr := ws.Request().RemoteAddr
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic recovered in subscribe handler", "remote", connectionAddr, "panic", r, "stack", string(debug.Stack()))
			}
			_ = ws.Close()
		}()

		broadcaster := s.getBroadcaster()
		if broadcaster == nil {
			s.logger.Warn("subscription refused", "remote", connectionAddr, "error", ErrNotStarted)
			return
		}
		id, ok := broadcaster.Add(ws)
		if !ok {
			return
		}
		defer broadcaster.Remove(id)
		s.logger.Info("subscriber connected", "remote", connectionAddr, "subscriber", id.String())

		// First frame right away rather than on the next tick
		if err := broadcaster.Send(ws, s.message()); err != nil {
			return
		}

		// Clients never send anything meaningful; reading only detects the disconnect.
		_, _ = io.Copy(io.Discard, ws)
		s.logger.Info("subscriber disconnected", "remote", connectionAddr, "subscriber", id.String())
	}
}
