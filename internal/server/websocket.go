package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"CampusChat/internal/backend"
	"CampusChat/internal/chaterr"
)

// handleWebSocket answers one {"reply"} frame per {"message"} frame until the client leaves
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade WebSocket", "error", err)
		return
	}
	s.track(conn)
	defer s.untrack(conn)

	// WebSocket clients get one session per connection
	sessionID := ""
	if s.store != nil {
		sess, err := s.store.NewSession(r.Context(), r.RemoteAddr)
		if err != nil {
			s.logger.Warn("failed to create session", "error", err)
		} else {
			sessionID = sess.ID
		}
	}

	s.logger.Info("WebSocket client connected", "remote", r.RemoteAddr, "session_id", sessionID)

	ctx := r.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("WebSocket read failed", "error", err)
			}
			return
		}

		var req backend.ChatRequest
		var resp any
		switch {
		case json.Unmarshal(data, &req) != nil:
			resp = backend.ErrorResponse{Error: "invalid JSON frame"}
		case req.Message == "":
			resp = backend.ErrorResponse{Error: chaterr.ErrEmptyMessage.Error()}
		default:
			resp = backend.ChatResponse{Reply: s.answer(ctx, sessionID, req.Message, "websocket")}
		}

		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Warn("WebSocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) track(conn *websocket.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if _, ok := s.conns[conn]; ok {
		delete(s.conns, conn)
		conn.Close()
	}
}

// closeWebSockets closes hijacked connections, which http.Server.Shutdown leaves open
func (s *Server) closeWebSockets() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		delete(s.conns, conn)
	}
}
