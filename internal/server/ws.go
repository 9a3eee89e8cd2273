package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/lexintake/lexintake/internal/intake"
	"github.com/lexintake/lexintake/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string `json:"type"`       // "start", "message" or "end"
	SessionID string `json:"session_id"` // empty only for "start"
	Channel   string `json:"channel,omitempty"`
	Content   string `json:"content,omitempty"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type  string             `json:"type"` // "turn" or "error"
	Turn  *intake.TurnResult `json:"turn,omitempty"`
	Error string             `json:"error,omitempty"`
}

// handleWebSocket runs the chat over one socket: every client frame is
// one engine call, every reply frame the resulting turn.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "invalid message format")
			continue
		}

		var turn *intake.TurnResult
		switch req.Type {
		case "start":
			channel := req.Channel
			if channel == "" {
				channel = "ws"
			}
			turn, err = s.engine.Start(r.Context(), channel)
		case "message":
			turn, err = s.engine.Advance(r.Context(), req.SessionID, req.Content)
		case "end":
			turn, err = s.engine.Finalize(r.Context(), req.SessionID)
		default:
			s.sendWSError(conn, "unknown message type: "+req.Type)
			continue
		}

		if errors.Is(err, session.ErrSessionNotFound) {
			s.sendWSError(conn, "session not found")
			continue
		}
		if err != nil {
			log.Printf("server: websocket %s failed: %v", req.Type, err)
			s.sendWSError(conn, "processing failed")
			continue
		}

		if err := conn.WriteJSON(wsResponse{Type: "turn", Turn: turn}); err != nil {
			log.Printf("server: websocket write: %v", err)
			return
		}
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(wsResponse{Type: "error", Error: message}); err != nil {
		log.Printf("server: websocket write error: %v", err)
	}
}
