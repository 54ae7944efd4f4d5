package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/task-lobby/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Lobby message types
const (
	MsgToggleTag    = "toggle_tag"
	MsgChooseTask   = "choose_task"
	MsgChooseRandom = "choose_random"
	MsgSetLevel     = "set_level"
	MsgSearch       = "search"

	MsgView  = "view"
	MsgError = "error"
)

// LobbyMessage is a command sent by the lobby UI
type LobbyMessage struct {
	Type   string `json:"type"`
	Tag    string `json:"tag,omitempty"`
	TaskID string `json:"task_id,omitempty"`
	Level  string `json:"level,omitempty"`
	Query  string `json:"query,omitempty"`
}

// LobbyReply is pushed back after every command
type LobbyReply struct {
	Type  string                `json:"type"`
	View  *models.SelectionView `json:"view,omitempty"`
	Error *apiError             `json:"error,omitempty"`
}

func (s *Server) handleLobbyWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx := r.Context()

	view, err := s.selections.View(ctx, id)
	if err != nil {
		respondSelectionError(w, err, id)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("lobby websocket connected", "selection_id", id)

	if err := s.sendLobbyReply(conn, LobbyReply{Type: MsgView, View: view}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg LobbyMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if s.sendLobbyReply(conn, errorReply("invalid_message", "invalid message format")) != nil {
				break
			}
			continue
		}

		if err := s.sendLobbyReply(conn, s.dispatchLobby(ctx, id, msg)); err != nil {
			break
		}
	}

	slog.Info("lobby websocket disconnected", "selection_id", id)
}

func (s *Server) dispatchLobby(ctx context.Context, id string, msg LobbyMessage) LobbyReply {
	var (
		view *models.SelectionView
		err  error
	)

	switch msg.Type {
	case MsgToggleTag:
		view, err = s.selections.ToggleTag(ctx, id, msg.Tag)
	case MsgChooseTask:
		view, err = s.selections.ChooseTask(ctx, id, msg.TaskID)
	case MsgChooseRandom:
		view, err = s.selections.ChooseRandom(ctx, id)
	case MsgSetLevel:
		view, err = s.selections.SetLevel(ctx, id, msg.Level)
	case MsgSearch:
		view, err = s.selections.Search(ctx, id, msg.Query)
	default:
		return errorReply("unknown_message", "unknown message type: "+msg.Type)
	}

	if err != nil {
		_, code, message := selectionError(err)
		return errorReply(code, message)
	}
	return LobbyReply{Type: MsgView, View: view}
}

func errorReply(code, message string) LobbyReply {
	return LobbyReply{Type: MsgError, Error: &apiError{Code: code, Message: message}}
}

func (s *Server) sendLobbyReply(conn *websocket.Conn, reply LobbyReply) error {
	if err := conn.WriteJSON(reply); err != nil {
		slog.Debug("failed to send lobby message", "error", err)
		return err
	}
	return nil
}
