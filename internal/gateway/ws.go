package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
)

var chatWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type chatWSInbound struct {
	Type      string `json:"type"`
	FirstName string `json:"firstName,omitempty"`
	Text      string `json:"text,omitempty"`
}

type chatWSOutbound struct {
	Type     string   `json:"type"`
	Messages []string `json:"messages,omitempty"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// HandleChatWS runs one chat connection: a writer goroutine drains the
// outbound queue and keeps the connection alive with pings, the read loop
// feeds incoming frames to the engine.
func (h *Handler) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	chatID, err := parseChatID(r.URL.Query().Get("chat_id"))
	if err != nil {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}

	conn, err := chatWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		h.log.Warn("chat ws set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	writeCh := make(chan chatWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in chatWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(chatWSPongWait))

		push := func(frame chatWSOutbound) {
			select {
			case writeCh <- frame:
			case <-ctx.Done():
			}
		}
		h.dispatch(ctx, chatID, in, push)
		if ctx.Err() != nil {
			<-writerDone
			return
		}
	}
}

// dispatch maps one inbound frame to outbound frames. Engine failures still
// carry a user-facing apology in the reply, so the frames go out either way.
func (h *Handler) dispatch(ctx context.Context, chatID int64, in chatWSInbound, push func(chatWSOutbound)) {
	switch strings.TrimSpace(in.Type) {
	case "start":
		reply, err := h.conv.BeginOrResume(ctx, chatID, in.FirstName)
		if err != nil {
			h.log.Error("begin failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		push(chatWSOutbound{Type: "reply", Messages: reply.Messages})

	case "message":
		if strings.TrimSpace(in.Text) == "" {
			push(chatWSOutbound{Type: "error", Code: "invalid_argument", Message: "text is required"})
			return
		}
		// Immediate ack; the verdict call can take a while.
		push(chatWSOutbound{Type: "status", Message: "Hmm, let me think about that..."})
		reply, err := h.conv.HandleTurn(ctx, chatID, in.Text)
		if err != nil {
			h.log.Error("turn failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		push(chatWSOutbound{Type: "reply", Messages: reply.Messages})

	default:
		push(chatWSOutbound{Type: "error", Code: "invalid_argument", Message: "unknown frame type"})
	}
}
