package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"legado/internal/engine"
	"legado/internal/store"
)

// Conversation is the slice of the engine the gateway drives.
type Conversation interface {
	BeginOrResume(ctx context.Context, chatID int64, firstName string) (engine.Reply, error)
	HandleTurn(ctx context.Context, chatID int64, text string) (engine.Reply, error)
}

type Handler struct {
	conv Conversation
	st   store.Store
	log  *zap.Logger
}

func NewHandler(conv Conversation, st store.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{conv: conv, st: st, log: log}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/questions", h.handleListQuestions)
	r.Get("/api/stories", h.handleListStories)
	r.Get("/ws/chat", h.HandleChatWS)

	return r
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.st.ListQuestions(r.Context())
	if err != nil {
		h.log.Error("list questions failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, questions)
}

func (h *Handler) handleListStories(w http.ResponseWriter, r *http.Request) {
	chatID, err := parseChatID(r.URL.Query().Get("chat_id"))
	if err != nil {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}
	stories, err := h.st.ListStories(r.Context(), chatID)
	if err != nil {
		h.log.Error("list stories failed", zap.Int64("chat_id", chatID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if stories == nil {
		stories = []store.StoryRecord{}
	}
	writeJSON(w, stories)
}

func parseChatID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
