// Package handlers provides HTTP handlers for the chat API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/samyotech/catalog-assistant/internal/chat"
	"github.com/samyotech/catalog-assistant/internal/history"
	"github.com/samyotech/catalog-assistant/internal/observability"
)

// Answerer is the orchestration contract the chat handler depends on.
type Answerer interface {
	Answer(ctx context.Context, question, sessionID string) chat.Response
}

// HistoryReader serves the session history endpoint.
type HistoryReader interface {
	Recent(ctx context.Context, sessionID string, limit int64) ([]history.Turn, error)
}

// ChatHandler handles chat requests.
type ChatHandler struct {
	logger   *observability.Logger
	answerer Answerer
	hist     HistoryReader
}

// NewChatHandler creates a chat handler. hist may be nil when no history
// store is configured; the history endpoint then returns 404.
func NewChatHandler(logger *observability.Logger, answerer Answerer, hist HistoryReader) *ChatHandler {
	return &ChatHandler{
		logger:   logger.WithComponent("http"),
		answerer: answerer,
		hist:     hist,
	}
}

// ChatRequestDTO is the chat request body.
type ChatRequestDTO struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponseDTO is the chat response body. Diagnostic carries routing
// detail (matched intent or prompt context) for debugging clients.
type ChatResponseDTO struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	SessionID  string `json:"session_id"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp := h.answerer.Answer(r.Context(), req.Question, sessionID)

	h.logger.Debug().
		Str("session_id", sessionID).
		Str("detail", resp.Detail).
		Msg("chat request served")

	writeJSON(w, http.StatusOK, ChatResponseDTO{
		Question:   req.Question,
		Answer:     resp.Answer,
		SessionID:  sessionID,
		Diagnostic: resp.Detail,
	})
}

// HistoryResponseDTO is the session history response body.
type HistoryResponseDTO struct {
	SessionID string    `json:"session_id"`
	Turns     []TurnDTO `json:"turns"`
}

// TurnDTO is one recorded exchange.
type TurnDTO struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	CreatedAt string `json:"created_at"`
}

// History handles GET /api/history/{sessionID}.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.hist == nil {
		writeError(w, http.StatusNotFound, "history not available")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	turns, err := h.hist.Recent(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("history lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	dto := HistoryResponseDTO{
		SessionID: sessionID,
		Turns:     make([]TurnDTO, len(turns)),
	}
	for i, t := range turns {
		dto.Turns[i] = TurnDTO{
			Question:  t.Question,
			Answer:    t.Answer,
			CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
