package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/user/logsieve/internal/usecase"
)

// AdminHandler handles HTTP requests for buffer stream administration.
type AdminHandler struct {
	uc     *usecase.AdminStreamUseCase
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(uc *usecase.AdminStreamUseCase, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{uc: uc, logger: logger}
}

// HealthCheck is a simple health check endpoint.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetGroupInfo handles GET /admin/streams/{streamName}/groups.
func (h *AdminHandler) GetGroupInfo(w http.ResponseWriter, r *http.Request) {
	streamName := r.PathValue("streamName")
	if streamName == "" {
		http.Error(w, "streamName is required", http.StatusBadRequest)
		return
	}

	groups, err := h.uc.GetGroupInfo(r.Context(), streamName)
	if err != nil {
		h.logger.Error("failed to get group info", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.respondWithJSON(w, http.StatusOK, groups)
}

// GetConsumerInfo handles GET /admin/streams/{streamName}/groups/{groupName}/consumers.
func (h *AdminHandler) GetConsumerInfo(w http.ResponseWriter, r *http.Request) {
	consumers, err := h.uc.GetConsumerInfo(r.Context(), r.PathValue("streamName"), r.PathValue("groupName"))
	if err != nil {
		h.logger.Error("failed to get consumer info", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.respondWithJSON(w, http.StatusOK, consumers)
}

// GetPendingSummary handles GET /admin/streams/{streamName}/groups/{groupName}/pending.
func (h *AdminHandler) GetPendingSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.uc.GetPendingSummary(r.Context(), r.PathValue("streamName"), r.PathValue("groupName"))
	if err != nil {
		h.logger.Error("failed to get pending summary", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.respondWithJSON(w, http.StatusOK, summary)
}

// GetPendingMessages handles
// GET /admin/streams/{streamName}/groups/{groupName}/pending/messages?consumer=..&start=..&count=..
func (h *AdminHandler) GetPendingMessages(w http.ResponseWriter, r *http.Request) {
	var count int64
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		var err error
		count, err = strconv.ParseInt(countStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid count parameter", http.StatusBadRequest)
			return
		}
	}

	messages, err := h.uc.GetPendingMessages(r.Context(),
		r.PathValue("streamName"), r.PathValue("groupName"),
		r.URL.Query().Get("consumer"), r.URL.Query().Get("start"), count)
	if err != nil {
		h.logger.Error("failed to get pending messages", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.respondWithJSON(w, http.StatusOK, messages)
}

// ClaimMessages handles POST /admin/streams/{streamName}/groups/{groupName}/claim.
func (h *AdminHandler) ClaimMessages(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Consumer    string   `json:"consumer"`
		MinIdleTime string   `json:"min_idle_time"`
		MessageIDs  []string `json:"message_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	minIdle, err := time.ParseDuration(payload.MinIdleTime)
	if err != nil {
		http.Error(w, "invalid min_idle_time format", http.StatusBadRequest)
		return
	}

	claimed, err := h.uc.ClaimMessages(r.Context(), r.PathValue("streamName"), r.PathValue("groupName"),
		payload.Consumer, minIdle, payload.MessageIDs)
	if err != nil {
		h.logger.Error("failed to claim messages", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.respondWithJSON(w, http.StatusOK, claimed)
}

// AcknowledgeMessages handles POST /admin/streams/{streamName}/groups/{groupName}/ack.
func (h *AdminHandler) AcknowledgeMessages(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MessageIDs []string `json:"message_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(payload.MessageIDs) == 0 {
		http.Error(w, "message_ids cannot be empty", http.StatusBadRequest)
		return
	}

	count, err := h.uc.AcknowledgeMessages(r.Context(), r.PathValue("streamName"), r.PathValue("groupName"), payload.MessageIDs...)
	if err != nil {
		h.logger.Error("failed to acknowledge messages", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]int64{"acknowledged": count})
}

// TrimStream handles POST /admin/streams/{streamName}/trim.
func (h *AdminHandler) TrimStream(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MaxLen int64 `json:"maxlen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if payload.MaxLen <= 0 {
		http.Error(w, "maxlen must be a positive integer", http.StatusBadRequest)
		return
	}

	trimmed, err := h.uc.TrimStream(r.Context(), r.PathValue("streamName"), payload.MaxLen)
	if err != nil {
		h.logger.Error("failed to trim stream", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]int64{"trimmed": trimmed})
}

func (h *AdminHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
