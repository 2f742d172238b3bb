package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/autoreply"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/models"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/storage"
)

type Handler struct {
	svc    *autoreply.Service
	store  storage.Storage
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(svc *autoreply.Service, store storage.Storage, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

type evaluateRequest struct {
	TenantID       string               `json:"tenant_id"`
	ContactID      string               `json:"contact_id"`
	ConversationID string               `json:"conversation_id"`
	Message        string               `json:"message"`
	Timestamp      int64                `json:"timestamp"`
	QuickReplies   []*models.QuickReply `json:"quick_replies"`
}

type matchRequest struct {
	TenantID     string               `json:"tenant_id"`
	Message      string               `json:"message"`
	QuickReplies []*models.QuickReply `json:"quick_replies"`
}

type decisionResponse struct {
	Matched    bool               `json:"matched"`
	QuickReply *models.QuickReply `json:"quick_reply,omitempty"`
	MatchType  models.MatchType   `json:"match_type,omitempty"`
	Score      float64            `json:"score,omitempty"`
}

func toDecision(m *models.MatchResult) decisionResponse {
	if m == nil {
		return decisionResponse{}
	}
	return decisionResponse{
		Matched:    true,
		QuickReply: m.Reply,
		MatchType:  m.MatchType,
		Score:      m.Score,
	}
}

func (h *Handler) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// Evaluate decides whether an inbound message gets an auto-reply and records
// the decision in the suppression ledger. Sending the reply and counting its
// usage stay with the caller.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid json")
		return
	}
	if req.TenantID == "" || req.ContactID == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "tenant_id and contact_id are required")
		return
	}

	replies, ok := h.candidates(w, r, req.TenantID, req.QuickReplies)
	if !ok {
		return
	}

	mc := &models.MatchContext{
		TenantID:       req.TenantID,
		ContactID:      req.ContactID,
		ConversationID: req.ConversationID,
		MessageText:    req.Message,
		Timestamp:      req.Timestamp,
	}
	if mc.Timestamp == 0 {
		mc.Timestamp = h.now().UnixMilli()
	}

	writeJSON(w, http.StatusOK, toDecision(h.svc.ProcessAutoReply(r.Context(), mc, replies)))
}

// Match previews which reply a message would trigger, without suppression.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid json")
		return
	}
	if req.QuickReplies == nil && req.TenantID == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "tenant_id or quick_replies is required")
		return
	}

	replies, ok := h.candidates(w, r, req.TenantID, req.QuickReplies)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toDecision(h.svc.FindBestMatch(req.Message, replies)))
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request, tenantID string, inline []*models.QuickReply) ([]*models.QuickReply, bool) {
	if inline != nil {
		return inline, true
	}

	replies, err := h.store.ListQuickReplies(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to load quick replies",
			zap.Error(err),
			zap.String("tenant_id", tenantID))
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to load quick replies")
		return nil, false
	}
	return replies, true
}

func (h *Handler) ListQuickReplies(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	replies, err := h.store.ListQuickReplies(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to list quick replies",
			zap.Error(err),
			zap.String("tenant_id", tenantID))
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to list quick replies")
		return
	}

	writeJSON(w, http.StatusOK, replies)
}

type quickReplyRequest struct {
	Shortcut *string `json:"shortcut"`
	Content  *string `json:"content"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) CreateQuickReply(w http.ResponseWriter, r *http.Request) {
	var req quickReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid json")
		return
	}
	if req.Shortcut == nil || strings.TrimSpace(*req.Shortcut) == "" || req.Content == nil || *req.Content == "" {
		writeError(w, http.StatusBadRequest, CodeValidation, "shortcut and content are required")
		return
	}

	reply := &models.QuickReply{
		TenantID: chi.URLParam(r, "tenantID"),
		Shortcut: strings.TrimSpace(*req.Shortcut),
		Content:  *req.Content,
		IsActive: req.IsActive == nil || *req.IsActive,
	}

	if err := h.store.SaveQuickReply(r.Context(), reply); err != nil {
		h.logger.Error("Failed to save quick reply",
			zap.Error(err),
			zap.String("tenant_id", reply.TenantID))
		writeError(w, http.StatusInternalServerError, CodeInternal, "failed to save quick reply")
		return
	}

	writeJSON(w, http.StatusCreated, reply)
}

func (h *Handler) UpdateQuickReply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req quickReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "invalid json")
		return
	}

	reply, err := h.store.GetQuickReply(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "failed to load quick reply", id)
		return
	}

	if req.Shortcut != nil {
		if strings.TrimSpace(*req.Shortcut) == "" {
			writeError(w, http.StatusBadRequest, CodeValidation, "shortcut must not be empty")
			return
		}
		reply.Shortcut = strings.TrimSpace(*req.Shortcut)
	}
	if req.Content != nil {
		reply.Content = *req.Content
	}
	if req.IsActive != nil {
		reply.IsActive = *req.IsActive
	}

	if err := h.store.SaveQuickReply(r.Context(), reply); err != nil {
		h.storeError(w, err, "failed to save quick reply", id)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// RecordUsage increments the usage counters after the caller sent a reply.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.IncrementUsage(r.Context(), id, h.now()); err != nil {
		h.storeError(w, err, "failed to record usage", id)
		return
	}

	reply, err := h.store.GetQuickReply(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "failed to load quick reply", id)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) storeError(w http.ResponseWriter, err error, message, id string) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, CodeNotFound, "quick reply not found")
		return
	}
	h.logger.Error("Quick reply storage error",
		zap.Error(err),
		zap.String("quick_reply_id", id))
	writeError(w, http.StatusInternalServerError, CodeInternal, message)
}
