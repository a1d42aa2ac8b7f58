package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/call-scheduler/internal/application"
	"github.com/example/call-scheduler/internal/recurrence"
)

type blockedIntervalService interface {
	CreateBlockedInterval(ctx context.Context, userID string, input application.BlockedIntervalInput) (application.BlockedInterval, error)
	UpdateBlockedInterval(ctx context.Context, userID, intervalID string, input application.BlockedIntervalInput) (application.BlockedInterval, error)
	SetActive(ctx context.Context, userID, intervalID string, active bool) (application.BlockedInterval, error)
	GetBlockedInterval(ctx context.Context, userID, intervalID string) (application.BlockedInterval, error)
	ListBlockedIntervals(ctx context.Context, userID string, activeOnly bool) ([]application.BlockedInterval, error)
	UpcomingBlocks(ctx context.Context, userID string, days int) ([]application.UpcomingBlock, error)
}

// BlockedIntervalHandler serves the blocked intervals of a user and their
// upcoming occurrences.
type BlockedIntervalHandler struct {
	service   blockedIntervalService
	responder responder
	logger    *slog.Logger
}

func NewBlockedIntervalHandler(service blockedIntervalService, logger *slog.Logger) *BlockedIntervalHandler {
	return &BlockedIntervalHandler{service: service, responder: newResponder(logger), logger: defaultLogger(logger)}
}

func (h *BlockedIntervalHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	var req blockedIntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	interval, err := h.service.CreateBlockedInterval(r.Context(), userID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	routeLogger(r, h.logger, "BlockedIntervalHandler", "Create", "interval_id", interval.ID).InfoContext(r.Context(), "blocked interval created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBlockedIntervalDTO(interval))
}

func (h *BlockedIntervalHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, intervalID, ok := h.ids(w, r)
	if !ok {
		return
	}

	var req blockedIntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	interval, err := h.service.UpdateBlockedInterval(r.Context(), userID, intervalID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBlockedIntervalDTO(interval))
}

func (h *BlockedIntervalHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *BlockedIntervalHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *BlockedIntervalHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, intervalID, ok := h.ids(w, r)
	if !ok {
		return
	}

	interval, err := h.service.SetActive(r.Context(), userID, intervalID, active)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBlockedIntervalDTO(interval))
}

func (h *BlockedIntervalHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, intervalID, ok := h.ids(w, r)
	if !ok {
		return
	}

	interval, err := h.service.GetBlockedInterval(r.Context(), userID, intervalID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBlockedIntervalDTO(interval))
}

func (h *BlockedIntervalHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	activeOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("active")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		activeOnly = parsed
	}

	intervals, err := h.service.ListBlockedIntervals(r.Context(), userID, activeOnly)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]blockedIntervalDTO, 0, len(intervals))
	for _, interval := range intervals {
		dtos = append(dtos, toBlockedIntervalDTO(interval))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBlockedIntervalsResponse{BlockedIntervals: dtos})
}

func (h *BlockedIntervalHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		days = parsed
	}

	blocks, err := h.service.UpcomingBlocks(r.Context(), userID, days)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]upcomingBlockDTO, 0, len(blocks))
	for _, block := range blocks {
		dtos = append(dtos, upcomingBlockDTO{
			IntervalID: block.IntervalID,
			Name:       block.Name,
			Priority:   block.Priority,
			Start:      block.Start.Format(time.RFC3339),
			End:        block.End.Format(time.RFC3339),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, upcomingBlocksResponse{Blocks: dtos})
}

func (h *BlockedIntervalHandler) ids(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return "", "", false
	}
	intervalID := intervalIDParam(r)
	if intervalID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidIntervalID)
		return "", "", false
	}
	return userID, intervalID, true
}

type blockedIntervalRequest struct {
	Name       string   `json:"name"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	RepeatKind string   `json:"repeat_kind"`
	CustomDays []string `json:"custom_days"`
	Priority   int      `json:"priority"`
	Active     *bool    `json:"active"`
}

func (r blockedIntervalRequest) toInput() application.BlockedIntervalInput {
	return application.BlockedIntervalInput{
		Name:       strings.TrimSpace(r.Name),
		Start:      strings.TrimSpace(r.Start),
		End:        strings.TrimSpace(r.End),
		RepeatKind: strings.TrimSpace(r.RepeatKind),
		CustomDays: append([]string(nil), r.CustomDays...),
		Priority:   r.Priority,
		Active:     r.Active,
	}
}

type blockedIntervalDTO struct {
	ID         string   `json:"id"`
	UserID     string   `json:"user_id"`
	Name       string   `json:"name"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	RepeatKind string   `json:"repeat_kind"`
	CustomDays []string `json:"custom_days,omitempty"`
	Priority   int      `json:"priority"`
	Active     bool     `json:"active"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func toBlockedIntervalDTO(interval application.BlockedInterval) blockedIntervalDTO {
	dto := blockedIntervalDTO{
		ID:         interval.ID,
		UserID:     interval.UserID,
		Name:       interval.Name,
		Start:      interval.Start.String(),
		End:        interval.End.String(),
		RepeatKind: string(interval.Rule.Kind),
		Priority:   interval.Priority,
		Active:     interval.Active,
		CreatedAt:  formatTime(interval.CreatedAt),
		UpdatedAt:  formatTime(interval.UpdatedAt),
	}
	if interval.Rule.Kind == recurrence.KindCustom {
		dto.CustomDays = interval.Rule.Days.Tokens()
	}
	return dto
}

type listBlockedIntervalsResponse struct {
	BlockedIntervals []blockedIntervalDTO `json:"blocked_intervals"`
}

type upcomingBlockDTO struct {
	IntervalID string `json:"interval_id"`
	Name       string `json:"name"`
	Priority   int    `json:"priority"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

type upcomingBlocksResponse struct {
	Blocks []upcomingBlockDTO `json:"blocks"`
}
