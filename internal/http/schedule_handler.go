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
)

type scheduleManager interface {
	ProposeAndCommit(ctx context.Context, userID string) (application.Proposal, error)
	RecordAttempt(ctx context.Context, params application.RecordAttemptParams) (application.AttemptResult, error)
	ValidateInstant(ctx context.Context, userID string, instant time.Time) (application.InstantValidation, error)
}

type callLog interface {
	ListCallAttempts(ctx context.Context, userID string, limit int) ([]application.CallAttempt, error)
}

// ScheduleHandler proposes, consumes and validates call instants.
type ScheduleHandler struct {
	manager       scheduleManager
	calls         callLog
	retryAttempts int
	responder     responder
	logger        *slog.Logger
}

// NewScheduleHandler builds the handler. Proposals and attempts are retried up
// to retryAttempts times on concurrent modification; calls may be nil when no
// attempt history is kept.
func NewScheduleHandler(manager scheduleManager, calls callLog, retryAttempts int, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		manager:       manager,
		calls:         calls,
		retryAttempts: retryAttempts,
		responder:     newResponder(logger),
		logger:        defaultLogger(logger),
	}
}

func (h *ScheduleHandler) Propose(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.manager == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	proposal, err := application.RetryOnConflict(r.Context(), h.retryAttempts, func(ctx context.Context) (application.Proposal, error) {
		return h.manager.ProposeAndCommit(ctx, userID)
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	routeLogger(r, h.logger, "ScheduleHandler", "Propose").
		InfoContext(r.Context(), "proposal committed", "instant", proposal.Instant, "strategy", proposal.Strategy)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toProposalDTO(proposal))
}

func (h *ScheduleHandler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.manager == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params := req.toParams(userID)
	result, err := application.RetryOnConflict(r.Context(), h.retryAttempts, func(ctx context.Context) (application.AttemptResult, error) {
		return h.manager.RecordAttempt(ctx, params)
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, attemptResponse{
		State:   toStateDTO(result.State),
		Attempt: toCallAttemptDTO(result.Record),
	})
}

func (h *ScheduleHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.calls == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}

	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		limit = parsed
	}

	attempts, err := h.calls.ListCallAttempts(r.Context(), userID, limit)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]callAttemptDTO, 0, len(attempts))
	for _, attempt := range attempts {
		dtos = append(dtos, toCallAttemptDTO(attempt))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAttemptsResponse{Attempts: dtos})
}

func (h *ScheduleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.manager == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	instant, ok := parseTime(req.Instant)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidInstant)
		return
	}

	validation, err := h.manager.ValidateInstant(r.Context(), userID, instant)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, validationDTO{
		Valid:      validation.Valid,
		Reason:     validation.Reason,
		Suggestion: formatTimePtr(validation.Suggestion),
	})
}

func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

type attemptRequest struct {
	Outcome  string `json:"outcome"`
	Platform string `json:"platform"`
	Rating   *int   `json:"rating"`
	Notes    string `json:"notes"`
}

func (r attemptRequest) toParams(userID string) application.RecordAttemptParams {
	return application.RecordAttemptParams{
		UserID:   userID,
		Outcome:  application.Outcome(strings.ToLower(strings.TrimSpace(r.Outcome))),
		Platform: r.Platform,
		Rating:   r.Rating,
		Notes:    r.Notes,
	}
}

type validateRequest struct {
	Instant string `json:"instant"`
}

type proposalDTO struct {
	UserID            string         `json:"user_id"`
	Instant           string         `json:"instant"`
	Strategy          string         `json:"strategy"`
	Attempts          int            `json:"attempts"`
	Constraints       []string       `json:"constraints,omitempty"`
	Relaxation        *relaxationDTO `json:"relaxation,omitempty"`
	DailyLimitReached bool           `json:"daily_limit_reached"`
	State             stateDTO       `json:"state"`
}

type relaxationDTO struct {
	Level            int      `json:"level"`
	MinGapPercent    int      `json:"min_gap_percent"`
	MinGap           string   `json:"min_gap"`
	DroppedIntervals []string `json:"dropped_intervals,omitempty"`
}

func toProposalDTO(proposal application.Proposal) proposalDTO {
	dto := proposalDTO{
		UserID:            proposal.UserID,
		Instant:           formatTime(proposal.Instant),
		Strategy:          string(proposal.Strategy),
		Attempts:          proposal.Attempts,
		Constraints:       proposal.Constraints,
		DailyLimitReached: proposal.DailyLimitReached,
		State:             toStateDTO(proposal.State),
	}
	if relax := proposal.Relaxation; relax != nil {
		dto.Relaxation = &relaxationDTO{
			Level:            relax.Level,
			MinGapPercent:    relax.MinGapPercent,
			MinGap:           relax.MinGap.String(),
			DroppedIntervals: relax.DroppedIntervals,
		}
	}
	return dto
}

type stateDTO struct {
	NextCallDue    *string `json:"next_call_due"`
	LastCallTime   *string `json:"last_call_time"`
	LastGenerated  *string `json:"last_generated"`
	CallsToday     int     `json:"calls_today"`
	DailyResetDate string  `json:"daily_reset_date"`
	Version        int64   `json:"version"`
}

func toStateDTO(state application.ScheduleState) stateDTO {
	return stateDTO{
		NextCallDue:    formatTimePtr(state.NextCallDue),
		LastCallTime:   formatTimePtr(state.LastCallTime),
		LastGenerated:  formatTimePtr(state.LastGenerated),
		CallsToday:     state.CallsToday,
		DailyResetDate: state.DailyResetDate,
		Version:        state.Version,
	}
}

type callAttemptDTO struct {
	ID            string  `json:"id"`
	ScheduledTime *string `json:"scheduled_time"`
	ActualTime    string  `json:"actual_time"`
	Outcome       string  `json:"outcome"`
	Platform      string  `json:"platform,omitempty"`
	Rating        *int    `json:"rating,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

func toCallAttemptDTO(attempt application.CallAttempt) callAttemptDTO {
	return callAttemptDTO{
		ID:            attempt.ID,
		ScheduledTime: formatTimePtr(attempt.ScheduledTime),
		ActualTime:    formatTime(attempt.ActualTime),
		Outcome:       string(attempt.Outcome),
		Platform:      attempt.Platform,
		Rating:        attempt.Rating,
		Notes:         attempt.Notes,
	}
}

type attemptResponse struct {
	State   stateDTO       `json:"state"`
	Attempt callAttemptDTO `json:"attempt"`
}

type listAttemptsResponse struct {
	Attempts []callAttemptDTO `json:"attempts"`
}

type validationDTO struct {
	Valid      bool    `json:"valid"`
	Reason     string  `json:"reason,omitempty"`
	Suggestion *string `json:"suggestion,omitempty"`
}
