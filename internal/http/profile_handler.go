package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/call-scheduler/internal/application"
)

type profileService interface {
	PutProfile(ctx context.Context, userID string, input application.ProfileInput) (application.Profile, error)
	GetProfile(ctx context.Context, userID string) (application.Profile, error)
}

// ProfileHandler serves the scheduling profile of a user.
type ProfileHandler struct {
	service   profileService
	responder responder
}

func NewProfileHandler(service profileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, responder: newResponder(logger)}
}

func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	profile, err := h.service.PutProfile(r.Context(), userID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProfileDTO(profile))
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := userIDParam(r)
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProfileDTO(profile))
}

type profileRequest struct {
	Timezone       string   `json:"timezone"`
	ActiveDays     []string `json:"active_days"`
	MorningStart   string   `json:"morning_start"`
	EveningEnd     string   `json:"evening_end"`
	DailyCallLimit int      `json:"daily_call_limit"`
}

func (r profileRequest) toInput() application.ProfileInput {
	return application.ProfileInput{
		Timezone:       strings.TrimSpace(r.Timezone),
		ActiveDays:     append([]string(nil), r.ActiveDays...),
		MorningStart:   strings.TrimSpace(r.MorningStart),
		EveningEnd:     strings.TrimSpace(r.EveningEnd),
		DailyCallLimit: r.DailyCallLimit,
	}
}

type profileDTO struct {
	UserID         string   `json:"user_id"`
	Timezone       string   `json:"timezone"`
	ActiveDays     []string `json:"active_days"`
	MorningStart   string   `json:"morning_start"`
	EveningEnd     string   `json:"evening_end"`
	DailyCallLimit int      `json:"daily_call_limit"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

func toProfileDTO(profile application.Profile) profileDTO {
	return profileDTO{
		UserID:         profile.UserID,
		Timezone:       profile.Timezone,
		ActiveDays:     profile.ActiveDays.Tokens(),
		MorningStart:   profile.MorningStart.String(),
		EveningEnd:     profile.EveningEnd.String(),
		DailyCallLimit: profile.DailyCallLimit,
		CreatedAt:      formatTime(profile.CreatedAt),
		UpdatedAt:      formatTime(profile.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := formatTime(*t)
	return &value
}
