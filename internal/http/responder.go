package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/call-scheduler/internal/application"
)

var (
	errBadRequestBody    = errors.New("無効なリクエスト形式です。")
	errInvalidUserID     = errors.New("無効なユーザー ID です。")
	errInvalidIntervalID = errors.New("無効なブロック ID です。")
	errInvalidInstant    = errors.New("日時は RFC 3339 形式で指定してください。")
	errInvalidQuery      = errors.New("クエリパラメータの値が不正です。")
	errRateLimited       = errors.New("リクエストが多すぎます。しばらくしてから再試行してください。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr    *application.ValidationError
		slotErr *application.NoValidSlotError
		cfgErr  *application.ConfigurationError
	)
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "入力内容に誤りがあります。",
			Errors:    localizeValidationErrors(vErr),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "ALREADY_EXISTS", Message: "同じ ID のリソースが既に存在します。"})
	case errors.Is(err, application.ErrConcurrentModification):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "CONCURRENT_MODIFICATION", Message: "スケジュールが同時に更新されました。再試行してください。"})
	case errors.As(err, &slotErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode:   "NO_VALID_SLOT",
			Message:     "条件を満たす通話時刻が見つかりませんでした。",
			Attempts:    slotErr.Attempts,
			Constraints: slotErr.Constraints,
		})
	case errors.As(err, &cfgErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "CONFIGURATION",
			Message:   "プロフィールの設定ではスケジュールできません。",
			Errors:    map[string]string{cfgErr.Field: cfgErr.Reason},
		})
	case errors.Is(err, application.ErrPersistenceUnavailable), errors.Is(err, context.DeadlineExceeded):
		r.loggerFor(ctx).ErrorContext(ctx, "storage unavailable", "error", err)
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{ErrorCode: "UNAVAILABLE", Message: "ストレージに接続できません。しばらくしてから再試行してください。"})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusTooManyRequests:
		return "リクエストが多すぎます。"
	case http.StatusServiceUnavailable:
		return "サービスを利用できません。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "user id is required":
		return "ユーザー ID は必須です。"
	case "timezone is required":
		return "タイムゾーンは必須です。"
	case "timezone must be a valid IANA zone":
		return "タイムゾーンは IANA 形式で指定してください。"
	case "at least one active day is required":
		return "少なくとも 1 つの曜日を指定してください。"
	case "active days must be weekday names such as mon or tuesday":
		return "曜日は mon や tuesday のような名前で指定してください。"
	case "morning start must use HH:MM":
		return "開始時刻は HH:MM 形式で指定してください。"
	case "evening end must use HH:MM":
		return "終了時刻は HH:MM 形式で指定してください。"
	case "evening end must be after morning start":
		return "終了時刻は開始時刻より後である必要があります。"
	case "daily call limit must be positive":
		return "1 日の通話上限は正の整数で指定してください。"
	case "name is required":
		return "名前は必須です。"
	case "start must use HH:MM":
		return "開始時刻は HH:MM 形式で指定してください。"
	case "end must use HH:MM":
		return "終了時刻は HH:MM 形式で指定してください。"
	case "end must be after start":
		return "終了時刻は開始時刻より後である必要があります。"
	case "repeat kind must be one of daily, weekdays, weekends, custom, once":
		return "繰り返しは daily, weekdays, weekends, custom, once のいずれかです。"
	case "custom repeat requires at least one day":
		return "custom の繰り返しには曜日の指定が必要です。"
	case "custom days must be weekday names":
		return "曜日の指定が不正です。"
	case "outcome must be one of called, skipped, later, failed, suggested":
		return "結果は called, skipped, later, failed, suggested のいずれかです。"
	case "rating must be between 1 and 5":
		return "評価は 1 から 5 の範囲で指定してください。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode   string            `json:"error_code,omitempty"`
	Message     string            `json:"message"`
	Errors      map[string]string `json:"errors,omitempty"`
	Attempts    int               `json:"attempts,omitempty"`
	Constraints []string          `json:"constraints,omitempty"`
}
