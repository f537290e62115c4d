package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
	"github.com/carelink-dev/shift-board/engine/internal/orchestrator"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, msg string) {
	h.failureResponse(w, r, msg, nil)
}

// failureResponse 用于已处理的失败，附带数据（例如冲突详情或部分提交的结果）
func (h *Handler) failureResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: false,
		Message: msg,
		Data:    data,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.errorResponse(w, r, validationErrors[0].Translate(h.translator))
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "internal server error",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// schedulingError 把编排器的错误映射为响应，所有已知错误都不是 500
func (h *Handler) schedulingError(w http.ResponseWriter, r *http.Request, err error, data any) {
	var (
		rejected *domain.ValidationRejected
		stale    *domain.StaleReferenceError
		network  *domain.NetworkFailure
	)
	switch {
	case errors.Is(err, orchestrator.ErrRefreshFailed):
		// 修改已经写入后端
		h.successResponse(w, r, orchestrator.ErrRefreshFailed.Error(), data)
	case errors.As(err, &rejected):
		h.failureResponse(w, r, rejected.Error(), map[string]any{"conflict": rejected.Conflict})
	case errors.As(err, &stale):
		h.failureResponse(w, r, stale.Error(), data)
	case errors.As(err, &network):
		if network.Unauthorized() {
			slog.Warn("后端拒绝了操作者的令牌", "op", network.Op, "sub", r.Context().Value(SubCtxKey))
		}
		h.failureResponse(w, r, network.Error(), data)
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrNotDragging):
		h.failureResponse(w, r, err.Error(), data)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.failureResponse(w, r, "confirmation expired, nothing was changed", data)
	default:
		h.internalServerError(w, r, err)
	}
}
