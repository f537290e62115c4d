package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carelink-dev/shift-board/engine/internal/repository"
	"github.com/carelink-dev/shift-board/engine/internal/utils"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := h.bearerToken(r)
		if err != nil {
			if errors.Is(err, errNoToken) {
				h.errorResponse(w, r, "not signed in")
				return
			}
			h.errorResponse(w, r, "invalid token")
			return
		}

		claims, err := h.parseToken(token)
		if err != nil {
			h.errorResponse(w, r, "invalid token")
			return
		}

		// 将 sub 和 email 附在 context 中，原始令牌转发给后端
		ctx := r.Context()
		ctx = context.WithValue(ctx, SubCtxKey, claims.Subject)
		ctx = context.WithValue(ctx, EmailCtxKey, claims.Email)
		ctx = repository.WithToken(ctx, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// workspace 按 (操作者, 机构, 周) 取出或创建会话，首次访问时从后端加载
func (h *Handler) workspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		facilityID, err := strconv.ParseInt(chi.URLParam(r, "facilityID"), 10, 64)
		if err != nil || facilityID <= 0 {
			h.errorResponse(w, r, "invalid facility id")
			return
		}
		weekStart := chi.URLParam(r, "weekStart")
		if err := utils.ValidateWeekStart(weekStart); err != nil {
			h.errorResponse(w, r, err.Error())
			return
		}

		sub := r.Context().Value(SubCtxKey).(string)
		email, _ := r.Context().Value(EmailCtxKey).(string)
		sess := h.sessions.get(sessionKey(sub, facilityID, weekStart), func() *session {
			return h.newSession(facilityID, weekStart, email)
		})

		if err := sess.ensureLoaded(r.Context()); err != nil {
			h.schedulingError(w, r, err, nil)
			return
		}

		ctx := context.WithValue(r.Context(), WorkspaceCtxKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
