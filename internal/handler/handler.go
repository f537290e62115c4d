package handler

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/carelink-dev/shift-board/engine/internal/config"
	"github.com/carelink-dev/shift-board/engine/internal/orchestrator"
	"github.com/carelink-dev/shift-board/engine/internal/repository"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	notifier   orchestrator.Notifier
	locker     orchestrator.Locker
	sessions   *sessions

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, notifier orchestrator.Notifier, locker orchestrator.Locker) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息中使用 json 字段名
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		notifier:   notifier,
		locker:     locker,
		sessions:   newSessions(time.Duration(cfg.Session.IdleTimeout) * time.Second),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Health)

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/facilities/{facilityID}/weeks/{weekStart}", func(r chi.Router) {
			r.Use(h.workspace)
			r.Get("/", h.GetWorkspace)
			r.Post("/refresh", h.RefreshWorkspace)
			r.Get("/hours", h.GetHours)
			r.Get("/conflicts", h.GetConflicts)
			r.Post("/validate", h.ValidatePlacement)

			r.Post("/drag", h.StartDrag)
			r.Delete("/drag", h.CancelDrag)
			r.Post("/drop", h.Drop)

			r.Post("/assignments", h.CreateAssignment)
			r.Delete("/assignments", h.DeleteAssignment)
			r.Post("/shifts/{shiftID}/reassign", h.ReassignShift)
			r.Post("/autofill", h.AutoFill)
			r.Post("/clear", h.ClearWeek)

			r.Route("/confirmation", func(r chi.Router) {
				r.Get("/", h.GetConfirmation)
				r.Post("/{confirmationID}/confirm", h.Confirm)
				r.Post("/{confirmationID}/cancel", h.CancelConfirmation)
			})
		})
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "ok", map[string]any{"environment": h.config.Environment})
}
