package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/enrollment"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/mq"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/roster"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	store      repository.Store
	translator ut.Translator
	resolver   *auth.Resolver
	enrollment *enrollment.Manager
	roster     *roster.Exporter
	mail       mq.MailPublisher

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, store repository.Store, resolver *auth.Resolver, mail mq.MailPublisher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		store:      store,
		translator: trans,
		resolver:   resolver,
		enrollment: enrollment.NewManager(store, validate),
		roster:     roster.NewExporter(store, store, cfg.Roster.LookupConcurrency),
		mail:       mail,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.metrics) // 放在 recoverer 外层，panic 后返回的 500 也会被统计
	h.Mux.Use(h.recoverer)

	h.Mux.NotFound(h.notFound)
	h.Mux.Handle("/metrics", promhttp.Handler())

	h.Mux.Route("/courses", func(r chi.Router) {
		r.Get("/", h.GetCourses)
		r.With(h.authenticate).Post("/", h.CreateCourse)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCourse)
			r.Get("/assignments", h.GetCourseAssignments)

			// 以下接口需要登录，并且在判断权限之前先查出课程当前的教师，课程不存在时直接返回 404
			r.Group(func(r chi.Router) {
				r.Use(h.authenticate)
				r.Use(h.courseOwner)
				r.Patch("/", h.UpdateCourse)
				r.Delete("/", h.DeleteCourse)
				r.Get("/students", h.GetCourseStudents)
				r.Post("/students", h.UpdateCourseStudents)
				r.Get("/roster", h.GetCourseRoster)
			})
		})
	})

	h.Mux.Route("/users", func(r chi.Router) {
		r.With(h.identify).Post("/", h.CreateUser) // 不登录只能注册学生账号
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/logout", h.Logout)
			r.Get("/", h.GetAllUsers)
			r.Get("/{id}", h.GetUserProfile)
		})
	})
}
