package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/mahuti/tasks/backend/internal/config"
	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/metrics"
	"github.com/mahuti/tasks/backend/internal/repository"
)

// MailPublisher 是邮件队列的发布端，*amqp.Channel 实现了它
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type scheduleStore interface {
	GetScheduleByID(id int64) (*domain.Schedule, error)
	GetScheduleByWeekStart(weekStart time.Time) (*domain.Schedule, error)
	EnsureSchedule(weekStart time.Time, name string) (*domain.Schedule, error)
	GetAllTasks() ([]*domain.Task, error)
	GetAssignmentsBySchedule(scheduleID int64) ([]*domain.Assignment, error)
}

type shareLinkStore interface {
	Save(link *domain.ShareLink) error
	Get(token string) (*domain.ShareLink, error)
	Delete(token string) error
}

type invitationStore interface {
	Save(inv *domain.Invitation) error
	GetByToken(token string) (*domain.Invitation, error)
	GetByID(id string) (*domain.Invitation, error)
	List() ([]*domain.Invitation, error)
	Delete(inv *domain.Invitation) error
}

// 可以编辑排班的角色
var editorRoles = []domain.Role{domain.RoleAdmin, domain.RoleManager}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mailChannel MailPublisher
	redisClient *redis.Client
	invitations invitationStore
	schedules   scheduleStore
	shareLinks  shareLinkStore
	week        domain.Week

	httpMetrics    *metrics.HTTPCollector
	metricsHandler http.Handler

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailCh MailPublisher, rdb *redis.Client, reg *prometheus.Registry) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	week, err := domain.ParseWeek(cfg.Week.Start)
	if err != nil {
		return nil, err
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,
		invitations: repository.NewInvitationStore(rdb, time.Duration(cfg.Redis.OperationExpiration)*time.Second),
		schedules:   repo,
		shareLinks:  repository.NewShareLinkStore(rdb, time.Duration(cfg.Redis.OperationExpiration)*time.Second),
		week:        week,

		httpMetrics:    metrics.NewHTTPCollector(reg),
		metricsHandler: metrics.Handler(reg),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Method(http.MethodGet, "/metrics", h.metricsHandler)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/register", h.Register)
		r.Get("/invitations/{token}", h.GetInvitation)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	editors := editorRoles

	// 分享链接只读，无需登录
	h.Mux.With(h.shareLink).Get("/shared/{token}", h.GetSharedSchedule)
	admins := []domain.Role{domain.RoleAdmin}

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredRole(admins))
			r.Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).Delete("/", h.DeleteUser)
				r.Patch("/password", h.UpdateUserPassword)
			})
		})

		r.Route("/invitations", func(r chi.Router) {
			r.Use(h.RequiredRole(admins))
			r.Get("/", h.GetAllInvitations)
			r.With(h.myInfo).Post("/", h.CreateInvitation)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.invitation)
				r.Post("/resend", h.ResendInvitation)
				r.Delete("/", h.DeleteInvitation)
			})
		})

		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.GetAllStaff)
			r.With(h.RequiredRole(editors)).Post("/", h.CreateStaff)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.staffMember)
				r.Get("/", h.GetStaff)
				r.With(h.RequiredRole(editors)).Patch("/", h.UpdateStaff)
				r.With(h.RequiredRole(editors)).Delete("/", h.DeleteStaff)
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.GetAllTasks)
			r.With(h.RequiredRole(editors)).Post("/", h.CreateTask)
			r.With(h.RequiredRole(editors)).Put("/reorder", h.ReorderTasks)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.task)
				r.Get("/", h.GetTask)
				r.With(h.RequiredRole(editors)).Patch("/", h.UpdateTask)
				r.With(h.RequiredRole(editors)).Delete("/", h.DeleteTask)
			})
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.GetAllSchedules)
			r.With(h.RequiredRole(editors)).Post("/", h.CreateSchedule)
			// 编辑者切换到某一周时自动创建排班表，其他角色只能获取已有的
			r.Post("/ensure", h.EnsureSchedule)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.schedule)
				r.Get("/", h.GetSchedule)
				r.With(h.RequiredRole(editors)).Patch("/", h.UpdateSchedule)
				r.With(h.RequiredRole(editors)).Delete("/", h.DeleteSchedule)
				r.Get("/assignments", h.GetScheduleAssignments)
				r.With(h.RequiredRole(editors)).Delete("/assignments", h.ClearScheduleAssignments)
				r.With(h.RequiredRole(editors)).Post("/share", h.CreateShareLink)
			})
		})

		r.Route("/shares/{token}", func(r chi.Router) {
			r.Use(h.RequiredRole(editors))
			r.With(h.shareLink).Delete("/", h.DeleteShareLink)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.GetAllWeekTemplates)
			r.With(h.RequiredRole(editors)).Post("/", h.CreateWeekTemplate)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.weekTemplate)
				r.Get("/", h.GetWeekTemplate)
				r.With(h.RequiredRole(editors)).Patch("/", h.UpdateWeekTemplate)
				r.With(h.RequiredRole(editors)).Delete("/", h.DeleteWeekTemplate)
				r.With(h.RequiredRole(editors)).Post("/apply", h.ApplyWeekTemplate)
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Use(h.RequiredRole(editors))
			r.Post("/", h.CreateAssignment)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.assignment)
				r.Get("/", h.GetAssignment)
				r.Put("/", h.UpdateAssignment)
				r.Delete("/", h.DeleteAssignment)
			})
		})
	})
}
