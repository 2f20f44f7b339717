package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/repository"
	"github.com/mahuti/tasks/backend/internal/utils"
)

// CreateShareLink 为排班表生成只读分享链接
func (h *Handler) CreateShareLink(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)
	sub, _ := r.Context().Value(SubCtxKey).(string)
	createdBy, _ := strconv.ParseInt(sub, 10, 64)

	token := utils.GenerateLinkToken()
	link := &domain.ShareLink{
		Token:      token,
		ScheduleID: s.ID,
		URL:        fmt.Sprintf("%s/shared/%s", h.config.Email.AppURL, token),
		CreatedBy:  createdBy,
		ExpiresAt:  time.Now().Add(time.Duration(h.config.Share.Expiration) * time.Second),
	}

	if err := h.shareLinks.Save(link); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.createdResponse(w, r, "分享链接已生成", link)
}

// GetSharedSchedule 供分享页面使用，无需登录
func (h *Handler) GetSharedSchedule(w http.ResponseWriter, r *http.Request) {
	link := r.Context().Value(ShareLinkCtx).(*domain.ShareLink)

	s, err := h.schedules.GetScheduleByID(link.ScheduleID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "排班表已被删除")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	tasks, err := h.schedules.GetAllTasks()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	assignments, err := h.schedules.GetAssignmentsBySchedule(s.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班表成功", domain.SharedSchedule{
		Schedule:    s,
		Tasks:       tasks,
		Assignments: assignments,
	})
}

func (h *Handler) DeleteShareLink(w http.ResponseWriter, r *http.Request) {
	link := r.Context().Value(ShareLinkCtx).(*domain.ShareLink)

	if err := h.shareLinks.Delete(link.Token); err != nil && !errors.Is(err, repository.ErrShareLinkNotFound) {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "分享链接已撤销", nil)
}

func (h *Handler) shareLink(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		link, err := h.shareLinks.Get(chi.URLParam(r, "token"))
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrShareLinkNotFound):
				h.notFound(w, r, "链接无效或已过期")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), ShareLinkCtx, link)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
