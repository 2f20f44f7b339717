package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/mahuti/tasks/backend/internal/domain"
)

// parseWeekStart 解析 YYYY-MM-DD 格式的日期并返回它所在周的第一天
func (h *Handler) parseWeekStart(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期 %s 格式错误，应为 YYYY-MM-DD", s)
	}
	return h.week.StartOf(t), nil
}

func defaultScheduleName(weekStart time.Time) string {
	weekEnd := weekStart.AddDate(0, 0, domain.DaysPerWeek-1)
	return fmt.Sprintf("%s ~ %s", weekStart.Format(time.DateOnly), weekEnd.Format(time.DateOnly))
}

func (h *Handler) GetAllSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.repository.GetAllSchedules()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班表列表成功", schedules)
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)
	h.successResponse(w, r, "获取排班表成功", s)
}

func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WeekStart string `json:"weekStart" validate:"required"`
		Name      string `json:"name" validate:"max=100"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	weekStart, err := h.parseWeekStart(req.WeekStart)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.Name == "" {
		req.Name = defaultScheduleName(weekStart)
	}

	s := &domain.Schedule{
		WeekStart: weekStart,
		WeekEnd:   weekStart.AddDate(0, 0, domain.DaysPerWeek-1),
		Name:      req.Name,
	}

	if err := h.repository.CreateSchedule(s); err != nil {
		h.databaseError(w, r, err)
		return
	}

	h.createdResponse(w, r, "创建排班表成功", s)
}

// EnsureSchedule 返回某一周的排班表，客户端切换周时调用。
// 只有可以编辑的角色会在排班表不存在时创建它，其他角色得到 404。
func (h *Handler) EnsureSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WeekStart string `json:"weekStart" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	weekStart, err := h.parseWeekStart(req.WeekStart)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	role, _ := r.Context().Value(RoleCtxKey).(string)
	if !slices.Contains(editorRoles, domain.Role(role)) {
		s, err := h.schedules.GetScheduleByWeekStart(weekStart)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "该周还没有排班表")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		h.successResponse(w, r, "获取排班表成功", s)
		return
	}

	s, err := h.schedules.EnsureSchedule(weekStart, defaultScheduleName(weekStart))
	if err != nil {
		h.databaseError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班表成功", s)
}

func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,max=100"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)
	s.Name = req.Name

	if err := h.repository.UpdateSchedule(s); err != nil {
		h.databaseError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新排班表成功", s)
}

func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if err := h.repository.DeleteSchedule(s.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "排班表不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除排班表成功", nil)
}

func (h *Handler) GetScheduleAssignments(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	assignments, err := h.repository.GetAssignmentsBySchedule(s.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班记录成功", assignments)
}

// ClearScheduleAssignments 一次性删除整张排班表的记录
func (h *Handler) ClearScheduleAssignments(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	n, err := h.repository.ClearAssignments(s.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "清空排班表成功", map[string]int64{"deletedCount": n})
}
