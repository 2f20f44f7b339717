package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/utils"
)

// resolveTimeSlot 时段为空时使用任务名称，不为空时必须和任务名称一致，失败时已经写好了响应
func (h *Handler) resolveTimeSlot(w http.ResponseWriter, r *http.Request, taskID int64, timeSlot string) (string, bool) {
	task, err := h.repository.GetTaskByID(taskID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.badRequest(w, r, errors.New("任务不存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return "", false
	}

	if timeSlot == "" {
		return task.Name, true
	}
	if err := utils.ValidateTimeSlot(timeSlot, task); err != nil {
		h.badRequest(w, r, err)
		return "", false
	}
	return timeSlot, true
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	a := r.Context().Value(AssignmentCtx).(*domain.Assignment)
	h.successResponse(w, r, "获取排班记录成功", a)
}

// CreateAssignment 同一格子里其他员工的记录会被替换，同一员工重复安排返回 409
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduleID int64  `json:"scheduleID" validate:"required,gt=0"`
		TaskID     int64  `json:"taskID" validate:"required,gt=0"`
		StaffID    int64  `json:"staffID" validate:"required,gt=0"`
		DayOfWeek  int32  `json:"dayOfWeek" validate:"gte=0,lte=6"`
		TimeSlot   string `json:"timeSlot"`
		Notes      string `json:"notes" validate:"max=500"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	timeSlot, ok := h.resolveTimeSlot(w, r, req.TaskID, req.TimeSlot)
	if !ok {
		return
	}

	a := &domain.Assignment{
		ScheduleID: req.ScheduleID,
		TaskID:     req.TaskID,
		StaffID:    req.StaffID,
		DayOfWeek:  req.DayOfWeek,
		TimeSlot:   timeSlot,
		Notes:      req.Notes,
	}

	replaced, err := h.repository.CreateAssignment(a)
	if err != nil {
		h.databaseError(w, r, err)
		return
	}
	if replaced > 0 {
		slog.Info("格子中原有的记录已被替换", "scheduleID", a.ScheduleID, "day", a.DayOfWeek, "slot", a.TimeSlot, "replaced", replaced)
	}

	h.createdResponse(w, r, "创建排班记录成功", a)
}

// UpdateAssignment 用于移动和交换，两条记录交换时客户端会并发提交两次更新
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID    int64   `json:"taskID" validate:"required,gt=0"`
		StaffID   int64   `json:"staffID" validate:"required,gt=0"`
		DayOfWeek int32   `json:"dayOfWeek" validate:"gte=0,lte=6"`
		TimeSlot  string  `json:"timeSlot"`
		Notes     *string `json:"notes" validate:"omitempty,max=500"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	timeSlot, ok := h.resolveTimeSlot(w, r, req.TaskID, req.TimeSlot)
	if !ok {
		return
	}

	a := r.Context().Value(AssignmentCtx).(*domain.Assignment)
	a.TaskID = req.TaskID
	a.StaffID = req.StaffID
	a.DayOfWeek = req.DayOfWeek
	a.TimeSlot = timeSlot
	if req.Notes != nil {
		a.Notes = *req.Notes
	}

	if err := h.repository.UpdateAssignment(a); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// 在加载和更新之间被其他客户端删除
			h.notFound(w, r, "排班记录不存在")
		default:
			h.databaseError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新排班记录成功", a)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	a := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	if err := h.repository.DeleteAssignment(a.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "排班记录不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除排班记录成功", nil)
}
