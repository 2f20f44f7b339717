package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/mahuti/tasks/backend/internal/domain"
)

func (h *Handler) GetAllWeekTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.repository.GetAllWeekTemplates()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有模板成功", templates)
}

func (h *Handler) GetWeekTemplate(w http.ResponseWriter, r *http.Request) {
	wt := r.Context().Value(WeekTemplateCtx).(*domain.WeekTemplate)

	h.successResponse(w, r, "获取模板成功", wt)
}

// CreateWeekTemplate 把某张排班表当前的内容保存为模板
func (h *Handler) CreateWeekTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required,max=100"`
		Description string `json:"description" validate:"max=500"`
		ScheduleID  int64  `json:"scheduleID" validate:"required,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	wt := &domain.WeekTemplate{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := h.repository.CreateWeekTemplateFromSchedule(wt, req.ScheduleID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "排班表不存在")
		default:
			h.databaseError(w, r, err)
		}
		return
	}

	h.createdResponse(w, r, "保存模板成功", wt)
}

func (h *Handler) UpdateWeekTemplate(w http.ResponseWriter, r *http.Request) {
	wt := r.Context().Value(WeekTemplateCtx).(*domain.WeekTemplate)

	var req struct {
		Name        *string `json:"name" validate:"omitnil,min=1,max=100"`
		Description *string `json:"description" validate:"omitnil,max=500"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		wt.Name = *req.Name
	}
	if req.Description != nil {
		wt.Description = *req.Description
	}

	if err := h.repository.UpdateWeekTemplate(wt); err != nil {
		h.databaseError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新模板成功", wt)
}

func (h *Handler) DeleteWeekTemplate(w http.ResponseWriter, r *http.Request) {
	wt := r.Context().Value(WeekTemplateCtx).(*domain.WeekTemplate)

	if err := h.repository.DeleteWeekTemplate(wt.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "模板不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除模板成功", nil)
}

// ApplyWeekTemplate 用模板替换目标排班表的全部记录，返回替换后的记录
func (h *Handler) ApplyWeekTemplate(w http.ResponseWriter, r *http.Request) {
	wt := r.Context().Value(WeekTemplateCtx).(*domain.WeekTemplate)

	var req struct {
		ScheduleID int64 `json:"scheduleID" validate:"required,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if _, err := h.repository.GetScheduleByID(req.ScheduleID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "排班表不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if _, err := h.repository.ApplyWeekTemplate(wt.ID, req.ScheduleID); err != nil {
		h.databaseError(w, r, err)
		return
	}

	assignments, err := h.repository.GetAssignmentsBySchedule(req.ScheduleID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "应用模板成功", assignments)
}
