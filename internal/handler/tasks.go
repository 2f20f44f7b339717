package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/utils"
)

func (h *Handler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.repository.GetAllTasks()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务列表成功", tasks)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t := r.Context().Value(TaskCtx).(*domain.Task)
	h.successResponse(w, r, "获取任务信息成功", t)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required,max=100"`
		Icon     string `json:"icon" validate:"max=16"`
		Category string `json:"category" validate:"max=100"`
		Color    string `json:"color"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateColor(req.Color); err != nil {
		h.badRequest(w, r, err)
		return
	}

	t := &domain.Task{
		Name:     req.Name,
		Icon:     req.Icon,
		Category: req.Category,
		Color:    req.Color,
	}

	if err := h.repository.CreateTask(t); err != nil {
		h.databaseError(w, r, err)
		return
	}

	h.createdResponse(w, r, "创建任务成功", t)
}

// UpdateTask 修改任务名称会同时修改已有排班记录的时段
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
		Icon     *string `json:"icon" validate:"omitempty,max=16"`
		Category *string `json:"category" validate:"omitempty,max=100"`
		Color    *string `json:"color"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	t := r.Context().Value(TaskCtx).(*domain.Task)

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Icon != nil {
		t.Icon = *req.Icon
	}
	if req.Category != nil {
		t.Category = *req.Category
	}
	if req.Color != nil {
		if err := utils.ValidateColor(*req.Color); err != nil {
			h.badRequest(w, r, err)
			return
		}
		t.Color = *req.Color
	}

	if err := h.repository.UpdateTask(t); err != nil {
		h.databaseError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新任务成功", t)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	t := r.Context().Value(TaskCtx).(*domain.Task)

	if err := h.repository.DeleteTask(t.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "任务不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除任务成功", nil)
}

// ReorderTasks 按提交的顺序重新排列网格中的行
func (h *Handler) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskIDs []int64 `json:"taskIDs" validate:"required,min=1"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	tasks, err := h.repository.GetAllTasks()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := utils.ValidateTaskOrder(req.TaskIDs, tasks); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.ReorderTasks(req.TaskIDs); err != nil {
		h.databaseError(w, r, err)
		return
	}

	tasks, err = h.repository.GetAllTasks()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "任务排序成功", tasks)
}
