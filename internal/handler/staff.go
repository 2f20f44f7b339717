package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/utils"
)

func (h *Handler) GetAllStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.repository.GetAllStaff()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取员工列表成功", staff)
}

func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(StaffCtx).(*domain.Staff)
	h.successResponse(w, r, "获取员工信息成功", s)
}

func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name" validate:"required,max=100"`
		Role  string `json:"role" validate:"max=100"`
		Color string `json:"color"`
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

	if req.Color == "" {
		req.Color = utils.GenerateRandomColor()
	}

	s := &domain.Staff{
		Name:  req.Name,
		Role:  req.Role,
		Color: req.Color,
	}

	if err := h.repository.CreateStaff(s); err != nil {
		h.databaseError(w, r, err)
		return
	}

	h.createdResponse(w, r, "创建员工成功", s)
}

func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
		Role  *string `json:"role" validate:"omitempty,max=100"`
		Color *string `json:"color"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	s := r.Context().Value(StaffCtx).(*domain.Staff)

	if req.Name != nil {
		s.Name = *req.Name
	}
	if req.Role != nil {
		s.Role = *req.Role
	}
	if req.Color != nil {
		if err := utils.ValidateColor(*req.Color); err != nil {
			h.badRequest(w, r, err)
			return
		}
		s.Color = *req.Color
	}

	if err := h.repository.UpdateStaff(s); err != nil {
		h.databaseError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新员工信息成功", s)
}

// DeleteStaff 会级联删除该员工在所有排班表中的记录
func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(StaffCtx).(*domain.Staff)

	if err := h.repository.DeleteStaff(s.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "员工不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除员工成功", nil)
}
