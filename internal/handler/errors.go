package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// databaseError 把数据库约束错误转换为对应的状态码，其余错误按 500 处理
func (h *Handler) databaseError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.ConstraintName {
		case "schedule_assignments_staff_slot_key":
			h.conflict(w, r, "该员工在这一天已经负责这项任务")
			return
		case "schedule_assignments_schedule_id_fkey":
			h.notFound(w, r, "排班表不存在")
			return
		case "schedule_assignments_task_id_fkey":
			h.badRequest(w, r, errors.New("任务不存在"))
			return
		case "schedule_assignments_staff_id_fkey":
			h.badRequest(w, r, errors.New("员工不存在"))
			return
		case "schedule_assignments_day_check":
			h.badRequest(w, r, errors.New("星期超出范围"))
			return
		case "staff_name_key":
			h.conflict(w, r, "员工姓名已存在")
			return
		case "tasks_name_key":
			h.conflict(w, r, "任务名称已存在")
			return
		case "schedules_week_start_key":
			h.conflict(w, r, "这一周的排班表已存在")
			return
		case "schedules_week_range_check":
			h.badRequest(w, r, errors.New("结束日期早于开始日期"))
			return
		case "schedule_templates_name_key":
			h.conflict(w, r, "模板名称已存在")
			return
		case "users_email_key":
			h.conflict(w, r, "邮箱已存在")
			return
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		// 记录已被删除，或者 version 不匹配
		h.conflict(w, r, "数据已被修改，请刷新后重试")
		return
	}

	h.internalServerError(w, r, err)
}
