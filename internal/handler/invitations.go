package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/repository"
	"github.com/mahuti/tasks/backend/internal/utils"
)

// CreateInvitation 生成一次性邀请链接并通过邮件发送，被邀请人注册时才创建账号
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		Email string `json:"email" validate:"required,email"`
		Role  string `json:"role" validate:"required,oneof=admin manager staff"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	isExists, err := h.repository.CheckEmailIfExists(req.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if isExists {
		h.conflict(w, r, "邮箱已注册")
		return
	}

	now := time.Now()
	invitation := &domain.Invitation{
		ID:          uuid.NewString(),
		Token:       utils.GenerateLinkToken(),
		Email:       req.Email,
		Role:        domain.Role(req.Role),
		InvitedBy:   myInfo.ID,
		InviterName: myInfo.Name,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(h.config.Invitation.Expiration) * time.Second),
	}

	if err := h.invitations.Save(invitation); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvitationExists):
			h.conflict(w, r, "该邮箱已有未过期的邀请，请重新发送或先撤销")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.sendInvitationMail(invitation); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.createdResponse(w, r, "邀请已通过邮件发送", invitation)
}

func (h *Handler) GetAllInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.invitations.List()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取邀请列表成功", invitations)
}

// GetInvitation 供注册页面在提交前校验 token，无需登录
func (h *Handler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	invitation, err := h.invitations.GetByToken(chi.URLParam(r, "token"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvitationNotFound):
			h.notFound(w, r, "邀请不存在或已过期")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "邀请有效", map[string]any{
		"email":     invitation.Email,
		"role":      invitation.Role,
		"expiresAt": invitation.ExpiresAt,
	})
}

func (h *Handler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	invitation := r.Context().Value(InvitationCtx).(*domain.Invitation)

	if err := h.sendInvitationMail(invitation); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "邀请邮件已重新发送", nil)
}

func (h *Handler) DeleteInvitation(w http.ResponseWriter, r *http.Request) {
	invitation := r.Context().Value(InvitationCtx).(*domain.Invitation)

	if err := h.invitations.Delete(invitation); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "邀请已撤销", nil)
}

func (h *Handler) sendInvitationMail(invitation *domain.Invitation) error {
	// 邮件中以天为单位，不足一天按一天算
	days := int(time.Until(invitation.ExpiresAt).Hours()/24) + 1

	return h.publishMail(domain.MailMessage{
		Type: domain.MailTypeInvitation,
		To:   invitation.Email,
		Data: domain.InvitationMailData{
			InviterName: invitation.InviterName,
			Role:        invitation.Role,
			Link:        fmt.Sprintf("%s/register?token=%s", h.config.Email.AppURL, invitation.Token),
			Expiration:  days,
		},
	})
}
