package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/internal/service"
	pkgerrors "github.com/sapplex-sz/save-me-app/pkg/errors"
	"github.com/sapplex-sz/save-me-app/pkg/response"
)

// GetSettings 查询系统配置，密钥类的值做掩码
// GET /admin/settings
func GetSettings(ctx context.Context, c *app.RequestContext) {
	settings, err := service.Settings().GetSettings(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, settings)
}

// UpdateSettings 批量更新系统配置
// PUT /admin/settings
func UpdateSettings(ctx context.Context, c *app.RequestContext) {
	var req model.UpdateSettingsRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Settings().UpdateSettings(ctx, req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]bool{"success": true})
}

// ListEmailSenders 查询发件池账号
// GET /admin/email-senders
func ListEmailSenders(ctx context.Context, c *app.RequestContext) {
	senders, err := service.Settings().ListSenders(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, senders)
}

// CreateEmailSender 新增发件账号
// POST /admin/email-senders
func CreateEmailSender(ctx context.Context, c *app.RequestContext) {
	var req model.CreateEmailSenderRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	sender, err := service.Settings().CreateSender(ctx, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, sender)
}

// ToggleEmailSender 启用/禁用发件账号
// PATCH /admin/email-senders/:sender_id/toggle
func ToggleEmailSender(ctx context.Context, c *app.RequestContext) {
	id, err := strconv.ParseInt(c.Param("sender_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, pkgerrors.Definition{Code: "INVALID_REQUEST", Message: "Invalid sender id"})
		return
	}

	var req model.ToggleEmailSenderRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Settings().ToggleSender(ctx, id, req.IsActive); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]bool{"success": true})
}

// DeleteEmailSender 删除发件账号
// DELETE /admin/email-senders/:sender_id
func DeleteEmailSender(ctx context.Context, c *app.RequestContext) {
	id, err := strconv.ParseInt(c.Param("sender_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, pkgerrors.Definition{Code: "INVALID_REQUEST", Message: "Invalid sender id"})
		return
	}

	if err := service.Settings().DeleteSender(ctx, id); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
