package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/internal/service"
	pkgerrors "github.com/sapplex-sz/save-me-app/pkg/errors"
	"github.com/sapplex-sz/save-me-app/pkg/response"
	"github.com/sapplex-sz/save-me-app/utils"
)

// StartActivity 开启一次新活动
// POST /v1/activities
func StartActivity(ctx context.Context, c *app.RequestContext) {
	var req model.StartActivityRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if !utils.ValidatePhone(req.PhoneNumber) {
		response.Error(ctx, c, pkgerrors.Definition{Code: "INVALID_PHONE", Message: "Invalid phone number"})
		return
	}
	if req.ContactPhone == "" {
		response.Error(ctx, c, pkgerrors.Definition{Code: "INVALID_REQUEST", Message: "contact_phone is required"})
		return
	}
	if req.ContactEmail != "" && !utils.ValidateEmail(req.ContactEmail) {
		response.Error(ctx, c, pkgerrors.InvalidRecipient)
		return
	}

	activity, err := service.Activity().Start(ctx, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, activity)
}

// GetCurrentActivity 查询某手机号当前进行中的活动
// GET /v1/activities/current?phone=...
func GetCurrentActivity(ctx context.Context, c *app.RequestContext) {
	phone := c.Query("phone")
	if !utils.ValidatePhone(phone) {
		response.Error(ctx, c, pkgerrors.Definition{Code: "INVALID_PHONE", Message: "Invalid phone number"})
		return
	}

	activity, err := service.Activity().GetCurrent(ctx, phone)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, activity)
}

// ReportSafe 报平安，推后 deadline
// POST /v1/activities/:activity_id/safe
func ReportSafe(ctx context.Context, c *app.RequestContext) {
	activityID := c.Param("activity_id")

	var req model.ReportSafeRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Activity().ReportSafe(ctx, activityID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// EndActivity 主动结束活动
// POST /v1/activities/:activity_id/end
func EndActivity(ctx context.Context, c *app.RequestContext) {
	activityID := c.Param("activity_id")

	activity, err := service.Activity().End(ctx, activityID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, activity)
}
