package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/sapplex-sz/save-me-app/internal/model"
	"github.com/sapplex-sz/save-me-app/internal/service"
	"github.com/sapplex-sz/save-me-app/pkg/response"
	"github.com/sapplex-sz/save-me-app/utils"
)

// TestConnection 客户端自检：网络、GPS、邮件链路
// POST /v1/test-connection
func TestConnection(ctx context.Context, c *app.RequestContext) {
	var req model.TestConnectionRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if req.Email != "" && !utils.ValidateEmail(req.Email) {
		req.Email = ""
	}

	result := service.Settings().TestConnection(ctx, &req)
	response.Success(ctx, c, result)
}
