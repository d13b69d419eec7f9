package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/sapplex-sz/save-me-app/config"
)

// AdminAuthMiddleware 管理后台的 HTTP Basic Auth。
// 未配置 ADMIN_PASSWORD 时拒绝所有请求。
func AdminAuthMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if config.Cfg.AdminPassword == "" {
			unauthorized(c)
			return
		}

		header := string(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, "Basic ") {
			unauthorized(c)
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
		if err != nil {
			unauthorized(c)
			return
		}

		username, password, ok := strings.Cut(string(decoded), ":")
		if !ok {
			unauthorized(c)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(config.Cfg.AdminUsername)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(config.Cfg.AdminPassword)) == 1
		if !userMatch || !passMatch {
			unauthorized(c)
			return
		}

		c.Next(ctx)
	}
}

func unauthorized(c *app.RequestContext) {
	c.Header("WWW-Authenticate", `Basic realm="admin"`)
	c.AbortWithStatus(http.StatusUnauthorized)
}
