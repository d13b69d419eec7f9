package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/sapplex-sz/save-me-app/pkg/logger"
)

// GomailTransport 基于 gomail 的 SMTP 发送实现
type GomailTransport struct {
	// Timeout 单次发送的超时上限，零值表示不限制
	Timeout time.Duration
}

func NewGomailTransport(timeout time.Duration) *GomailTransport {
	return &GomailTransport{Timeout: timeout}
}

// Send 用给定凭据发送一封邮件
// gomail 的拨号没有 context 支持，这里在 goroutine 中发送并用 select 控制超时
func (t *GomailTransport) Send(ctx context.Context, cred Credential, msg Message) error {
	if cred.Host == "" || cred.Username == "" {
		return fmt.Errorf("email credential is incomplete")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", cred.FromAddress())
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	d := gomail.NewDialer(cred.Host, cred.Port, cred.Username, cred.Password)
	d.SSL = cred.Secure
	if !cred.Secure {
		d.TLSConfig = &tls.Config{ServerName: cred.Host}
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Logger.Error("Failed to send email",
				zap.String("host", cred.Host),
				zap.String("username", cred.Username),
				zap.String("to", msg.To),
				zap.Error(err),
			)
			return fmt.Errorf("failed to send email via %s: %w", cred.Host, err)
		}
		return nil
	case <-ctx.Done():
		logger.Logger.Error("Email send timed out",
			zap.String("host", cred.Host),
			zap.String("to", msg.To),
		)
		return fmt.Errorf("email send via %s: %w", cred.Host, ctx.Err())
	}
}
