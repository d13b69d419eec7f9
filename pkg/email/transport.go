package email

import (
	"context"
)

// Credential 一组 SMTP 发送凭据
type Credential struct {
	Host     string
	Port     int
	Secure   bool // true 使用 SSL（465），false 使用 STARTTLS（587）
	Username string
	Password string
	From     string // 为空时使用 Username 作为发件人
}

func (c Credential) FromAddress() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

// Message 一封待发送的邮件
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Transport SMTP 发送接口
type Transport interface {
	Send(ctx context.Context, cred Credential, msg Message) error
}
