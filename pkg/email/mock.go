package email

import (
	"context"
	"errors"
	"sync"
)

type MockSend struct {
	Cred Credential
	Msg  Message
}

// MockTransport 可配置的邮件发送 mock，实现 Transport 接口
type MockTransport struct {
	mu    sync.Mutex
	Sends []MockSend

	// FailFor 这些用户名对应的凭据发送时返回错误
	FailFor map[string]bool

	// FailAlways 置为 true 时所有发送都失败
	FailAlways bool
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		Sends:   make([]MockSend, 0),
		FailFor: make(map[string]bool),
	}
}

func (m *MockTransport) Send(ctx context.Context, cred Credential, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Sends = append(m.Sends, MockSend{Cred: cred, Msg: msg})

	if m.FailAlways || m.FailFor[cred.Username] {
		return errors.New("mock email send failure")
	}
	return nil
}

func (m *MockTransport) SendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sends)
}
