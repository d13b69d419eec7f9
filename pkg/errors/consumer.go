package errors

import "fmt"

// SkipMessageError 表示消息应被丢弃而不是重新入队。
// 消费者收到此错误时 Ack 消息并跳过处理。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return fmt.Sprintf("message skipped: %s", e.Reason)
}

// NonRetryableError 表示配置类失败，重试不会成功。
type NonRetryableError struct {
	Code    string
	Message string
	Hint    string
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable error %s: %s (%s)", e.Code, e.Message, e.Hint)
}

// NewNonRetryableError 构造不可重试错误。
func NewNonRetryableError(code, message, hint string) *NonRetryableError {
	return &NonRetryableError{Code: code, Message: message, Hint: hint}
}
