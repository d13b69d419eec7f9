package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 活动模块错误。
var (
	ActivityRateLimited = Definition{Code: "ACTIVITY_RATE_LIMITED", Message: "Activity started too frequently"}
	ActivityNotFound    = Definition{Code: "ACTIVITY_NOT_FOUND", Message: "Activity not found"}
	ActivityNotActive   = Definition{Code: "ACTIVITY_NOT_ACTIVE", Message: "Activity is not active"}
)

// 通知模块错误。
var (
	NoSenderAvailable = Definition{Code: "NO_SENDER_AVAILABLE", Message: "No active email sender available"}
	InvalidRecipient  = Definition{Code: "INVALID_RECIPIENT", Message: "Recipient address is invalid"}
)

// 发件配置错误。
var (
	ErrSignNameRequired     = Definition{Code: "SMS_SIGN_NAME_REQUIRED", Message: "SMS sign name is required"}
	ErrTemplateCodeRequired = Definition{Code: "SMS_TEMPLATE_CODE_REQUIRED", Message: "SMS template code is required"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	ActivityRateLimited.Code: ActivityRateLimited,
	ActivityNotFound.Code:    ActivityNotFound,
	ActivityNotActive.Code:   ActivityNotActive,
	NoSenderAvailable.Code:   NoSenderAvailable,
	InvalidRecipient.Code:    InvalidRecipient,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
