package utils

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidateEmail 宽松校验，把格式问题留给 SMTP 服务器
func ValidateEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
