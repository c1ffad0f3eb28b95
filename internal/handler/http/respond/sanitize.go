package respond

import (
	"regexp"
)

var (
	// Slack webhook のシークレット部分
	webhookPattern = regexp.MustCompile(`hooks\.slack\.com/services/[A-Za-z0-9/_-]+`)

	// Bearer トークン
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`)

	// データベースパスワードパターン（DSN内）
	dbPasswordPattern = regexp.MustCompile(`://([^:/@]+):([^@]+)@`)
)

// SanitizeError は機密情報をマスクしたエラーメッセージを返す
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = webhookPattern.ReplaceAllString(msg, "hooks.slack.com/services/****")
	msg = bearerPattern.ReplaceAllString(msg, "Bearer ****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")

	return msg
}
