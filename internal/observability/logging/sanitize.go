package logging

import "regexp"

var (
	// more specific patterns first
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[a-zA-Z0-9-_]+`)
	openaiKeyPattern    = regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`)
	groqKeyPattern      = regexp.MustCompile(`gsk_[a-zA-Z0-9]{10,}`)

	// Telegram embeds the bot token in the request path
	telegramTokenPattern = regexp.MustCompile(`bot[0-9]{5,}:[a-zA-Z0-9_-]{20,}`)

	// Discord and Slack webhook URLs carry their secret in the path
	webhookPattern = regexp.MustCompile(`(https://(?:discord(?:app)?\.com/api/webhooks|hooks\.slack\.com/services))/[^\s"']+`)

	queryKeyPattern   = regexp.MustCompile(`([?&](?:key|api_key|apikey|token)=)[^&\s"']+`)
	dbPasswordPattern = regexp.MustCompile(`://([^:/]+):([^@]+)@`)
)

// SanitizeError returns the error message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// Sanitize masks API keys, bot tokens, webhook secrets and DSN passwords in msg.
func Sanitize(msg string) string {
	msg = anthropicKeyPattern.ReplaceAllString(msg, "sk-ant-****")
	msg = openaiKeyPattern.ReplaceAllString(msg, "sk-****")
	msg = groqKeyPattern.ReplaceAllString(msg, "gsk_****")
	msg = telegramTokenPattern.ReplaceAllString(msg, "bot****")
	msg = webhookPattern.ReplaceAllString(msg, "$1/****")
	msg = queryKeyPattern.ReplaceAllString(msg, "$1****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
