package publish

import (
	"fmt"
	"strings"

	"ai-slovo/internal/utils/text"
)

// Hashtags appended to every tweet.
const defaultHashtags = "#Bible21 #VerseOfTheDay"

// Caption limits of the supported channels, in characters.
const (
	TelegramCaptionLimit = 1024
	TweetLimit           = 280
	DiscordContentLimit  = 2000
)

// TelegramCaption formats "{icon}{dd/mm/yy}\n\n{quote}({shortcut})".
func TelegramCaption(p Post) string {
	caption := fmt.Sprintf("%s%s\n\n%s(%s)", p.WeatherIcon, p.Date.Format("02/01/06"), p.Quote, p.Style.Shortcut)
	out, _ := text.Fit(caption, TelegramCaptionLimit)
	return out
}

// TweetText formats the quote, a blank line, then the fixed and style
// hashtags. The quote is shortened so the hashtags always fit.
func TweetText(p Post) string {
	tags := defaultHashtags + " " + p.Style.Hashtag()
	room := TweetLimit - text.CountRunes(tags) - 2
	quote, _ := text.Fit(strings.TrimSpace(p.Quote), room)
	if quote == "" {
		return tags
	}
	return quote + "\n\n" + tags
}

// PlainCaption formats a caption for chat webhooks: quote, style and date.
func PlainCaption(p Post, limit int) string {
	var b strings.Builder
	if p.WeatherIcon != "" {
		b.WriteString(p.WeatherIcon)
		b.WriteString(" ")
	}
	b.WriteString(p.Date.Format("02/01/2006"))
	b.WriteString("\n")
	b.WriteString(p.Quote)
	if name := p.Style.DisplayName(); name != "" {
		b.WriteString("\n_")
		b.WriteString(name)
		b.WriteString("_")
	}
	out, _ := text.Fit(b.String(), limit)
	return out
}
