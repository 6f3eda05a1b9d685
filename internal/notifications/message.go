package notifications

import (
	"fmt"
	"strings"
)

// postURL returns the public link to a post, or "" when no base URL is configured.
func postURL(baseURL string, postID uint) string {
	if baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/posts/%d", strings.TrimRight(baseURL, "/"), postID)
}

// announcement renders the plain-text body shared by the Telegram and e-mail sinks.
func announcement(evt Event, baseURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Новая статья: %s\n", evt.Title)
	if len(evt.Tags) > 0 {
		b.WriteString("Теги:")
		for _, tag := range evt.Tags {
			b.WriteString(" #")
			b.WriteString(tag)
		}
		b.WriteString("\n")
	}
	if link := postURL(baseURL, evt.PostID); link != "" {
		b.WriteString(link)
		b.WriteString("\n")
	}
	return b.String()
}
