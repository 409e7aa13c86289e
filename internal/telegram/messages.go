package telegram

import (
	"fmt"
	"strings"

	"github.com/user/issuebot/internal/github"
)

const (
	maxTitleLen = 80
	maxLabels   = 6
	maxLabelLen = 20
	maxRepoList = 5
)

// htmlEscaper neutralizes characters Telegram's HTML parse mode would
// otherwise interpret.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// MessageBuilder constructs formatted notification messages. All
// builders are pure: same input, byte-identical output.
type MessageBuilder struct{}

// NewMessageBuilder creates a new message builder.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{}
}

// BuildIssueMessage renders a new-issue notification.
func (m *MessageBuilder) BuildIssueMessage(event *github.IssueEvent) string {
	title := escapeHTML(truncate(event.Title, maxTitleLen))

	var labelsLine string
	if len(event.Labels) > 0 {
		labels := event.Labels
		if len(labels) > maxLabels {
			labels = labels[:maxLabels]
		}
		safe := make([]string, len(labels))
		for i, name := range labels {
			safe[i] = fmt.Sprintf("<code>%s</code>", escapeHTML(truncate(name, maxLabelLen)))
		}
		labelsLine = "\n🏷️ <b>Labels:</b> " + strings.Join(safe, ", ")
	}

	return fmt.Sprintf(`🆕 <b>New Issue</b>

📋 <b>Title:</b> %s
👤 <b>Author:</b> @%s
📦 <b>Repository:</b> <code>%s</code>
🔗 <b>Link:</b> <a href="%s">#%d</a>%s`,
		title, escapeHTML(event.Author), escapeHTML(event.Repository),
		event.URL, event.Number, labelsLine)
}

// BuildStartupMessage renders the process-start notification. Only the
// first few repositories are listed in full; stars carries optional
// per-repository star counts from the GitHub API and may be nil.
func (m *MessageBuilder) BuildStartupMessage(repositories []string, stars map[string]int, dbPath string) string {
	shown := repositories
	if len(shown) > maxRepoList {
		shown = shown[:maxRepoList]
	}

	var list strings.Builder
	for _, repo := range shown {
		if count, ok := stars[repo]; ok {
			fmt.Fprintf(&list, "• <code>%s</code> (⭐ %d)\n", escapeHTML(repo), count)
		} else {
			fmt.Fprintf(&list, "• <code>%s</code>\n", escapeHTML(repo))
		}
	}
	if extra := len(repositories) - len(shown); extra > 0 {
		fmt.Fprintf(&list, "• ... and %d more\n", extra)
	}

	return fmt.Sprintf(`🚀 <b>Issue Tracker Started</b>

⚡ <b>Mode:</b> Real-time webhooks
📦 <b>Monitoring %d repositories:</b>

%s
💾 <b>Database:</b> <code>%s</code>`,
		len(repositories), list.String(), escapeHTML(dbPath))
}

// BuildDispatchFailedMessage renders the operator-facing record
// emitted when a notification exhausts its delivery attempts.
func (m *MessageBuilder) BuildDispatchFailedMessage(attempts int, cause error) string {
	return fmt.Sprintf(`⚠️ <b>Notification delivery failed</b>

Gave up after %d attempts: <code>%s</code>`,
		attempts, escapeHTML(cause.Error()))
}

// BuildErrorMessage renders an internal-fault notification so
// operators hear about component errors in the same chat as issue
// notifications.
func (m *MessageBuilder) BuildErrorMessage(component string, cause error) string {
	return fmt.Sprintf(`⚠️ <b>Internal error</b>

🔧 <b>Component:</b> <code>%s</code>
<code>%s</code>`,
		escapeHTML(component), escapeHTML(cause.Error()))
}

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// truncate shortens s to at most maxLen runes, marking the cut with an
// ellipsis.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
