package github

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/user/issuebot/pkg/logger"
)

// IssueStore is the dedup ledger the handler consults. Implemented by
// storage.EventStore. MarkSeen reports whether the record was created
// by this call; false means another delivery won the race.
type IssueStore interface {
	HasSeen(repository string, issueNumber int) (bool, error)
	MarkSeen(repository string, issueNumber int, at time.Time) (bool, error)
}

// JobQueue receives formatted notifications for asynchronous delivery.
// Neither method blocks; both report whether the job was accepted.
type JobQueue interface {
	Enqueue(text string) bool
	EnqueueCritical(text string) bool
}

// MessageFormatter renders messages for the chat transport.
type MessageFormatter interface {
	BuildIssueMessage(event *IssueEvent) string
	BuildErrorMessage(component string, cause error) string
}

// WebhookHandler handles incoming GitHub issue webhooks. It owns no
// state beyond its collaborators; each request builds request-scoped
// values only.
type WebhookHandler struct {
	secret    string
	monitored map[string]struct{}
	store     IssueStore
	queue     JobQueue
	formatter MessageFormatter
	now       func() time.Time
}

// NewWebhookHandler creates a new webhook handler. An empty secret
// disables signature verification.
func NewWebhookHandler(secret string, monitored map[string]struct{}, store IssueStore, queue JobQueue, formatter MessageFormatter) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		monitored: monitored,
		store:     store,
		queue:     queue,
		formatter: formatter,
		now:       time.Now,
	}
}

// ServeHTTP runs the webhook pipeline: verify, parse, dedup, enqueue.
// All terminal states respond immediately; delivery to Telegram is
// asynchronous so dispatcher backoff never delays the acknowledgement.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read webhook body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if h.secret != "" {
		signature := r.Header.Get("X-Hub-Signature-256")
		if !VerifySignature(body, signature, h.secret) {
			logger.Warn().Msg("Invalid webhook signature")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}
	}

	eventType := r.Header.Get("X-GitHub-Event")
	switch eventType {
	case "ping":
		// GitHub's hook handshake.
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Pong"))
		return
	case "issues":
	default:
		logger.Debug().Str("event_type", eventType).Msg("Rejecting unsupported event type")
		http.Error(w, "Unsupported event type", http.StatusBadRequest)
		return
	}

	event, err := ParseIssueEvent(body, h.now())
	if err != nil {
		if errors.Is(err, ErrIgnoredAction) {
			logger.Debug().Msg("Rejecting non-opened issue action")
		} else {
			logger.Warn().Err(err).Msg("Failed to parse issues payload")
		}
		http.Error(w, "Unsupported issue event", http.StatusBadRequest)
		return
	}

	if _, ok := h.monitored[event.Repository]; !ok {
		logger.Debug().Str("repo", event.Repository).Msg("Rejecting unmonitored repository")
		http.Error(w, "Repository not monitored", http.StatusBadRequest)
		return
	}

	seen, err := h.hasSeen(event)
	if err != nil {
		logger.Error().Err(err).Str("repo", event.Repository).Int("issue", event.Number).
			Msg("Dedup store unavailable")
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}
	if seen {
		// Redelivery of a known issue: acknowledge without a second
		// notification.
		logger.Debug().Str("repo", event.Repository).Int("issue", event.Number).
			Msg("Issue already notified, ignoring redelivery")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Already notified"))
		return
	}

	// Record before enqueueing: if the dedup row cannot be written we
	// must not notify, or a redelivery could duplicate the message.
	inserted, err := h.markSeen(event)
	if err != nil {
		logger.Error().Err(err).Str("repo", event.Repository).Int("issue", event.Number).
			Msg("Failed to record issue")
		h.queue.EnqueueCritical(h.formatter.BuildErrorMessage("dedup store", err))
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}
	if !inserted {
		// A concurrent delivery of the same issue recorded it between
		// our HasSeen and MarkSeen; that delivery notifies, we don't.
		logger.Debug().Str("repo", event.Repository).Int("issue", event.Number).
			Msg("Lost insert race to concurrent delivery")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Already notified"))
		return
	}

	message := h.formatter.BuildIssueMessage(event)
	if !h.queue.Enqueue(message) {
		logger.Error().Str("repo", event.Repository).Int("issue", event.Number).
			Msg("Notification queue rejected job")
	} else {
		logger.Info().Str("repo", event.Repository).Int("issue", event.Number).
			Msg("Issue notification enqueued")
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// hasSeen queries the store, retrying once on failure before giving up.
func (h *WebhookHandler) hasSeen(event *IssueEvent) (bool, error) {
	seen, err := h.store.HasSeen(event.Repository, event.Number)
	if err == nil {
		return seen, nil
	}
	time.Sleep(100 * time.Millisecond)
	return h.store.HasSeen(event.Repository, event.Number)
}

// markSeen inserts the dedup record, retrying once on failure.
func (h *WebhookHandler) markSeen(event *IssueEvent) (bool, error) {
	inserted, err := h.store.MarkSeen(event.Repository, event.Number, event.ReceivedAt)
	if err == nil {
		return inserted, nil
	}
	time.Sleep(100 * time.Millisecond)
	return h.store.MarkSeen(event.Repository, event.Number, event.ReceivedAt)
}
