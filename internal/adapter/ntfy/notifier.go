// Package ntfy pushes fired alerts to an ntfy topic so phones and desktops
// ring without a dedicated app.
package ntfy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// Notifier posts one ntfy message per fired alert. It implements
// alert.Notifier.
type Notifier struct {
	serverURL  string
	topic      string
	priority   string
	dryRun     bool
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNotifier creates an ntfy publisher. With dryRun set, messages are
// logged instead of posted, which keeps local runs quiet.
func NewNotifier(serverURL, topic, priority string, dryRun bool, timeout time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		serverURL:  strings.TrimRight(serverURL, "/"),
		topic:      topic,
		priority:   priority,
		dryRun:     dryRun,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Notify publishes the alert to the configured topic.
func (n *Notifier) Notify(ctx context.Context, payload domain.AlertPayload) error {
	title, body := formatMessage(payload)

	if n.dryRun {
		n.logger.Info("ntfy dry run", "title", title, "body", body)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.serverURL+"/"+n.topic, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("create ntfy request: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Tags", "earthquake,warning")
	if n.priority != "" {
		req.Header.Set("Priority", n.priority)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ntfy error: status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

// formatMessage builds the push title and body from an alert payload.
func formatMessage(p domain.AlertPayload) (title, body string) {
	place := domain.NormalizePlace(p.Event.Place)
	title = fmt.Sprintf("M %.1f %s", p.Event.Magnitude, place)

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s", p.Event.Kind, p.Event.Time.Format("15:04:05 MST"))
	fmt.Fprintf(&b, "\nDepth: %.1f km", p.Event.DepthKm)
	if p.DistanceKm != nil {
		fmt.Fprintf(&b, "\nDistance: %.0f km from you", *p.DistanceKm)
	}
	return title, b.String()
}
