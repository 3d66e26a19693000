package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jjtg/htmx-demo/logger"

	"golang.org/x/time/rate"
)

// Alerter reports server faults to operators.
type Alerter interface {
	Alert(ctx context.Context, msg, severity string)
}

type WebhookMessage struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
}

// Webhook posts alerts as JSON to URL. Alerts beyond the rate limit are
// dropped. A Webhook with an empty URL does nothing.
type Webhook struct {
	URL    string
	Client *http.Client

	limiter *rate.Limiter
	wg      sync.WaitGroup
}

// NewWebhook allows a burst of 5 alerts, refilled at one per 10 seconds.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:     url,
		Client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(rate.Every(10*time.Second), 5),
	}
}

// Alert sends msg without blocking the caller.
func (wh *Webhook) Alert(ctx context.Context, msg, severity string) {
	if wh == nil || wh.URL == "" {
		return
	}
	if wh.limiter != nil && !wh.limiter.Allow() {
		logger.Debug("Webhook alert dropped by rate limit", "severity", severity)
		return
	}

	data, err := json.Marshal(WebhookMessage{
		Text:      fmt.Sprintf("[htmx-demo] %s", msg),
		Timestamp: time.Now(),
		Severity:  severity,
	})
	if err != nil {
		logger.Error("Failed to encode webhook alert", "err", err)
		return
	}

	// The request outlives the HTTP request that triggered it.
	ctx = context.WithoutCancel(ctx)
	wh.wg.Add(1)
	go func() {
		defer wh.wg.Done()
		if err := wh.post(ctx, data); err != nil {
			logger.Warn("Failed to send webhook alert", "err", err)
		}
	}()
}

func (wh *Webhook) post(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := wh.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// Wait blocks until all in-flight alerts have been sent.
func (wh *Webhook) Wait() {
	if wh == nil {
		return
	}
	wh.wg.Wait()
}
