// Package webhook notifies configured URLs when a batch finishes.
//
// Notifications are sent in goroutines so they never block the HTTP response.
// The payload carries batch counters only. Failed deliveries are logged and
// not retried.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sterlixo/chilli-checker/internal/domain"
)

// Event names carried in the payload and the X-Checker-Event header.
const (
	EventBatchCompleted = "batch_completed"
	EventBatchAborted   = "batch_aborted"
)

// Notifier posts batch summaries to every configured URL.
type Notifier struct {
	urls   []string
	client *http.Client
	log    zerolog.Logger
	wg     sync.WaitGroup
}

// New creates a Notifier with a sensible default HTTP client timeout.
func New(urls []string, log zerolog.Logger) *Notifier {
	return &Notifier{
		urls:   urls,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log,
	}
}

// NotifyAsync fires one delivery per URL in the background.
func (n *Notifier) NotifyAsync(state domain.BatchState) {
	if n == nil || len(n.urls) == 0 {
		return
	}
	event := EventBatchCompleted
	if state.Status == domain.BatchAborted {
		event = EventBatchAborted
	}
	payload := domain.BatchSummaryPayload{
		Event:       event,
		TriggeredAt: time.Now().UTC(),
		Batch:       state,
	}
	for _, u := range n.urls {
		n.wg.Add(1)
		go func(url string) {
			defer n.wg.Done()
			n.send(url, payload)
		}(u)
	}
}

// Wait blocks until in-flight deliveries finish.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}

// send delivers a single webhook call and logs the outcome.
func (n *Notifier) send(url string, payload domain.BatchSummaryPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error().Err(err).Str("url", url).Msg("webhook: failed to marshal payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.log.Error().Err(err).Str("url", url).Msg("webhook: failed to build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Checker-Event", payload.Event)

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn().Err(err).Str("url", url).Msg("webhook: delivery failed")
		return
	}
	defer resp.Body.Close()

	n.log.Info().
		Str("url", url).
		Int("status", resp.StatusCode).
		Str("batch_id", payload.Batch.ID).
		Str("event", payload.Event).
		Msg("webhook: delivered")
}
