package webhook_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sterlixo/chilli-checker/internal/domain"
	"github.com/sterlixo/chilli-checker/internal/webhook"
)

func TestNotifyAsync_PostsSummaryToEveryURL(t *testing.T) {
	var mu sync.Mutex
	var got []domain.BatchSummaryPayload
	var events []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p domain.BatchSummaryPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		got = append(got, p)
		events = append(events, r.Header.Get("X-Checker-Event"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := webhook.New([]string{srv.URL + "/a", srv.URL + "/b"}, zerolog.Nop())
	n.NotifyAsync(domain.BatchState{ID: "b-1", Status: domain.BatchAborted, ProcessedCount: 3})
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	for i, p := range got {
		if p.Event != webhook.EventBatchAborted || events[i] != webhook.EventBatchAborted {
			t.Errorf("expected aborted event, got payload=%s header=%s", p.Event, events[i])
		}
		if p.Batch.ID != "b-1" || p.Batch.ProcessedCount != 3 {
			t.Errorf("unexpected batch in payload: %+v", p.Batch)
		}
	}
}

func TestNotifyAsync_NoURLsIsNoop(t *testing.T) {
	n := webhook.New(nil, zerolog.Nop())
	n.NotifyAsync(domain.BatchState{ID: "b-2", Status: domain.BatchCompleted})
	n.Wait()

	var nilNotifier *webhook.Notifier
	nilNotifier.NotifyAsync(domain.BatchState{})
	nilNotifier.Wait()
}

func TestNotifyAsync_UnreachableURLDoesNotPanic(t *testing.T) {
	n := webhook.New([]string{"http://127.0.0.1:1/hook"}, zerolog.Nop())
	n.NotifyAsync(domain.BatchState{ID: "b-3", Status: domain.BatchCompleted})
	n.Wait()
}
