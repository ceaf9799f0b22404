package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/PratikDhanave/sprintbot/internal/dedup"
	"github.com/PratikDhanave/sprintbot/internal/logging"
	"github.com/PratikDhanave/sprintbot/internal/models"
	"github.com/PratikDhanave/sprintbot/internal/replies"
	"github.com/PratikDhanave/sprintbot/internal/worker"
)

type sent struct {
	channel string
	text    string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeNotifier) Send(_ context.Context, channelID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{channelID, text})
}

func (f *fakeNotifier) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.text)
	}
	return out
}

type fakeClassifier struct {
	mu     sync.Mutex
	calls  int
	result models.IntentResult
	ok     bool
}

func (f *fakeClassifier) Detect(_ context.Context, _ string) (models.IntentResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.ok
}

type fakeTickets struct {
	mu        sync.Mutex
	lookups   []string
	creates   [][3]string
	deletes   []string
	list      models.TicketList
	panicking bool
}

func (f *fakeTickets) TicketsForUser(_ context.Context, userID string) models.TicketList {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicking {
		panic("boom")
	}
	f.lookups = append(f.lookups, userID)
	return f.list
}

func (f *fakeTickets) CreateTicket(_ context.Context, title, assignee, requester string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, [3]string{title, assignee, requester})
	return "✅ created"
}

func (f *fakeTickets) DeleteTicket(_ context.Context, ticketID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, ticketID)
	return "🗑️ deleted"
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []models.Interaction
}

func (f *fakeJournal) InsertInteraction(_ context.Context, in models.Interaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, in)
	return true, nil
}

type harness struct {
	d          *Dispatcher
	pool       *worker.Pool
	cache      *dedup.Cache
	classifier *fakeClassifier
	tickets    *fakeTickets
	notifier   *fakeNotifier
	journal    *fakeJournal
}

func newHarness(t *testing.T, result models.IntentResult, ok bool) *harness {
	t.Helper()
	h := &harness{
		pool:       worker.NewPool(4, 64, logging.Discard()),
		cache:      dedup.New(1000, 10*time.Minute),
		classifier: &fakeClassifier{result: result, ok: ok},
		tickets:    &fakeTickets{list: models.EmptyTicketList()},
		notifier:   &fakeNotifier{},
		journal:    &fakeJournal{},
	}
	h.d = New(Deps{
		Cache:      h.cache,
		Pool:       h.pool,
		Classifier: h.classifier,
		Tickets:    h.tickets,
		Notifier:   h.notifier,
		Journal:    h.journal,
		UserMap:    map[string]string{"U1": "zoho-1"},
		Logger:     logging.Discard(),
	})
	return h
}

// drain waits for every accepted task to finish.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.pool.Close(ctx); err != nil {
		t.Fatalf("pool close: %v", err)
	}
}

func messagePayload(eventID, text string) []byte {
	return []byte(fmt.Sprintf(`{
		"token": "verification-token",
		"team_id": "T1",
		"api_app_id": "A1",
		"type": "event_callback",
		"event_id": %q,
		"event_time": 1700000000,
		"event": {
			"type": "message",
			"channel": "C1",
			"user": "U1",
			"text": %q,
			"ts": "1700000000.000100",
			"event_ts": "1700000000.000100",
			"channel_type": "channel"
		}
	}`, eventID, text))
}

func TestHandleEvent_DuplicatesProduceOneAction(t *testing.T) {
	h := newHarness(t, models.IntentResult{Intent: models.IntentGetMyTickets}, true)
	payload := messagePayload("Ev1", "Show me my tickets")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.d.HandleEvent(payload); err != nil {
				t.Errorf("HandleEvent() error = %v", err)
			}
		}()
	}
	wg.Wait()
	h.drain(t)

	if h.classifier.calls != 1 || len(h.tickets.lookups) != 1 {
		t.Fatalf("expected one action, got classify=%d lookups=%d", h.classifier.calls, len(h.tickets.lookups))
	}
	got := h.notifier.texts()
	want := []string{"🔍 Working on your request...", replies.NoTickets}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("sends = %q, want %q", got, want)
	}
}

func TestHandleEvent_DedupFallsBackToEventTimestamp(t *testing.T) {
	h := newHarness(t, models.IntentResult{Intent: models.IntentBotCapabilities}, true)

	h.d.HandleEvent(messagePayload("", "help"))
	h.d.HandleEvent(messagePayload("", "help"))
	h.drain(t)

	if h.classifier.calls != 1 {
		t.Fatalf("expected one action, got %d", h.classifier.calls)
	}
}

func TestHandleEvent_Challenge(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"handshake", `{"token":"t","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`, `"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P"`},
		{"challenge wins over event", `{"type":"event_callback","event_id":"Ev9","challenge":"abc","event":{"type":"message","channel":"C1","user":"U1","text":"help","ts":"1"}}`, `"abc"`},
		{"non-string challenge", `{"challenge":{"nested":[1,2]}}`, `{"nested":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, models.IntentResult{Intent: models.IntentBotCapabilities}, true)
			ack, err := h.d.HandleEvent([]byte(tt.payload))
			if err != nil {
				t.Fatalf("HandleEvent() error = %v", err)
			}
			if string(ack.Challenge) != tt.want {
				t.Fatalf("challenge = %s, want %s", ack.Challenge, tt.want)
			}
			h.drain(t)
			if h.classifier.calls != 0 || h.cache.Len() != 0 {
				t.Fatal("handshake must not trigger processing")
			}
		})
	}
}

func TestHandleEvent_IgnoresNonActionable(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"edit", `{"type":"event_callback","event_id":"Ev2","event":{"type":"message","subtype":"message_changed","channel":"C1","ts":"1"}}`},
		{"bot", `{"type":"event_callback","event_id":"Ev3","event":{"type":"message","bot_id":"B1","channel":"C1","text":"✅ created","ts":"1"}}`},
		{"other event", `{"type":"event_callback","event_id":"Ev4","event":{"type":"channel_created","channel":{"id":"C9","name":"x","created":1,"creator":"U1"}}}`},
		{"app rate limited", `{"type":"app_rate_limited","team_id":"T1","minute_rate_limited":1518467820}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, models.IntentResult{Intent: models.IntentBotCapabilities}, true)
			ack, err := h.d.HandleEvent([]byte(tt.payload))
			if err != nil {
				t.Fatalf("HandleEvent() error = %v", err)
			}
			h.drain(t)
			if ack.TaskID != "" || h.classifier.calls != 0 || len(h.notifier.texts()) != 0 {
				t.Fatalf("expected no processing, ack=%+v calls=%d", ack, h.classifier.calls)
			}
		})
	}
}

func TestHandleEvent_BadPayload(t *testing.T) {
	h := newHarness(t, models.IntentResult{}, false)
	if _, err := h.d.HandleEvent([]byte(`{not json`)); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	h.drain(t)
}

func TestProcess_CreateUsesMappedRequester(t *testing.T) {
	h := newHarness(t, models.IntentResult{Intent: models.IntentCreateTicket, Title: "Fix login bug", Assignee: "me"}, true)

	h.d.HandleEvent(messagePayload("Ev5", `Create a ticket called "Fix login bug"`))
	h.drain(t)

	if len(h.tickets.creates) != 1 {
		t.Fatalf("expected one create, got %v", h.tickets.creates)
	}
	if got := h.tickets.creates[0]; got != [3]string{"Fix login bug", "me", "zoho-1"} {
		t.Fatalf("unexpected create args %v", got)
	}
	got := h.notifier.texts()
	if len(got) != 2 || got[0] != "📝 Creating your ticket..." || got[1] != "✅ created" {
		t.Fatalf("unexpected sends %q", got)
	}
	if len(h.journal.entries) != 1 || h.journal.entries[0].EventKey != "Ev5" || h.journal.entries[0].Intent != models.IntentCreateTicket {
		t.Fatalf("unexpected journal %+v", h.journal.entries)
	}
}

func TestProcess_Delete(t *testing.T) {
	h := newHarness(t, models.IntentResult{Intent: models.IntentDeleteTicket, TicketID: "I42"}, true)

	h.d.HandleEvent(messagePayload("Ev6", "delete ticket I42"))
	h.drain(t)

	if len(h.tickets.deletes) != 1 || h.tickets.deletes[0] != "I42" {
		t.Fatalf("unexpected deletes %v", h.tickets.deletes)
	}
}

func TestProcess_UnknownIntent(t *testing.T) {
	h := newHarness(t, models.IntentResult{}, false)

	h.d.HandleEvent(messagePayload("Ev7", "good morning"))
	h.drain(t)

	got := h.notifier.texts()
	if len(got) != 1 || got[0] != replies.NotUnderstood {
		t.Fatalf("expected only the not-understood reply, got %q", got)
	}
}

func TestProcess_PanicSendsFailure(t *testing.T) {
	h := newHarness(t, models.IntentResult{Intent: models.IntentGetMyTickets}, true)
	h.tickets.panicking = true

	h.d.HandleEvent(messagePayload("Ev8", "Show me my tickets"))
	h.drain(t)

	got := h.notifier.texts()
	if len(got) != 2 || got[1] != replies.Failure {
		t.Fatalf("expected failure reply after ack, got %q", got)
	}
}

type failingSubmitter struct{ err error }

func (f failingSubmitter) Submit(worker.Task) (string, error) { return "", f.err }

func TestHandleEvent_QueueFullForgetsKey(t *testing.T) {
	cache := dedup.New(10, time.Minute)
	d := New(Deps{
		Cache:      cache,
		Pool:       failingSubmitter{err: worker.ErrQueueFull},
		Classifier: &fakeClassifier{},
		Tickets:    &fakeTickets{},
		Notifier:   &fakeNotifier{},
		Logger:     logging.Discard(),
	})

	_, err := d.HandleEvent(messagePayload("Ev10", "help"))
	if !errors.Is(err, worker.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatal("rejected event must not stay in the dedup cache")
	}
}

type blockingClassifier struct{}

func (blockingClassifier) Detect(ctx context.Context, _ string) (models.IntentResult, bool) {
	<-ctx.Done()
	return models.IntentResult{}, false
}

func TestProcess_ClassificationIsTimeBounded(t *testing.T) {
	notifier := &fakeNotifier{}
	pool := worker.NewPool(1, 4, logging.Discard())
	d := New(Deps{
		Cache:           dedup.New(10, time.Minute),
		Pool:            pool,
		Classifier:      blockingClassifier{},
		Tickets:         &fakeTickets{},
		Notifier:        notifier,
		Logger:          logging.Discard(),
		ClassifyTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	if _, err := d.HandleEvent(messagePayload("Ev11", "Show me my tickets")); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Close(ctx); err != nil {
		t.Fatalf("pool close: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("classification was not cut off, took %v", elapsed)
	}
	got := notifier.texts()
	if len(got) != 1 || got[0] != replies.NotUnderstood {
		t.Fatalf("expected the not-understood reply, got %q", got)
	}
}

// orderedTickets records how many messages had been sent when it was called.
type orderedTickets struct {
	fakeTickets
	notifier  *fakeNotifier
	sentFirst int
}

func (o *orderedTickets) TicketsForUser(ctx context.Context, userID string) models.TicketList {
	o.sentFirst = len(o.notifier.texts())
	return o.fakeTickets.TicketsForUser(ctx, userID)
}

func TestProcess_AckPrecedesTicketCalls(t *testing.T) {
	h := newHarness(t, models.IntentResult{Intent: models.IntentGetMyTickets}, true)
	tickets := &orderedTickets{fakeTickets: fakeTickets{list: models.EmptyTicketList()}, notifier: h.notifier}
	h.d = New(Deps{
		Cache:      h.cache,
		Pool:       h.pool,
		Classifier: h.classifier,
		Tickets:    tickets,
		Notifier:   h.notifier,
		Logger:     logging.Discard(),
	})

	h.d.HandleEvent(messagePayload("Ev12", "Show me my tickets"))
	h.drain(t)

	if tickets.sentFirst != 1 {
		t.Fatalf("expected the ack before the lookup, %d messages were sent first", tickets.sentFirst)
	}
}
