package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventScoreComputed, TS: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventAlertCreated, EventAlertStatusChanged},
	}}

	createdEvent := &Event{Type: EventAlertCreated}
	statusEvent := &Event{Type: EventAlertStatusChanged}
	scoreEvent := &Event{Type: EventScoreComputed}

	if !h.shouldSend(client, createdEvent) {
		t.Error("Should receive ALERT_CREATED events")
	}
	if !h.shouldSend(client, statusEvent) {
		t.Error("Should receive ALERT_STATUS_CHANGED events")
	}
	if h.shouldSend(client, scoreEvent) {
		t.Error("Should NOT receive SCORE_COMPUTED events")
	}
}

func TestShouldSend_MinScoreFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinScore: 70,
	}}

	high := &Event{
		Type: EventScoreComputed,
		Data: map[string]any{"score": 85},
	}
	low := &Event{
		Type: EventScoreComputed,
		Data: map[string]any{"score": 40},
	}
	snapshot := &Event{
		Type: EventAlertStatusChanged,
		Data: map[string]any{"score_snapshot": 90.0},
	}
	noScore := &Event{
		Type: EventAlertStatusChanged,
		Data: map[string]any{"actor": "analyst"},
	}

	if !h.shouldSend(client, high) {
		t.Error("Should receive high-score event")
	}
	if h.shouldSend(client, low) {
		t.Error("Should NOT receive low-score event")
	}
	if !h.shouldSend(client, snapshot) {
		t.Error("Should match on score_snapshot too")
	}
	if !h.shouldSend(client, noScore) {
		t.Error("Events without a score should pass through")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventScoreComputed}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinScore: 50,
	}}

	// Event with non-map data should not crash
	event := &Event{
		Type: EventScoreComputed,
		Data: "string data not a map",
	}

	// Score filter skips non-map data (can't extract score), so event passes through
	if !h.shouldSend(client, event) {
		t.Error("Non-map data should pass through when score filter can't extract a score")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connected_clients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connected_clients"])
	}
	if stats["total_events"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["total_events"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventScoreComputed, TS: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["total_events"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["total_events"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connected_clients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connected_clients"])
	}
	if stats["peak_clients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peak_clients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connected_clients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connected_clients"])
	}
	// Peak should still be 1
	if stats["peak_clients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peak_clients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(&Event{
		Type: EventAlertCreated,
		TS:   time.Now(),
		Data: map[string]any{"score": 85},
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_BroadcastSetsTimestamp(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	event := &Event{Type: EventScoreComputed}
	h.Broadcast(event)

	if event.TS.IsZero() {
		t.Error("Broadcast should stamp events missing a timestamp")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHandleWebSocket_AfterShutdown(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-stopped

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	// A connection attempt after the hub stopped must fail fast with 503,
	// not leave the handler blocked on an undrained register channel.
	result := make(chan int, 1)
	go func() {
		resp, err := http.Get(srv.URL)
		if err != nil {
			result <- 0
			return
		}
		defer resp.Body.Close()
		result <- resp.StatusCode
	}()

	select {
	case code := <-result:
		if code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503 after shutdown, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Error("Handler hung on a stopped hub")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants alert creations
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventAlertCreated}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a score event (should be filtered out)
	h.Broadcast(&Event{Type: EventScoreComputed, TS: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive score event")
	default:
		// Good - filtered out
	}

	// Send an alert creation (should be received)
	h.Broadcast(&Event{Type: EventAlertCreated, TS: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive alert created event")
	}
}
