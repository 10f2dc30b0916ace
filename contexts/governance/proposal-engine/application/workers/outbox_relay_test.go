package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/contexts/governance/proposal-engine/adapters/memory"
	"agora/contexts/governance/proposal-engine/ports"
)

type recordingPublisher struct {
	failures map[string]int
	topics   []string
	events   []ports.EventEnvelope
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failures[event.EventID] > 0 {
		p.failures[event.EventID]--
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func appendEvents(t *testing.T, store *memory.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
			EventID:    id,
			EventType:  "proposal.voted",
			OccurredAt: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC),
		}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
}

func TestOutboxRelayPublishesInOrderAndMarksRows(t *testing.T) {
	store := memory.NewStore()
	appendEvents(t, store, "evt-2", "evt-1", "evt-3")
	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(publisher.events) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(publisher.events))
	}
	for i, want := range []string{"evt-2", "evt-1", "evt-3"} {
		if publisher.events[i].EventID != want || publisher.topics[i] != "proposal.voted" {
			t.Fatalf("event %d: expected %s on proposal.voted, got %s on %s", i, want, publisher.events[i].EventID, publisher.topics[i])
		}
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}
}

func TestOutboxRelayStopsOnFirstFailure(t *testing.T) {
	store := memory.NewStore()
	appendEvents(t, store, "evt-1", "evt-2", "evt-3")
	publisher := &recordingPublisher{failures: map[string]int{"evt-2": 1}}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure")
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 || pending[0].OutboxID != "evt-2" {
		t.Fatalf("expected evt-2 and evt-3 to remain pending, got %#v", pending)
	}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(publisher.events) != 3 {
		t.Fatalf("expected all events published after recovery, got %d", len(publisher.events))
	}
}
