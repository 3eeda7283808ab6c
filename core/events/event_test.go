package events

import (
	"testing"

	"challengechain/core/types"
)

type testEvent string

func (e testEvent) EventType() string { return string(e) }

func TestBufferFlushesInOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(testEvent("a"))
	buf.Emit(nil)
	buf.Emit(testEvent("b"))

	rec := NewRecorder(10)
	buf.Flush(rec)
	got := rec.Recent(0)
	if len(got) != 2 || got[0].EventType() != "a" || got[1].EventType() != "b" {
		t.Fatalf("unexpected flushed events: %v", got)
	}
	if len(buf.Events()) != 0 {
		t.Fatalf("buffer not emptied after flush")
	}

	buf.Flush(rec)
	if len(rec.Recent(0)) != 2 {
		t.Fatalf("second flush replayed events")
	}
}

func TestRecorderTrimsToLimit(t *testing.T) {
	rec := NewRecorder(2)
	Multi{rec, NoopEmitter{}}.Emit(testEvent("1"))
	rec.Emit(testEvent("2"))
	rec.Emit(testEvent("3"))
	got := rec.Recent(5)
	if len(got) != 2 || got[0].EventType() != "2" || got[1].EventType() != "3" {
		t.Fatalf("unexpected recent events: %v", got)
	}
	if last := rec.Recent(1); len(last) != 1 || last[0].EventType() != "3" {
		t.Fatalf("unexpected last event: %v", last)
	}
}

type payloadEvent struct{ evt *types.Event }

func (e payloadEvent) EventType() string   { return e.evt.Type }
func (e payloadEvent) Event() *types.Event { return e.evt }

func TestFeedFiltersAndDrops(t *testing.T) {
	feed := NewFeed()
	all, cancelAll := feed.Subscribe(1, nil)
	onlyB, cancelB := feed.Subscribe(4, func(evt types.Event) bool { return evt.Attributes["id"] == "b" })
	defer cancelB()

	feed.Emit(testEvent("untyped"))
	feed.Emit(payloadEvent{&types.Event{Type: "x", Attributes: map[string]string{"id": "a"}}})
	feed.Emit(payloadEvent{&types.Event{Type: "y", Attributes: map[string]string{"id": "b"}}})

	if got := <-all.C; got.Type != "x" {
		t.Fatalf("unexpected first event %q", got.Type)
	}
	if all.Dropped() != 1 {
		t.Fatalf("expected one dropped event, got %d", all.Dropped())
	}
	if got := <-onlyB.C; got.Type != "y" {
		t.Fatalf("filter let through %q", got.Type)
	}

	cancelAll()
	cancelAll()
	if _, open := <-all.C; open {
		t.Fatalf("cancelled subscription still open")
	}
	if feed.Len() != 1 {
		t.Fatalf("expected one live subscriber, got %d", feed.Len())
	}
}
