package events

import (
	"testing"

	"lessonchain/core/types"
)

type namedEvent string

func (n namedEvent) EventType() string { return string(n) }

type recorder struct {
	seen []string
}

func (r *recorder) Emit(evt Event) { r.seen = append(r.seen, evt.EventType()) }

func TestMultiEmitterFansOut(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	multi := NewMultiEmitter(first, nil)
	multi.Subscribe(second)

	multi.Emit(namedEvent("a"))
	multi.Emit(nil)
	multi.Emit(namedEvent("b"))

	for i, rec := range []*recorder{first, second} {
		if len(rec.seen) != 2 || rec.seen[0] != "a" || rec.seen[1] != "b" {
			t.Fatalf("subscriber %d saw %v", i, rec.seen)
		}
	}

	var nilMulti *MultiEmitter
	nilMulti.Emit(namedEvent("ignored"))
	NoopEmitter{}.Emit(namedEvent("ignored"))
}

type payloadEvent struct{ evt *types.Event }

func (p payloadEvent) EventType() string   { return p.evt.Type }
func (p payloadEvent) Event() *types.Event { return p.evt }

func TestPayload(t *testing.T) {
	evt := &types.Event{Type: "x", Attributes: map[string]string{"k": "v"}}
	got, ok := Payload(payloadEvent{evt: evt})
	if !ok || got != evt {
		t.Fatalf("expected payload, got %v %v", got, ok)
	}
	if _, ok := Payload(namedEvent("plain")); ok {
		t.Fatalf("plain events carry no payload")
	}
}
