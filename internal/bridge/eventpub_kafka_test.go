package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

type captureWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	w.msgs = append(w.msgs, msgs...)
	w.mu.Unlock()
	return nil
}

func (w *captureWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func TestKafkaPublisher_KeysByPlacement(t *testing.T) {
	w := &captureWriter{}
	p := newKafkaPublisher(w, nil)
	p.Publish(Event{Name: string(ContentIsReady), Placement: "a", OperationID: "op-1"})
	p.Publish(Event{Name: EventConnectWarning})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed || len(w.msgs) != 2 {
		t.Fatalf("closed=%v msgs=%d", w.closed, len(w.msgs))
	}
	if string(w.msgs[0].Key) != "a" {
		t.Fatalf("key=%q", w.msgs[0].Key)
	}
	var got kafkaEvent
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "contentIsReady" || got.OperationID != "op-1" {
		t.Fatalf("event=%+v", got)
	}
}

func TestMultiPublisher(t *testing.T) {
	a, b := newRecorder(), newRecorder()
	MultiPublisher{a, nil, b}.Publish(Event{Name: "x"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("fan-out failed")
	}
}
