package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// kafkaWriter is the subset of *kafka.Writer the publisher uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards events to a Kafka topic, keyed by placement so
// one placement's notifications stay ordered within a partition. Publish
// never blocks the caller: events go through a bounded buffer and are
// dropped with a warning when it is full.
type KafkaPublisher struct {
	w    kafkaWriter
	log  zerolog.Logger
	ch   chan Event
	done chan struct{}
}

type kafkaEvent struct {
	Name        string         `json:"name"`
	Placement   string         `json:"placement,omitempty"`
	OperationID string         `json:"operation_id,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Time        time.Time      `json:"time"`
}

// NewKafkaPublisher writes to topic on the comma separated brokers.
func NewKafkaPublisher(brokers, topic string, logger *zerolog.Logger) *KafkaPublisher {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w kafkaWriter, logger *zerolog.Logger) *KafkaPublisher {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	p := &KafkaPublisher{
		w:    w,
		log:  lg.With().Str("component", "kafka_publisher").Logger(),
		ch:   make(chan Event, 256),
		done: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) Publish(e Event) {
	select {
	case p.ch <- e:
	default:
		p.log.Warn().Str("event", e.Name).Msg("kafka buffer full; event dropped")
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for e := range p.ch {
		b, err := json.Marshal(kafkaEvent{
			Name:        e.Name,
			Placement:   e.Placement,
			OperationID: e.OperationID,
			Fields:      e.Fields,
			Time:        time.Now().UTC(),
		})
		if err != nil {
			p.log.Warn().Err(err).Str("event", e.Name).Msg("encode event")
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = p.w.WriteMessages(ctx, kafka.Message{Key: []byte(e.Placement), Value: b})
		cancel()
		if err != nil {
			p.log.Warn().Err(err).Str("event", e.Name).Msg("kafka write failed")
		}
	}
}

// Close flushes buffered events and closes the writer. Publish must not be
// called afterwards.
func (p *KafkaPublisher) Close() error {
	close(p.ch)
	<-p.done
	return p.w.Close()
}
