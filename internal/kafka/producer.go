package kafka

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-checkout-orders/internal/logging"
	"github.com/ariefcatur/go-checkout-orders/internal/orders"
)

var ErrProducerClosed = errors.New("kafka: producer closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages in an inbox and writes them from one goroutine.
// Close stops intake, flushes what is buffered and closes the writer.
type Producer struct {
	w         messageWriter
	inbox     chan kafka.Message
	stopping  chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
	log       *slog.Logger

	// Publish holds the read side while it enqueues; drain takes the write
	// side, so every accepted message is in the inbox before the final drain.
	mu sync.RWMutex
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, buf)
}

func newProducer(w messageWriter, buf int) *Producer {
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		w:        w,
		inbox:    make(chan kafka.Message, buf),
		stopping: make(chan struct{}),
		closeCh:  make(chan struct{}),
		log:      logging.New("kafka-producer"),
	}
}

var _ orders.EventPublisher = (*Producer)(nil)

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case m := <-p.inbox:
				p.write(m)
			case <-p.stopping:
				p.drain()
				return
			case <-ctx.Done():
				p.Close()
				p.drain()
				return
			}
		}
	}()
}

func (p *Producer) drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			if err := p.w.Close(); err != nil {
				p.log.Error("close writer", "err", err)
			}
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("write message", "key", string(m.Key), "err", err)
	}
}

func (p *Producer) Publish(ctx context.Context, key []byte, env orders.Envelope) error {
	b, err := MarshalEnvelope(env)
	if err != nil {
		return err
	}
	m := kafka.Message{
		Key:   key,
		Value: b,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	select {
	case <-p.stopping:
		return ErrProducerClosed
	default:
	}
	select {
	case p.inbox <- m:
		return nil
	case <-p.stopping:
		return ErrProducerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake; safe to call more than once.
func (p *Producer) Close() { p.closeOnce.Do(func() { close(p.stopping) }) }

// WaitClosed blocks until the inbox is flushed and the writer closed.
func (p *Producer) WaitClosed() { <-p.closeCh }
