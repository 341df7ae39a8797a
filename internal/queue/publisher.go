package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher delivers portal events.  Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// ErrBrokerUnavailable is returned while the publisher waits to redial.
var ErrBrokerUnavailable = errors.New("event broker unavailable")

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// dialFunc opens a connection and a channel with the queue declared.
type dialFunc func() (channel, io.Closer, error)

// AMQPPublisher keeps one connection and channel open and publishes
// persistent JSON messages to a durable queue through the default exchange.
// A dropped channel is redialed lazily on a later Publish, with the same
// 1s to 30s backoff the consumer uses.
type AMQPPublisher struct {
	mu       sync.Mutex
	dial     dialFunc
	conn     io.Closer
	ch       channel
	queue    string
	log      zerolog.Logger
	now      func() time.Time
	backoff  time.Duration
	nextDial time.Time
	closed   bool
}

// NewAMQPPublisher dials the broker and declares the queue.  The first dial
// must succeed so a misconfigured URL is reported at startup.
func NewAMQPPublisher(url, queue string, log zerolog.Logger) (*AMQPPublisher, error) {
	dial := func() (channel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("declare queue: %w", err)
		}
		return ch, conn, nil
	}
	return newPublisher(dial, queue, log)
}

func newPublisher(dial dialFunc, queue string, log zerolog.Logger) (*AMQPPublisher, error) {
	ch, conn, err := dial()
	if err != nil {
		return nil, err
	}
	return &AMQPPublisher{dial: dial, conn: conn, ch: ch, queue: queue, log: log, now: time.Now, backoff: time.Second}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureChannel(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Type:         ev.Type,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.log.Warn().Err(err).Str("type", ev.Type).Msg("publish event failed, dropping channel")
		p.drop()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// ensureChannel redials when the channel is gone and the backoff has
// elapsed.  Callers hold p.mu.
func (p *AMQPPublisher) ensureChannel() error {
	if p.closed {
		return ErrBrokerUnavailable
	}
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	if p.ch != nil {
		p.log.Warn().Msg("event channel closed by broker")
		p.drop()
	}
	if p.now().Before(p.nextDial) {
		return ErrBrokerUnavailable
	}
	ch, conn, err := p.dial()
	if err != nil {
		p.nextDial = p.now().Add(p.backoff)
		p.log.Warn().Err(err).Dur("retry_in", p.backoff).Msg("redial broker failed")
		if p.backoff < 30*time.Second {
			p.backoff *= 2
		}
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	p.ch, p.conn = ch, conn
	p.backoff = time.Second
	p.nextDial = time.Time{}
	p.log.Info().Msg("event channel reopened")
	return nil
}

func (p *AMQPPublisher) drop() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	p.closed = true
	return err
}

// Noop drops every event.  Used when the broker is disabled or unreachable.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of what was published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the type of every recorded event in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}
