// Package channel is the in-process event bus between parsers and
// aggregators. Topics are event sources; delivery is FIFO per topic and every
// subscriber of a topic sees its end-of-data marker exactly once.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/atikulmunna/gclens/internal/model"
)

const subscriberBuffer = 1024

var (
	// ErrLateSubscriber is returned by Subscribe once the bus is open.
	ErrLateSubscriber = errors.New("subscribe after bus opened")
	// ErrTopicClosed is returned when publishing on a topic whose
	// end-of-data marker was already delivered.
	ErrTopicClosed = errors.New("topic closed")
)

// Handler receives one event together with the topic it was published on.
// A *model.JVMTermination is the end-of-data marker for that topic.
type Handler func(topic model.EventSource, e model.Event)

type delivery struct {
	topic model.EventSource
	event model.Event
}

// subscriber owns one goroutine, so a handler is never called concurrently
// with itself even when it listens on several topics.
type subscriber struct {
	name    string
	handler Handler
	ch      chan delivery
	open    atomic.Int32
}

type topic struct {
	mu     sync.Mutex
	subs   []*subscriber
	closed bool
	sent   int
	// marked counts subscribers, in order, that already hold the
	// end-of-data marker of an interrupted termination.
	marked int
}

// Bus is a topic-partitioned publish/subscribe bus.
type Bus struct {
	logger *zap.Logger
	gate   *Gate
	buffer int

	mu     sync.Mutex
	topics map[model.EventSource]*topic
	subs   []*subscriber
	wg     sync.WaitGroup
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the bus logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// New returns a closed bus with one topic per event source.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger: zap.NewNop(),
		gate:   NewGate(),
		buffer: subscriberBuffer,
		topics: make(map[model.EventSource]*topic),
	}
	for _, o := range opts {
		o(b)
	}
	for _, src := range model.AllSources() {
		b.topics[src] = &topic{}
	}
	return b
}

// Subscribe attaches h to topics. Every subscriber must attach before Open.
func (b *Bus) Subscribe(name string, topics []model.EventSource, h Handler) error {
	if len(topics) == 0 {
		return fmt.Errorf("subscriber %q: no topics", name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate.Opened() {
		return fmt.Errorf("subscriber %q: %w", name, ErrLateSubscriber)
	}

	s := &subscriber{name: name, handler: h, ch: make(chan delivery, b.buffer)}
	seen := make(map[model.EventSource]bool, len(topics))
	for _, src := range topics {
		t, ok := b.topics[src]
		if !ok {
			return fmt.Errorf("subscriber %q: unknown topic %v", name, src)
		}
		if seen[src] {
			continue
		}
		seen[src] = true
		t.subs = append(t.subs, s)
	}
	s.open.Store(int32(len(seen)))
	b.subs = append(b.subs, s)
	b.logger.Debug("subscribed", zap.String("subscriber", name), zap.Int("topics", len(seen)))
	return nil
}

// Open fires the readiness gate and starts delivery.
func (b *Bus) Open() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate.Opened() {
		return
	}
	for _, s := range b.subs {
		b.wg.Add(1)
		go b.run(s)
	}
	b.gate.Open()
}

// Ready returns a channel closed once the bus is open.
func (b *Bus) Ready() <-chan struct{} { return b.gate.Done() }

func (b *Bus) run(s *subscriber) {
	defer b.wg.Done()
	for d := range s.ch {
		s.handler(d.topic, d.event)
	}
}

// Publish delivers e to every subscriber of src, blocking until the bus is
// open and each subscriber queue has room. Publishing a *model.JVMTermination
// closes the topic once every subscriber holds the marker. A termination
// interrupted by ctx leaves the topic closing: further events are refused and
// the next termination resumes with the subscribers still waiting for it.
func (b *Bus) Publish(ctx context.Context, src model.EventSource, e model.Event) error {
	if err := b.gate.Wait(ctx); err != nil {
		return err
	}
	t, ok := b.topics[src]
	if !ok {
		return fmt.Errorf("unknown topic %v", src)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, last := e.(*model.JVMTermination)
	if t.closed || (!last && t.marked > 0) {
		return fmt.Errorf("%v: %w", src, ErrTopicClosed)
	}
	if !last {
		for _, s := range t.subs {
			select {
			case s.ch <- delivery{topic: src, event: e}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		t.sent++
		return nil
	}

	for ; t.marked < len(t.subs); t.marked++ {
		s := t.subs[t.marked]
		select {
		case s.ch <- delivery{topic: src, event: e}:
		case <-ctx.Done():
			return ctx.Err()
		}
		if s.open.Add(-1) == 0 {
			close(s.ch)
		}
	}
	t.closed = true
	return nil
}

// Terminate publishes the end-of-data marker on every topic still open.
func (b *Bus) Terminate(ctx context.Context, term *model.JVMTermination) error {
	for _, src := range model.AllSources() {
		err := b.Publish(ctx, src, term)
		if err != nil && !errors.Is(err, ErrTopicClosed) {
			return err
		}
	}
	return nil
}

// Close ends every open topic with an empty termination and waits until all
// subscribers have drained their queues.
func (b *Bus) Close(ctx context.Context) error {
	b.Open()
	if err := b.Terminate(ctx, &model.JVMTermination{}); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Published returns the number of events published on src, excluding the
// end-of-data marker.
func (b *Bus) Published(src model.EventSource) int {
	t, ok := b.topics[src]
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}
