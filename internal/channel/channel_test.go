package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/gclens/internal/model"
)

type sink struct {
	mu     sync.Mutex
	events map[model.EventSource][]model.Event
}

func newSink() *sink {
	return &sink{events: make(map[model.EventSource][]model.Event)}
}

func (s *sink) handle(topic model.EventSource, e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[topic] = append(s.events[topic], e)
}

func (s *sink) on(topic model.EventSource) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Event(nil), s.events[topic]...)
}

func pause(at float64) *model.GCPause {
	return &model.GCPause{Base: model.Base{Src: model.SourceG1, At: model.Uptime(at), Elapsed: 0.01}}
}

func timeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestBusFanOutPreservesOrder(t *testing.T) {
	ctx := timeout(t)
	b := New()
	a, c := newSink(), newSink()
	require.NoError(t, b.Subscribe("a", []model.EventSource{model.SourceG1}, a.handle))
	require.NoError(t, b.Subscribe("c", []model.EventSource{model.SourceG1, model.SourceSafepoint}, c.handle))
	b.Open()

	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, b.Publish(ctx, model.SourceG1, pause(float64(i))))
	}
	term := &model.JVMTermination{EstimatedRuntime: 500}
	require.NoError(t, b.Terminate(ctx, term))
	require.NoError(t, b.Close(ctx))

	for _, s := range []*sink{a, c} {
		got := s.on(model.SourceG1)
		require.Len(t, got, n+1)
		for i := 0; i < n; i++ {
			assert.InDelta(t, float64(i), got[i].Timestamp().Seconds(), 1e-9)
		}
		assert.Same(t, term, got[n])
	}
	// The safepoint topic saw only its end-of-data marker.
	require.Len(t, c.on(model.SourceSafepoint), 1)
	assert.Same(t, term, c.on(model.SourceSafepoint)[0])
	assert.Equal(t, n, b.Published(model.SourceG1))
}

func TestEndOfDataExactlyOnce(t *testing.T) {
	ctx := timeout(t)
	b := New()
	s := newSink()
	require.NoError(t, b.Subscribe("s", []model.EventSource{model.SourceCMS}, s.handle))
	b.Open()

	require.NoError(t, b.Publish(ctx, model.SourceCMS, pause(1)))
	require.NoError(t, b.Publish(ctx, model.SourceCMS, &model.JVMTermination{}))

	err := b.Publish(ctx, model.SourceCMS, &model.JVMTermination{})
	assert.ErrorIs(t, err, ErrTopicClosed)
	err = b.Publish(ctx, model.SourceCMS, pause(2))
	assert.ErrorIs(t, err, ErrTopicClosed)

	require.NoError(t, b.Close(ctx))
	got := s.on(model.SourceCMS)
	require.Len(t, got, 2)
	_, ok := got[1].(*model.JVMTermination)
	assert.True(t, ok)
}

func TestInterruptedTerminationResumesOnClose(t *testing.T) {
	ctx := timeout(t)
	b := New(WithBuffer(1))
	free, held := newSink(), newSink()
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	hold := func(topic model.EventSource, e model.Event) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		held.handle(topic, e)
	}
	require.NoError(t, b.Subscribe("free", []model.EventSource{model.SourceG1}, free.handle))
	require.NoError(t, b.Subscribe("held", []model.EventSource{model.SourceG1}, hold))
	b.Open()

	require.NoError(t, b.Publish(ctx, model.SourceG1, pause(1)))
	<-entered
	// Fills the held subscriber's queue.
	require.NoError(t, b.Publish(ctx, model.SourceG1, pause(2)))

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	term := &model.JVMTermination{EstimatedRuntime: 2}
	assert.ErrorIs(t, b.Terminate(short, term), context.DeadlineExceeded)

	// The topic is closing; only the end-of-data marker may follow.
	assert.ErrorIs(t, b.Publish(ctx, model.SourceG1, pause(3)), ErrTopicClosed)

	close(release)
	require.NoError(t, b.Close(ctx))

	terminations := func(events []model.Event) int {
		n := 0
		for _, e := range events {
			if _, ok := e.(*model.JVMTermination); ok {
				n++
			}
		}
		return n
	}
	got := free.on(model.SourceG1)
	require.Len(t, got, 3)
	assert.Same(t, term, got[2])
	assert.Equal(t, 1, terminations(got))

	got = held.on(model.SourceG1)
	require.Len(t, got, 3)
	assert.Equal(t, 1, terminations(got))
	_, ok := got[2].(*model.JVMTermination)
	assert.True(t, ok)
	assert.Equal(t, 2, b.Published(model.SourceG1))
}

func TestLateSubscriberRejected(t *testing.T) {
	b := New()
	b.Open()
	err := b.Subscribe("late", []model.EventSource{model.SourceG1}, newSink().handle)
	assert.ErrorIs(t, err, ErrLateSubscriber)
}

func TestSubscribeValidation(t *testing.T) {
	b := New()
	assert.Error(t, b.Subscribe("none", nil, newSink().handle))
	assert.Error(t, b.Subscribe("bad", []model.EventSource{model.EventSource(99)}, newSink().handle))
}

func TestPublishWaitsForGate(t *testing.T) {
	b := New()
	s := newSink()
	require.NoError(t, b.Subscribe("s", []model.EventSource{model.SourceZGC}, s.handle))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Publish(ctx, model.SourceZGC, pause(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	wait := timeout(t)
	done := make(chan error, 1)
	go func() { done <- b.Publish(wait, model.SourceZGC, pause(2)) }()
	b.Open()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish did not proceed after the gate opened")
	}
	require.NoError(t, b.Close(wait))
	assert.Len(t, s.on(model.SourceZGC), 2)
}

func TestCloseTerminatesSilentTopics(t *testing.T) {
	b := New()
	s := newSink()
	require.NoError(t, b.Subscribe("s", []model.EventSource{model.SourceSerial, model.SourceSafepoint}, s.handle))
	require.NoError(t, b.Close(timeout(t)))

	for _, src := range []model.EventSource{model.SourceSerial, model.SourceSafepoint} {
		got := s.on(src)
		require.Len(t, got, 1, src.String())
		_, ok := got[0].(*model.JVMTermination)
		assert.True(t, ok)
	}
}

func TestMultiTopicHandlerIsSerial(t *testing.T) {
	ctx := timeout(t)
	b := New(WithBuffer(4))
	var inFlight, maxInFlight int
	var mu sync.Mutex
	handler := func(model.EventSource, model.Event) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(time.Microsecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
	}
	require.NoError(t, b.Subscribe("h", []model.EventSource{model.SourceG1, model.SourceSafepoint}, handler))
	b.Open()

	var wg sync.WaitGroup
	for _, src := range []model.EventSource{model.SourceG1, model.SourceSafepoint} {
		wg.Add(1)
		go func(src model.EventSource) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.NoError(t, b.Publish(ctx, src, pause(float64(i))))
			}
		}(src)
	}
	wg.Wait()
	require.NoError(t, b.Close(ctx))
	assert.Equal(t, 1, maxInFlight)
}

func TestGate(t *testing.T) {
	g := NewGate()
	assert.False(t, g.Opened())
	g.Open()
	g.Open()
	assert.True(t, g.Opened())
	assert.NoError(t, g.Wait(context.Background()))
}
