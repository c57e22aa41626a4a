// Package analysis runs one GC log end to end: detection, parsing, event
// distribution, aggregation and model assembly.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/atikulmunna/gclens/internal/aggregation"
	"github.com/atikulmunna/gclens/internal/aggregator"
	"github.com/atikulmunna/gclens/internal/channel"
	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/jvm"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/parser"
	"github.com/atikulmunna/gclens/internal/source"
)

// ErrFormatDetection is returned when the log format or collector could not
// be identified, or no parser reads the combination found. No event has been
// published when it is returned.
var ErrFormatDetection = errors.New("format detection failed")

const (
	lineBuffer = 512
	// drainTimeout bounds the bus drain after the caller's context is done.
	drainTimeout = 5 * time.Second
)

// Analyzer analyses logs with a fixed set of aggregators.
type Analyzer struct {
	logger    *zap.Logger
	bindings  []aggregator.Binding
	budget    int
	threshold float64
	workers   int
}

// Option configures an Analyzer.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	registry  *aggregator.Registry
	patterns  []string
	budget    int
	threshold float64
	workers   int
}

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithRegistry replaces the built-in aggregation registry.
func WithRegistry(r *aggregator.Registry) Option { return func(o *options) { o.registry = r } }

// WithAggregators selects aggregators by glob pattern. The runtime span is
// always included since the model's timings come from it.
func WithAggregators(patterns ...string) Option {
	return func(o *options) { o.patterns = patterns }
}

// WithDetectionBudget sets how many non-blank lines detection may inspect.
func WithDetectionBudget(n int) Option { return func(o *options) { o.budget = n } }

// WithFragmentThreshold sets the runtime below which a log is a fragment.
func WithFragmentThreshold(seconds float64) Option {
	return func(o *options) { o.threshold = seconds }
}

// WithWorkers bounds how many logs AnalyzeAll reads at once.
func WithWorkers(n int) Option { return func(o *options) { o.workers = n } }

func New(opts ...Option) (*Analyzer, error) {
	o := options{
		logger:    zap.NewNop(),
		budget:    diary.DefaultBudget,
		threshold: jvm.DefaultFragmentThreshold,
		workers:   runtime.NumCPU(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.registry == nil {
		o.registry = aggregation.DefaultRegistry()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	bindings, err := o.registry.Select(o.patterns...)
	if err != nil {
		return nil, err
	}
	if !hasBinding(bindings, aggregation.RuntimeSpanName) {
		bindings = append([]aggregator.Binding{aggregation.RuntimeSpanBinding()}, bindings...)
	}

	return &Analyzer{
		logger:    o.logger,
		bindings:  bindings,
		budget:    o.budget,
		threshold: o.threshold,
		workers:   max(o.workers, 1),
	}, nil
}

func hasBinding(bs []aggregator.Binding, name string) bool {
	for _, b := range bs {
		if b.Name == name {
			return true
		}
	}
	return false
}

// Bindings lists the aggregators every analysis runs.
func (a *Analyzer) Bindings() []aggregator.Binding { return a.bindings }

// Analyze reads log to its end and returns the assembled model. Failures
// are ErrFormatDetection, a *source.ReadError or the context's error.
func (a *Analyzer) Analyze(ctx context.Context, log *source.Log) (*jvm.JavaVirtualMachine, error) {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := a.logger.With(zap.String("log", log.Name()))
	wrap := func(err error) error { return fmt.Errorf("%s: %w", log.Name(), err) }

	lines := make(chan model.LogLine, lineBuffer)
	streamErr := make(chan error, 1)
	go func() { streamErr <- log.Stream(ctx, lines) }()
	// stop abandons the stream and returns its failure, if it had one.
	stop := func() error {
		cancel()
		for range lines {
		}
		err := <-streamErr
		if errors.Is(err, context.Canceled) && parent.Err() == nil {
			return nil
		}
		return err
	}

	prefix, d, err := a.detect(lines, logger)
	if err != nil {
		if rerr := stop(); rerr != nil {
			return nil, wrap(rerr)
		}
		return nil, wrap(fmt.Errorf("%w: %w", ErrFormatDetection, err))
	}

	var (
		term       *model.JVMTermination
		publishErr error
	)
	bus := channel.New(channel.WithLogger(logger))
	emit := func(e model.Event) {
		if t, ok := e.(*model.JVMTermination); ok {
			term = t
			return
		}
		if err := bus.Publish(ctx, e.Source(), e); err != nil && publishErr == nil {
			publishErr = err
		}
	}
	p, err := parser.New(d, emit, parser.WithLogger(logger))
	if err != nil {
		if rerr := stop(); rerr != nil {
			return nil, wrap(rerr)
		}
		return nil, wrap(fmt.Errorf("%w: %w", ErrFormatDetection, err))
	}

	aggs := aggregator.Instantiate(a.bindings)
	for _, agg := range aggs {
		if err := agg.Subscribe(bus); err != nil {
			return nil, wrap(multierr.Append(err, stop()))
		}
	}
	logger.Debug("log diarized", zap.Stringer("diary", d), zap.Stringer("parser", p.Family()))
	bus.Open()

	for _, line := range prefix {
		p.Consume(line)
	}
	for line := range lines {
		p.Consume(line)
	}
	readErr := <-streamErr

	// A failed read leaves the parser running; aggregators still need their
	// end of data before the bus can drain.
	if term == nil {
		term = &model.JVMTermination{Base: model.Base{Src: p.Family()}}
	}
	busErr := multierr.Append(bus.Terminate(ctx, term), closeBus(ctx, bus))
	if err := multierr.Combine(readErr, publishErr, busErr); err != nil {
		return nil, wrap(err)
	}

	logger.Info("log analysed",
		zap.Stringer("parser", p.Family()),
		zap.Int("lines", p.Lines()),
		zap.Int("skipped", p.Skipped()),
		zap.Int("filtered", p.Filtered()))
	return jvm.Assemble(log.Name(), d, aggs,
		jvm.WithFragmentThreshold(a.threshold),
		jvm.WithObserved(p.Observed())), nil
}

// closeBus drains the bus. A cancelled ctx still gets a bounded drain so
// subscriber goroutines do not outlive the analysis.
func closeBus(ctx context.Context, bus *channel.Bus) error {
	if ctx.Err() == nil {
		return bus.Close(ctx)
	}
	drain, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	return bus.Close(drain)
}

// detect feeds the diarizer until it completes or the stream ends. The lines
// read are returned for replay into the parser.
func (a *Analyzer) detect(lines <-chan model.LogLine, logger *zap.Logger) ([]model.LogLine, *diary.Diary, error) {
	z := diary.NewDiarizer(a.budget, logger)
	var prefix []model.LogLine
	for line := range lines {
		prefix = append(prefix, line)
		if line.IsEndOfData() || z.Diarize(line.Text) {
			break
		}
	}
	d, err := z.Finish()
	return prefix, d, err
}

// Result is the outcome of one log in AnalyzeAll.
type Result struct {
	Log   *source.Log
	Model *jvm.JavaVirtualMachine
	Err   error
}

// AnalyzeAll analyses logs concurrently, at most the configured number of
// workers at a time. Results are in input order; the returned error combines
// every failure.
func (a *Analyzer) AnalyzeAll(ctx context.Context, logs []*source.Log) ([]Result, error) {
	results := make([]Result, len(logs))
	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup
	for i, l := range logs {
		wg.Add(1)
		go func(i int, l *source.Log) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			m, err := a.Analyze(ctx, l)
			results[i] = Result{Log: l, Model: m, Err: err}
		}(i, l)
	}
	wg.Wait()

	var err error
	for _, r := range results {
		err = multierr.Append(err, r.Err)
	}
	return results, err
}
