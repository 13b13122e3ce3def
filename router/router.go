// Package router dispatches stimuli to twin behaviour pipelines. The
// dispatch table is a finite map keyed by twin type, validated
// exhaustively at startup: a missing registration fails fast instead of
// silently dropping events. Stimuli for the same twin are processed in
// arrival order; different twins proceed in parallel.
package router

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/metric"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/pkg/worker"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

// EgressConduit receives the outcome set of every completed behaviour
// execution. The outcome cache satisfies this directly.
type EgressConduit interface {
	AddOutcomeSet(set twin.OutcomeSet)
}

// DefaultHandlerTimeout bounds a single behaviour invocation.
const DefaultHandlerTimeout = 30 * time.Second

// DefaultTimerPeriod is the timer behaviour period used when a
// registration passes a non-positive period.
const DefaultTimerPeriod = 60 * time.Second

type routed struct {
	stimulus twin.Stimulus
	handler  twin.StimulusHandler
	twinType twin.Type
}

// Router owns the stimulus dispatch table and the timer triggers.
type Router struct {
	mu       sync.RWMutex
	stimulus map[twin.Type]twin.StimulusHandler
	timers   map[twin.Type]*timerEntry

	lanes          *worker.Lanes[routed]
	conduit        EgressConduit
	handlerTimeout time.Duration
	logger         *slog.Logger
	metrics        *metric.Metrics

	lifecycleMu sync.Mutex
	started     bool
	cancel      context.CancelFunc
	timerWG     sync.WaitGroup
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMetrics enables routing counters.
func WithMetrics(m *metric.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithHandlerTimeout bounds each behaviour invocation.
func WithHandlerTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.handlerTimeout = d
		}
	}
}

// New creates a router forwarding completed outcome sets to conduit.
// laneCount and queueSize size the per-twin ordering lanes.
func New(conduit EgressConduit, laneCount, queueSize int, opts ...Option) *Router {
	r := &Router{
		stimulus:       make(map[twin.Type]twin.StimulusHandler),
		timers:         make(map[twin.Type]*timerEntry),
		conduit:        conduit,
		handlerTimeout: DefaultHandlerTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "router")
	r.lanes = worker.NewLanes[routed](laneCount, queueSize, r.process)
	return r
}

// RegisterStimulusPipeline installs the stimuli-based behaviour for a
// twin type. Registration is idempotent: re-registering a type replaces
// the prior pipeline. Unknown twin types and nil handlers are
// configuration errors and abort installation.
func (r *Router) RegisterStimulusPipeline(twinType twin.Type, handler twin.StimulusHandler) error {
	if !twinType.IsValid() {
		return errors.WrapFatal(errors.ErrRoutingConfiguration, "router.Router",
			"RegisterStimulusPipeline", "unknown twin type "+string(twinType))
	}
	if handler == nil {
		return errors.WrapFatal(errors.ErrRoutingConfiguration, "router.Router",
			"RegisterStimulusPipeline", "nil handler for twin type "+string(twinType))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.stimulus[twinType]; ok {
		r.logger.Info("stimulus pipeline replaced",
			"twin_type", twinType, "prior", prior.ID(), "next", handler.ID())
	}
	r.stimulus[twinType] = handler
	return nil
}

// RegisterTimerPipeline installs the timer-based behaviour for a twin
// type with the given period. Registration is idempotent; the new period
// takes effect when the router (re)starts.
func (r *Router) RegisterTimerPipeline(twinType twin.Type, handler twin.TimerHandler, period time.Duration) error {
	if !twinType.IsValid() {
		return errors.WrapFatal(errors.ErrRoutingConfiguration, "router.Router",
			"RegisterTimerPipeline", "unknown twin type "+string(twinType))
	}
	if handler == nil {
		return errors.WrapFatal(errors.ErrRoutingConfiguration, "router.Router",
			"RegisterTimerPipeline", "nil handler for twin type "+string(twinType))
	}
	if period <= 0 {
		period = DefaultTimerPeriod
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers[twinType] = &timerEntry{handler: handler, period: period}
	return nil
}

// ValidateRegistrations checks the dispatch table is exhaustive: every
// twin type must carry a stimulus pipeline before the router starts.
// Timer pipelines are optional per type.
func (r *Router) ValidateRegistrations() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range twin.Types() {
		if _, ok := r.stimulus[t]; !ok {
			return errors.WrapFatal(errors.ErrRoutingConfiguration, "router.Router",
				"ValidateRegistrations", "no stimulus pipeline for twin type "+string(t))
		}
	}
	return nil
}

// Start validates the dispatch table, then launches the ordering lanes
// and the timer loops.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ValidateRegistrations(); err != nil {
		return err
	}

	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	if r.started {
		return errors.ErrAlreadyStarted
	}

	ctx, r.cancel = context.WithCancel(ctx)
	if err := r.lanes.Start(ctx); err != nil {
		r.cancel()
		return errors.Wrap(err, "router.Router", "Start", "lane startup")
	}

	r.mu.RLock()
	for twinType, entry := range r.timers {
		r.timerWG.Add(1)
		go r.runTimer(ctx, twinType, entry)
	}
	r.mu.RUnlock()

	r.started = true
	r.logger.Info("router started", "handler_timeout", r.handlerTimeout)
	return nil
}

// Stop halts the timer loops and drains the ordering lanes.
func (r *Router) Stop(timeout time.Duration) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	if !r.started {
		return nil
	}

	r.cancel()
	r.timerWG.Wait()
	err := r.lanes.Stop(timeout)
	r.started = false
	r.logger.Info("router stopped")
	return err
}

// Route resolves the stimulus's twin type and enqueues it on that twin's
// ordering lane. Blocks under back-pressure until ctx is done.
func (r *Router) Route(ctx context.Context, stimulus twin.Stimulus) error {
	twinType, err := twin.TypeFromID(stimulus.TwinID)
	if err != nil {
		return err
	}

	r.mu.RLock()
	handler, ok := r.stimulus[twinType]
	r.mu.RUnlock()
	if !ok {
		return errors.WrapFatal(errors.ErrRoutingConfiguration, "router.Router",
			"Route", "no stimulus pipeline for twin type "+string(twinType))
	}

	if err := r.lanes.Submit(ctx, stimulus.TwinID, routed{
		stimulus: stimulus,
		handler:  handler,
		twinType: twinType,
	}); err != nil {
		return errors.Wrap(err, "router.Router", "Route", "lane submit")
	}

	if r.metrics != nil {
		r.metrics.StimuliRouted.WithLabelValues(string(twinType)).Inc()
	}
	return nil
}

// process runs on a lane goroutine: one behaviour invocation per
// stimulus, bounded by the handler timeout, outcome set forwarded to
// the conduit. Handler failures are contained here; they never poison
// the lane.
func (r *Router) process(ctx context.Context, item routed) error {
	ctx, cancel := context.WithTimeout(ctx, r.handlerTimeout)
	defer cancel()

	start := time.Now()
	set, err := item.handler.Handle(ctx, item.stimulus)
	if r.metrics != nil {
		r.metrics.ProcessingDuration.WithLabelValues("router", "handle").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		r.logger.Error("behaviour execution failed",
			"behaviour", item.handler.ID(), "twin_id", item.stimulus.TwinID,
			"stimulus_id", item.stimulus.ID, "error", err)
		if r.metrics != nil {
			r.metrics.ErrorsTotal.WithLabelValues("router", errors.Classify(err).String()).Inc()
		}
		return err
	}

	r.forward(set, item.twinType)
	return nil
}

func (r *Router) forward(set twin.OutcomeSet, twinType twin.Type) {
	if set.IsEmpty() {
		return
	}
	r.conduit.AddOutcomeSet(set)
	if r.metrics != nil {
		r.metrics.OutcomesRecorded.WithLabelValues(string(twinType)).Add(float64(len(set.Outcomes)))
	}
}
