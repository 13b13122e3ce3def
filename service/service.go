// Package service wires the pipeline together: transport in, ingest,
// normalization, stimulus routing, behaviours, outcome caching and
// transport out. Components are constructed once and passed by
// reference; there is no ambient shared state.
package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/config"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/directory"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/identity"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/ingest"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/metric"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/natsclient"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/normalizer"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/outcomecache"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/parcel"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/pkg/cache"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/pkg/worker"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/router"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/twin"
)

// Service status gauge values.
const (
	statusStopped  = 0
	statusStarting = 1
	statusRunning  = 2
	statusStopping = 3
)

// Service owns the full pipeline and its lifecycle.
type Service struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry

	dir    directory.RoomDirectory
	broker directory.ResourceBroker

	client    *natsclient.Client
	deliverer Deliverer

	ids         *identity.Map
	twins       *twin.Registry
	outcomes    *outcomecache.Cache
	router      *router.Router
	ingestor    *ingest.Ingestor
	normalizers map[string]normalizer.Normalizer
	pool        *worker.Pool[[]byte]

	subs       []*nats.Subscription
	httpServer *http.Server

	lifecycleMu sync.Mutex
	started     bool
	cancel      context.CancelFunc
	group       *errgroup.Group
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNATSClient attaches the transport client. Without one the service
// runs transport-less: events enter only through Process.
func WithNATSClient(client *natsclient.Client) Option {
	return func(s *Service) {
		s.client = client
	}
}

// WithDeliverer overrides the terminal unit-of-work deliverer.
func WithDeliverer(d Deliverer) Option {
	return func(s *Service) {
		s.deliverer = d
	}
}

// New builds the pipeline from configuration and the two collaborator
// contracts. The collaborators are wrapped with the configured lookup
// timeout; behaviours are registered and the dispatch table validated
// before New returns.
func New(cfg *config.Config, dir directory.RoomDirectory, broker directory.ResourceBroker, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "service.Service", "New", "configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dir == nil || broker == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "service.Service", "New", "collaborator contracts")
	}

	s := &Service{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: metric.NewMetricsRegistry(),
		twins:    twin.NewRegistry(),
		outcomes: outcomecache.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("service", cfg.Service.Name)

	s.dir = directory.NewGuardedRoomDirectory(dir, cfg.Directory.LookupTimeout)
	s.broker = directory.NewGuardedResourceBroker(broker, cfg.Directory.LookupTimeout)

	s.ingestor = ingest.New(
		ingest.WithLogger(s.logger),
		ingest.WithMetrics(s.registry.Metrics),
	)

	s.router = router.New(s.outcomes, cfg.Router.LaneCount, cfg.Router.QueueSize,
		router.WithLogger(s.logger),
		router.WithMetrics(s.registry.Metrics),
		router.WithHandlerTimeout(cfg.Router.HandlerTimeout),
	)
	for _, typ := range twin.Types() {
		b := newMembershipBehaviour(typ, s.twins, s.logger)
		if err := s.router.RegisterStimulusPipeline(typ, b); err != nil {
			return nil, err
		}
	}
	reconcile := newReconcileBehaviour(s.twins, s.logger)
	if err := s.router.RegisterTimerPipeline(twin.TypePractitionerRole, reconcile, cfg.Router.TimerPeriod); err != nil {
		return nil, err
	}
	if err := s.router.ValidateRegistrations(); err != nil {
		return nil, err
	}

	return s, nil
}

// Start brings the pipeline up: transport connection, identity caches,
// normalizers, router, worker pool, ingress subscriptions and the
// metrics endpoint.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.started {
		return errors.ErrAlreadyStarted
	}

	s.registry.Metrics.ServiceStatus.WithLabelValues(s.cfg.Service.Name).Set(statusStarting)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.group, ctx = errgroup.WithContext(ctx)

	var idOpts []identity.Option
	if s.client != nil {
		if err := s.client.Connect(ctx); err != nil {
			cancel()
			return err
		}
		if s.cfg.NATS.KVBucket != "" {
			kv, err := s.client.EnsureKV(ctx, s.cfg.NATS.KVBucket, s.cfg.Identity.MappingTTL)
			if err != nil {
				cancel()
				return err
			}
			idOpts = append(idOpts, identity.WithKV(kv))
		}
	}

	roomOpts := []cache.Option[identity.RoomRecord]{
		cache.WithMetrics[identity.RoomRecord](s.registry.PrometheusRegistry(), "iris_identity_rooms"),
	}
	userOpts := []cache.Option[identity.UserRecord]{
		cache.WithMetrics[identity.UserRecord](s.registry.PrometheusRegistry(), "iris_identity_users"),
	}
	ids, err := identity.NewMap(ctx, s.cfg.Identity.MappingTTL, s.cfg.Identity.CleanupInterval,
		roomOpts, userOpts, idOpts...)
	if err != nil {
		cancel()
		return err
	}
	s.ids = ids

	classifier := directory.NewClassifier(classifierOptions(s.cfg.Directory)...)
	room := normalizer.NewRoomNormalizer(s.ids, s.dir, classifier,
		normalizer.WithRoomLogger(s.logger),
		normalizer.WithRoomMetrics(s.registry.Metrics),
	)
	presence := normalizer.NewPresenceNormalizer(s.ids, s.broker,
		normalizer.WithPresenceLogger(s.logger),
		normalizer.WithPresenceMetrics(s.registry.Metrics),
	)
	s.normalizers = map[string]normalizer.Normalizer{
		parcel.SubcategoryRoomEvents: room,
		parcel.SubcategoryPresence:   presence,
		parcel.SubcategoryUserEvents: presence,
	}

	if s.deliverer == nil {
		if s.client == nil {
			cancel()
			return errors.WrapFatal(errors.ErrMissingConfig, "service.Service", "Start",
				"no deliverer and no transport client")
		}
		s.deliverer = newNATSDeliverer(s.client, s.cfg.NATS.EgressSubject, s.logger)
	}

	if err := s.router.Start(ctx); err != nil {
		cancel()
		return err
	}

	s.pool = worker.NewPool[[]byte](s.cfg.Ingest.Workers, s.cfg.Ingest.QueueSize, s.process)
	if err := s.pool.Start(ctx); err != nil {
		cancel()
		return errors.Wrap(err, "service.Service", "Start", "ingress pool startup")
	}

	if s.client != nil {
		if err := s.subscribeIngress(); err != nil {
			cancel()
			return err
		}
	}

	if s.cfg.Metrics.Enabled {
		s.serveMetrics(ctx)
	}

	s.started = true
	s.registry.Metrics.ServiceStatus.WithLabelValues(s.cfg.Service.Name).Set(statusRunning)
	s.logger.Info("service started",
		"subjects", len(ingest.Subjects()), "transport", s.client != nil)
	return nil
}

// Process feeds one raw event through the pipeline synchronously. This
// is the transport-in contract; the NATS subscriptions call it through
// the worker pool.
func (s *Service) Process(raw []byte) error {
	s.lifecycleMu.Lock()
	pool := s.pool
	started := s.started
	s.lifecycleMu.Unlock()

	if !started {
		return errors.ErrNotStarted
	}
	return pool.Submit(raw)
}

// Stop shuts the pipeline down in dependency order: ingress first, then
// the router and the caches, transport last.
func (s *Service) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if !s.started {
		return nil
	}

	s.registry.Metrics.ServiceStatus.WithLabelValues(s.cfg.Service.Name).Set(statusStopping)

	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil

	var firstErr error
	if err := s.pool.Stop(timeout); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.router.Stop(timeout); err != nil && firstErr == nil {
		firstErr = err
	}

	s.cancel()
	if s.ids != nil {
		_ = s.ids.Close()
	}
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		_ = s.httpServer.Shutdown(shutdownCtx)
		cancel()
	}
	if err := s.group.Wait(); err != nil && firstErr == nil && !stderrors.Is(err, context.Canceled) {
		firstErr = err
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.started = false
	s.registry.Metrics.ServiceStatus.WithLabelValues(s.cfg.Service.Name).Set(statusStopped)
	s.logger.Info("service stopped")
	return firstErr
}

// RetireTwin retires a twin and cascades the cleanup: every identity
// mapping pointing at it is removed and every cached outcome it produced
// is dropped, stimulus-derived ones together with their siblings. The
// twin stays in the registry in its terminal state.
func (s *Service) RetireTwin(ctx context.Context, id string) bool {
	_, ok := s.twins.Retire(id)
	if !ok {
		return false
	}

	if s.ids != nil {
		s.ids.RemoveMappingsForTwin(ctx, id)
		s.ids.RemoveMappingsForResource(ctx, id)
	}

	removed := 0
	for _, behaviour := range s.outcomes.Behaviours() {
		for _, o := range s.outcomes.BehaviourBasedOutcomes(behaviour) {
			if o.TwinID != id {
				continue
			}
			if o.SourceStimulus != "" {
				removed += s.outcomes.RemoveOutcomesDerivedFromStimulus(o.SourceStimulus)
			} else if s.outcomes.RemoveOutcome(o.ID) {
				removed++
			}
		}
	}

	s.logger.Info("twin retired", "twin_id", id, "outcomes_removed", removed)
	return true
}

// OutcomeCache exposes the outcome cache for read-side consumers.
func (s *Service) OutcomeCache() *outcomecache.Cache {
	return s.outcomes
}

// Twins exposes the twin registry for read-side consumers.
func (s *Service) Twins() *twin.Registry {
	return s.twins
}

// IdentityMap exposes the identity mapping caches. Nil until Start.
func (s *Service) IdentityMap() *identity.Map {
	return s.ids
}

// MetricsRegistry exposes the service's metrics registry.
func (s *Service) MetricsRegistry() *metric.MetricsRegistry {
	return s.registry
}

// subscribeIngress declares the subscription set on the transport: one
// queue subscription per data parcel subject, published at startup.
func (s *Service) subscribeIngress() error {
	queue := s.cfg.Service.Name
	for _, subject := range ingest.Subjects() {
		if prefix := s.cfg.NATS.IngressSubjectPrefix; prefix != "" {
			subject = prefix + "." + subject
		}
		sub, err := s.client.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
			if err := s.pool.Submit(msg.Data); err != nil {
				s.logger.Warn("ingress event dropped", "subject", msg.Subject, "error", err)
				s.registry.Metrics.ErrorsTotal.WithLabelValues(s.cfg.Service.Name, "transient").Inc()
			}
		})
		if err != nil {
			return err
		}
		s.subs = append(s.subs, sub)
	}
	s.logger.Info("ingress subscriptions declared", "count", len(s.subs), "queue", queue)
	return nil
}

func (s *Service) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.registry.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:              s.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.group.Go(func() error {
		err := s.httpServer.ListenAndServe()
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	s.group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})
}

func classifierOptions(cfg config.DirectoryConfig) []directory.ClassifierOption {
	var opts []directory.ClassifierOption
	if cfg.RoleMarker != "" {
		opts = append(opts, directory.WithRoleMarker(cfg.RoleMarker))
	}
	if cfg.ServiceMarker != "" {
		opts = append(opts, directory.WithServiceMarker(cfg.ServiceMarker))
	}
	return opts
}
