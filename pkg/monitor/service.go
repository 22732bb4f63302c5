package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/pvewatch/pvewatch/pkg/alerts"
	"github.com/pvewatch/pvewatch/pkg/logger"
	"github.com/pvewatch/pvewatch/pkg/metrics"
	"github.com/pvewatch/pvewatch/pkg/proxmox"
	"github.com/pvewatch/pvewatch/pkg/workloads"
)

// DefaultSchedule samples every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Config controls the collection loop.
type Config struct {
	// Nodes to sample each tick.
	Nodes []string
	// Schedule is a five-field cron expression.
	Schedule string
	// StartupDelay is how long to wait after Start before the first
	// collection, giving the cluster API a moment to come up.
	StartupDelay time.Duration
	// StartupTimeout bounds the first collection run.
	StartupTimeout time.Duration
}

// NodeCheck is the cached outcome of the latest tick for one node.
type NodeCheck struct {
	Node      string              `json:"node"`
	Status    *proxmox.NodeStatus `json:"status,omitempty"`
	Error     string              `json:"error,omitempty"`
	CheckedAt time.Time           `json:"checked_at"`
}

// Service drives the periodic collection tick: sample every node, persist
// history, evaluate thresholds, detect workload transitions, run
// maintenance.
type Service struct {
	config     Config
	source     proxmox.StatusSource
	metrics    *metrics.Service
	evaluator  *alerts.Evaluator
	alertStore *alerts.Store
	detector   *workloads.Detector
	logger     *logger.Logger

	cron    *cron.Cron
	entryID cron.EntryID

	// tickMu serializes runTick; the startup run executes outside the cron
	// chain, so SkipIfStillRunning alone cannot cover it.
	tickMu sync.Mutex

	mu           sync.RWMutex
	lastStatuses map[string]*proxmox.NodeStatus
	lastErrors   map[string]string
	lastTick     time.Time

	startupWG sync.WaitGroup
	stopCh    chan struct{}
}

func NewService(
	config Config,
	source proxmox.StatusSource,
	metricsService *metrics.Service,
	evaluator *alerts.Evaluator,
	alertStore *alerts.Store,
	detector *workloads.Detector,
	logger *logger.Logger,
) *Service {
	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}
	if config.StartupDelay == 0 {
		config.StartupDelay = 3 * time.Second
	}
	if config.StartupTimeout == 0 {
		config.StartupTimeout = 30 * time.Second
	}
	return &Service{
		config:       config,
		source:       source,
		metrics:      metricsService,
		evaluator:    evaluator,
		alertStore:   alertStore,
		detector:     detector,
		logger:       logger,
		lastStatuses: make(map[string]*proxmox.NodeStatus),
		lastErrors:   make(map[string]string),
		stopCh:       make(chan struct{}),
	}
}

// Start registers the cron schedule and kicks off the delayed initial run.
// A tick that is still running when the next one is due causes the next one
// to be skipped, not queued.
func (s *Service) Start() error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(&cronLogger{logger: s.logger}),
	))

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.runTick(ctx)
	})
	if err != nil {
		return errors.Wrapf(err, "invalid schedule %q", s.config.Schedule)
	}
	s.entryID = entryID

	s.cron.Start()
	s.logger.Info("Monitoring started", "schedule", s.config.Schedule, "nodes", s.config.Nodes)

	s.startupWG.Add(1)
	go s.initialRun()
	return nil
}

// Stop halts the schedule and waits for in-flight work to finish.
func (s *Service) Stop() {
	close(s.stopCh)
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	s.startupWG.Wait()
	s.logger.Info("Monitoring stopped")
}

// initialRun performs one collection shortly after startup so operators see
// data before the first scheduled tick. Failures are logged, never fatal.
func (s *Service) initialRun() {
	defer s.startupWG.Done()

	select {
	case <-time.After(s.config.StartupDelay):
	case <-s.stopCh:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.StartupTimeout)
	defer cancel()
	s.runTick(ctx)
}

func (s *Service) runTick(ctx context.Context) {
	// Ticks never overlap: evaluation and snapshot bookkeeping assume they
	// run alone. A tick arriving while another is in flight is skipped, not
	// queued, whether it came from the scheduler or the startup run.
	if !s.tickMu.TryLock() {
		s.logger.Debug("Collection tick already running, skipping")
		return
	}
	defer s.tickMu.Unlock()

	tickID := shortuuid.New()
	tickTime := time.Now().UTC()
	log := s.logger.With("tick", tickID)
	log.Debug("Collection tick starting", "nodes", len(s.config.Nodes))

	statuses, errs := s.collect(ctx, log)

	// Persist history for healthy nodes; all three samples share the tick
	// timestamp so they line up across metrics.
	for node, status := range statuses {
		for _, metric := range proxmox.MetricNames {
			value, ok := status.MetricValue(metric)
			if !ok {
				continue
			}
			if err := s.metrics.Append(ctx, node, metric, value, tickTime); err != nil {
				log.Error("Failed to persist metric point", "node", node, "metric", metric, "error", err)
			}
		}
	}

	if err := s.evaluator.Evaluate(ctx, statuses); err != nil {
		log.Error("Threshold evaluation failed", "error", err)
	}

	if err := s.detector.Detect(ctx); err != nil {
		log.Error("Workload transition detection failed", "error", err)
	}

	if err := s.metrics.Cleanup(ctx); err != nil {
		log.Error("Metric retention cleanup failed", "error", err)
	}
	if err := s.alertStore.Prune(ctx); err != nil {
		log.Error("Alert history prune failed", "error", err)
	}

	s.mu.Lock()
	s.lastStatuses = statuses
	s.lastErrors = errs
	s.lastTick = tickTime
	s.mu.Unlock()

	log.Debug("Collection tick finished", "healthy", len(statuses), "failed", len(errs))
}

// collect samples every configured node concurrently. One node failing or
// timing out never blocks or poisons the others.
func (s *Service) collect(ctx context.Context, log *logger.Logger) (map[string]*proxmox.NodeStatus, map[string]string) {
	statuses := make(map[string]*proxmox.NodeStatus)
	errs := make(map[string]string)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, node := range s.config.Nodes {
		wg.Add(1)
		go func(node string) {
			defer wg.Done()
			status, err := s.source.NodeStatus(ctx, node)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("Node status check failed", "node", node, "error", err)
				errs[node] = err.Error()
				return
			}
			statuses[node] = status
		}(node)
	}
	wg.Wait()

	return statuses, errs
}

// NodeStatuses returns the per-node outcome of the most recent tick.
func (s *Service) NodeStatuses() []NodeCheck {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checks := make([]NodeCheck, 0, len(s.config.Nodes))
	for _, node := range s.config.Nodes {
		check := NodeCheck{Node: node, CheckedAt: s.lastTick}
		if status, ok := s.lastStatuses[node]; ok {
			check.Status = status
		} else if msg, ok := s.lastErrors[node]; ok {
			check.Error = msg
		}
		checks = append(checks, check)
	}
	return checks
}

// cronLogger adapts our logger to the cron scheduler's interface.
type cronLogger struct {
	logger *logger.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(msg, keysAndValues...)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(msg, append(keysAndValues, "error", err)...)
}
