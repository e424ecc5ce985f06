package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/verity/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrInvalidConfig marks configuration errors, which are fatal at engine
// construction. No hypothesis is ever scheduled with a bad config.
var ErrInvalidConfig = errors.New("invalid engine config")

// EngineConfig enumerates the engine's bounds and the elimination thresholds
// applied downstream of it.
type EngineConfig struct {
	MaxParallel            int           // hypotheses issuing oracle queries at once
	GlobalDeadline         time.Duration // wall-clock budget for the whole run
	PerQueryTimeout        time.Duration // hard per-call guard, shorter than the deadline
	ConfidenceThreshold    float64       // convergence bar
	MaxIterations          int           // per-hypothesis query ceiling
	BudgetCeiling          float64       // per-hypothesis cost ceiling
	MaxForkDepth           int           // fork-of-fork chain length limit
	MaxConsecutiveFailures int           // oracle failures tolerated before exhaustion

	// Elimination thresholds
	MinConfidence float64
	MinEvidence   int
	MaxCost       float64
}

// DefaultEngineConfig returns conservative defaults suitable for interactive
// use.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxParallel:            4,
		GlobalDeadline:         30 * time.Second,
		PerQueryTimeout:        5 * time.Second,
		ConfidenceThreshold:    0.7,
		MaxIterations:          10,
		BudgetCeiling:          10,
		MaxForkDepth:           2,
		MaxConsecutiveFailures: 3,
		MinConfidence:          0.3,
		MinEvidence:            2,
		MaxCost:                20,
	}
}

// Validate fails fast on configurations the engine cannot honor.
func (c EngineConfig) Validate() error {
	if c.MaxParallel <= 0 {
		return fmt.Errorf("%w: max_parallel must be positive, got %d", ErrInvalidConfig, c.MaxParallel)
	}
	if c.GlobalDeadline <= 0 {
		return fmt.Errorf("%w: global_deadline must be positive", ErrInvalidConfig)
	}
	if c.PerQueryTimeout <= 0 {
		return fmt.Errorf("%w: per_query_timeout must be positive", ErrInvalidConfig)
	}
	if c.PerQueryTimeout >= c.GlobalDeadline {
		return fmt.Errorf("%w: per_query_timeout must be shorter than global_deadline", ErrInvalidConfig)
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence_threshold must be in (0,1], got %v", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be positive, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.BudgetCeiling <= 0 {
		return fmt.Errorf("%w: budget_ceiling must be positive", ErrInvalidConfig)
	}
	if c.MaxForkDepth < 0 {
		return fmt.Errorf("%w: max_fork_depth must not be negative, got %d", ErrInvalidConfig, c.MaxForkDepth)
	}
	if c.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("%w: max_consecutive_failures must not be negative", ErrInvalidConfig)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence must be in [0,1], got %v", ErrInvalidConfig, c.MinConfidence)
	}
	if c.MinEvidence < 0 {
		return fmt.Errorf("%w: min_evidence must not be negative, got %d", ErrInvalidConfig, c.MinEvidence)
	}
	if c.MaxCost <= 0 {
		return fmt.Errorf("%w: max_cost must be positive", ErrInvalidConfig)
	}
	return nil
}

// InterrogationEngine runs workers for all hypotheses to completion, enforcing
// global bounds and materializing forks. The only shared resource across
// workers is the admission semaphore; each cognitive state stays exclusively
// owned by its hypothesis.
type InterrogationEngine struct {
	oracle  domain.SourceOracle
	scoring ScoringStrategy
	cfg     EngineConfig
	logger  *zap.Logger
}

func NewInterrogationEngine(oracle domain.SourceOracle, scoring ScoringStrategy, cfg EngineConfig, logger *zap.Logger) (*InterrogationEngine, error) {
	if oracle == nil {
		return nil, fmt.Errorf("%w: source oracle is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &InterrogationEngine{
		oracle:  oracle,
		scoring: scoring,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

func (e *InterrogationEngine) Config() EngineConfig { return e.cfg }

// Run interrogates every ACTIVE hypothesis and returns the final set, original
// IDs plus any forks, all in a terminal status. Hitting the global
// deadline is a normal outcome: still-active hypotheses are forced to
// EXHAUSTED with uncertainty HIGH, never surfaced as an error. Failures inside
// one hypothesis never abort another.
func (e *InterrogationEngine) Run(ctx context.Context, hypotheses []*domain.Hypothesis) []*domain.Hypothesis {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.GlobalDeadline)
	defer cancel()

	worker := NewInterrogationWorker(e.oracle, e.scoring, e.cfg, e.logger)
	sem := semaphore.NewWeighted(int64(e.cfg.MaxParallel))

	var (
		mu       sync.Mutex
		terminal []*domain.Hypothesis
		wg       sync.WaitGroup
	)

	collect := func(h *domain.Hypothesis) {
		mu.Lock()
		terminal = append(terminal, h)
		mu.Unlock()
	}

	var launch func(h *domain.Hypothesis)

	admitFork := func(req ForkRequest) bool {
		child := req.Parent.Fork(req.Snapshot)
		child.State.AddEvidence(req.Adopted)
		e.logger.Info("hypothesis forked",
			zap.String("parent_id", req.Parent.ID.String()),
			zap.String("child_id", child.ID.String()),
			zap.String("topic", req.Cause.Topic),
			zap.Float64("severity", req.Cause.Severity),
			zap.Int("fork_depth", child.ForkDepth))
		launch(child)
		return true
	}

	launch = func(h *domain.Hypothesis) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				// Deadline hit while waiting for an admission slot.
				h.Status = domain.StatusExhausted
				h.State.ForceUncertainty(domain.UncertaintyHigh)
				e.logger.Info("hypothesis never admitted before deadline",
					zap.String("hypothesis_id", h.ID.String()))
				collect(h)
				return
			}
			worker.Run(ctx, h, admitFork)
			sem.Release(1)
			collect(h)
		}()
	}

	for _, h := range hypotheses {
		if h.Status != domain.StatusActive {
			// Already terminal; pass through untouched.
			collect(h)
			continue
		}
		launch(h)
	}

	wg.Wait()
	return terminal
}
