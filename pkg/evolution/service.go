package evolution

import (
	"context"
	"database/sql"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/schemaflow/schemaflow/pkg/compatibility"
	"github.com/schemaflow/schemaflow/pkg/migration"
	"github.com/schemaflow/schemaflow/pkg/observability"
	"github.com/schemaflow/schemaflow/pkg/schema"
	"github.com/schemaflow/schemaflow/pkg/storage"
)

const defaultPlanCacheSize = 256

// Options configures a Service. Zero-value collaborators are replaced with
// working defaults; History may stay nil when no persistence is wanted.
type Options struct {
	Comparer      *compatibility.Comparer
	Validator     *compatibility.Validator
	Factory       *migration.Factory
	History       storage.HistoryStore
	Logger        *observability.Logger
	Metrics       *observability.Metrics
	PlanCacheSize int
}

// Service ties the evolution lifecycle together: diffing, validation, plan
// generation and execution.
type Service struct {
	comparer  *compatibility.Comparer
	validator *compatibility.Validator
	factory   *migration.Factory
	history   storage.HistoryStore
	logger    *observability.Logger
	metrics   *observability.Metrics
	executor  *executor

	planCache *lru.Cache[string, *migration.Plan]
}

// NewService creates a service from the given options.
func NewService(opts Options) (*Service, error) {
	if opts.Comparer == nil {
		opts.Comparer = compatibility.NewComparer()
	}
	if opts.Validator == nil {
		opts.Validator = compatibility.NewValidator(opts.Comparer)
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.Factory == nil {
		opts.Factory = migration.NewFactory(opts.Comparer, opts.Logger)
	}
	if opts.PlanCacheSize <= 0 {
		opts.PlanCacheSize = defaultPlanCacheSize
	}

	cache, err := lru.New[string, *migration.Plan](opts.PlanCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}

	return &Service{
		comparer:  opts.Comparer,
		validator: opts.Validator,
		factory:   opts.Factory,
		history:   opts.History,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		executor: &executor{
			history: opts.History,
			logger:  opts.Logger,
			metrics: opts.Metrics,
		},
		planCache: cache,
	}, nil
}

// Compare diffs two schema snapshots.
func (s *Service) Compare(oldSchema, newSchema *schema.Schema) []compatibility.Change {
	changes := s.comparer.Compare(oldSchema, newSchema)
	if s.metrics != nil {
		s.metrics.ComparisonsTotal.Inc()
		for _, change := range changes {
			s.metrics.ChangesDetected.WithLabelValues(change.Kind.String()).Inc()
		}
	}
	return changes
}

// Validate checks the transition against the new schema's evolution
// strategy.
func (s *Service) Validate(oldSchema, newSchema *schema.Schema) *compatibility.ValidationResult {
	result := s.validator.Validate(oldSchema, newSchema)
	if s.metrics != nil {
		outcome := "valid"
		if !result.Valid {
			outcome = "invalid"
		}
		s.metrics.ValidationsTotal.WithLabelValues(outcome).Inc()
	}
	return result
}

// Dialects lists the dialects plans can be generated for.
func (s *Service) Dialects() []schema.Dialect {
	return s.factory.Dialects()
}

// planCacheKey is only usable when both snapshots carry identifiers;
// anonymous snapshots are never cached.
func planCacheKey(d schema.Dialect, oldSchema, newSchema *schema.Schema) string {
	if newSchema == nil || newSchema.ID == "" {
		return ""
	}
	oldID := ""
	if oldSchema != nil {
		if oldSchema.ID == "" {
			return ""
		}
		oldID = oldSchema.ID
	}
	return fmt.Sprintf("%s|%s|%s", d, oldID, newSchema.ID)
}

// GeneratePlan produces the migration plan for the dialect, memoizing
// results for identified schema pairs.
func (s *Service) GeneratePlan(dialect schema.Dialect, oldSchema, newSchema *schema.Schema) (*migration.Plan, error) {
	key := planCacheKey(dialect, oldSchema, newSchema)
	if key != "" {
		if plan, ok := s.planCache.Get(key); ok {
			return plan, nil
		}
	}

	gen, err := s.factory.Generator(dialect)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PlanGenerationErrors.WithLabelValues(dialect.String()).Inc()
		}
		return nil, err
	}

	plan, err := gen.GeneratePlan(oldSchema, newSchema)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PlanGenerationErrors.WithLabelValues(dialect.String()).Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PlansGeneratedTotal.WithLabelValues(dialect.String()).Inc()
	}
	if key != "" {
		s.planCache.Add(key, plan)
	}
	return plan, nil
}

// Execute applies a plan against the database in one all-or-nothing
// transaction and records the outcome in history after commit.
func (s *Service) Execute(ctx context.Context, db *sql.DB, plan *migration.Plan, target *schema.Schema) (*ExecutionResult, error) {
	return s.executor.Execute(ctx, db, plan, target)
}

// GetHistory returns a source's migration history, newest version first.
func (s *Service) GetHistory(ctx context.Context, sourceID string) ([]*storage.HistoryEntry, error) {
	if s.history == nil {
		return nil, fmt.Errorf("no history store configured")
	}
	return s.history.List(ctx, sourceID)
}

// GetVersion returns one entry of a source's migration history.
func (s *Service) GetVersion(ctx context.Context, sourceID string, version int) (*storage.HistoryEntry, error) {
	if s.history == nil {
		return nil, fmt.Errorf("no history store configured")
	}
	return s.history.GetVersion(ctx, sourceID, version)
}
