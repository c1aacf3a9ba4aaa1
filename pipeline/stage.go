package pipeline

import (
	"context"

	sc "github.com/gematik/structure-comparer"
)

// Stage is a single step of a computation.
//
// Stages run strictly in order; each reads what earlier stages stored in
// the Context and adds its own output.
type Stage interface {
	// Name returns the unique identifier for this stage.
	Name() string

	// Run performs the stage. Issues are added to the result, an error
	// aborts the computation.
	Run(ctx context.Context, pctx *Context) ([]sc.Issue, error)
}

// StageFunc is a function type that implements Stage.
type StageFunc struct {
	name string
	fn   func(ctx context.Context, pctx *Context) ([]sc.Issue, error)
}

// NewStageFunc creates a Stage from a function.
func NewStageFunc(name string, fn func(ctx context.Context, pctx *Context) ([]sc.Issue, error)) Stage {
	return &StageFunc{name: name, fn: fn}
}

// Name returns the stage name.
func (s *StageFunc) Name() string {
	return s.name
}

// Run calls the wrapped function.
func (s *StageFunc) Run(ctx context.Context, pctx *Context) ([]sc.Issue, error) {
	return s.fn(ctx, pctx)
}

// StageID uniquely identifies a stage.
type StageID string

// Standard stage identifiers.
const (
	StageIDResolve   StageID = "resolve"
	StageIDEvaluate  StageID = "evaluate"
	StageIDPropagate StageID = "propagate"
	StageIDAllowed   StageID = "allowed-actions"
	StageIDRecommend StageID = "recommend"
	StageIDAggregate StageID = "aggregate"
)

// StagePriority defines the order in which stages run. Lower values run
// first.
type StagePriority int

const (
	PriorityResolve   StagePriority = 100
	PriorityEvaluate  StagePriority = 200
	PriorityPropagate StagePriority = 300
	PriorityAllowed   StagePriority = 400
	PriorityRecommend StagePriority = 500
	PriorityAggregate StagePriority = 900
)

// StageConfig holds configuration for a stage in the pipeline.
type StageConfig struct {
	ID    StageID
	Stage Stage

	// Priority determines execution order (lower runs first)
	Priority StagePriority

	// Required stages cannot be disabled
	Required bool

	Enabled bool
}

// StageRegistry manages the registered stages.
type StageRegistry struct {
	stages map[StageID]*StageConfig
}

// NewStageRegistry creates a new empty registry.
func NewStageRegistry() *StageRegistry {
	return &StageRegistry{
		stages: make(map[StageID]*StageConfig),
	}
}

// Register adds a stage to the registry, replacing one with the same ID.
func (r *StageRegistry) Register(config *StageConfig) {
	r.stages[config.ID] = config
}

// Get returns a stage configuration by ID.
func (r *StageRegistry) Get(id StageID) (*StageConfig, bool) {
	cfg, ok := r.stages[id]
	return cfg, ok
}

// GetEnabled returns all enabled stages.
func (r *StageRegistry) GetEnabled() []*StageConfig {
	var enabled []*StageConfig
	for _, cfg := range r.stages {
		if cfg.Enabled {
			enabled = append(enabled, cfg)
		}
	}
	return enabled
}

// Enable enables a stage by ID. It returns false for an unknown ID.
func (r *StageRegistry) Enable(id StageID) bool {
	cfg, ok := r.Get(id)
	if !ok {
		return false
	}
	cfg.Enabled = true
	return true
}

// Disable disables a stage by ID. It returns false for an unknown ID and
// for a required stage, which stays enabled.
func (r *StageRegistry) Disable(id StageID) bool {
	cfg, ok := r.Get(id)
	if !ok || cfg.Required {
		return false
	}
	cfg.Enabled = false
	return true
}

// ConditionalStage wraps a stage with a condition for execution.
type ConditionalStage struct {
	stage     Stage
	condition func(*Context) bool
}

// NewConditionalStage creates a stage that only runs when a condition is met.
func NewConditionalStage(stage Stage, condition func(*Context) bool) Stage {
	return &ConditionalStage{
		stage:     stage,
		condition: condition,
	}
}

// Name returns the wrapped stage name.
func (s *ConditionalStage) Name() string {
	return s.stage.Name()
}

// Run runs the stage if the condition is met.
func (s *ConditionalStage) Run(ctx context.Context, pctx *Context) ([]sc.Issue, error) {
	if s.condition != nil && !s.condition(pctx) {
		return nil, nil
	}
	return s.stage.Run(ctx, pctx)
}
