package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/pkg/logger"
)

// Pipeline runs the registered stages of a computation in priority order.
type Pipeline struct {
	registry *StageRegistry

	// ordered holds the enabled stages sorted by priority
	ordered []*StageConfig

	metrics *sc.Metrics
	options *Options
	log     *logger.Logger

	mu sync.RWMutex
}

// Options configures pipeline behavior.
type Options struct {
	// CollectMetrics enables per-stage timing
	CollectMetrics bool

	// Debug logs every stage boundary
	Debug bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		CollectMetrics: true,
	}
}

// NewPipeline creates a new pipeline.
func NewPipeline(opts *Options) *Pipeline {
	if opts == nil {
		opts = DefaultOptions()
	}
	p := &Pipeline{
		registry: NewStageRegistry(),
		metrics:  sc.NewMetrics(),
		options:  opts,
		log:      logger.Default().Named("pipeline"),
	}
	if opts.Debug {
		p.log.SetLevel(logger.LevelDebug)
	}
	return p
}

// Register adds a stage to the pipeline.
func (p *Pipeline) Register(id StageID, stage Stage, priority StagePriority, opts ...StageOption) {
	config := &StageConfig{
		ID:       id,
		Stage:    stage,
		Priority: priority,
		Enabled:  true,
	}
	for _, opt := range opts {
		opt(config)
	}

	p.mu.Lock()
	p.registry.Register(config)
	p.mu.Unlock()

	p.rebuild()
}

// StageOption configures a stage registration.
type StageOption func(*StageConfig)

// WithRequired marks the stage as required.
func WithRequired(required bool) StageOption {
	return func(c *StageConfig) {
		c.Required = required
	}
}

// Enable enables a stage by ID.
func (p *Pipeline) Enable(id StageID) {
	p.mu.Lock()
	ok := p.registry.Enable(id)
	p.mu.Unlock()
	if !ok {
		p.log.Warn("cannot enable unknown stage %s", id)
		return
	}
	p.rebuild()
}

// Disable disables a stage by ID. Required stages keep running.
func (p *Pipeline) Disable(id StageID) {
	p.mu.Lock()
	ok := p.registry.Disable(id)
	p.mu.Unlock()
	if !ok {
		p.log.Warn("cannot disable stage %s: unknown or required", id)
		return
	}
	p.rebuild()
}

func (p *Pipeline) rebuild() {
	p.mu.Lock()
	defer p.mu.Unlock()

	enabled := p.registry.GetEnabled()
	sort.SliceStable(enabled, func(i, j int) bool {
		if enabled[i].Priority != enabled[j].Priority {
			return enabled[i].Priority < enabled[j].Priority
		}
		return enabled[i].ID < enabled[j].ID
	})
	p.ordered = enabled
}

// Execute runs the stages. Issues of every stage are added to
// pctx.Result. The first stage error aborts the run; a cancelled context
// stops before the next stage.
func (p *Pipeline) Execute(ctx context.Context, pctx *Context) (*sc.Result, error) {
	if pctx.Result == nil {
		pctx.Result = sc.NewResult("", pctx.Variant)
	}

	p.mu.RLock()
	stages := p.ordered
	p.mu.RUnlock()

	for _, cfg := range stages {
		if err := ctx.Err(); err != nil {
			return pctx.Result, err
		}

		start := time.Now()
		issues, err := cfg.Stage.Run(ctx, pctx)
		duration := time.Since(start)

		if p.options.CollectMetrics && p.metrics != nil {
			p.metrics.RecordStage(cfg.Stage.Name(), duration)
		}
		if err != nil {
			p.log.Error("stage %s failed: %v", cfg.Stage.Name(), err)
			return pctx.Result, fmt.Errorf("stage %s: %w", cfg.Stage.Name(), err)
		}

		pctx.Result.AddIssues(issues)
		p.log.Debug("stage %s done in %s (%d issues)", cfg.Stage.Name(), duration, len(issues))
	}
	return pctx.Result, nil
}

// Metrics returns the pipeline metrics.
func (p *Pipeline) Metrics() *sc.Metrics {
	return p.metrics
}

// SetMetrics sets the metrics collector.
func (p *Pipeline) SetMetrics(m *sc.Metrics) {
	p.metrics = m
}

// Stages returns the enabled stage names in execution order.
func (p *Pipeline) Stages() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, len(p.ordered))
	for i, cfg := range p.ordered {
		names[i] = cfg.Stage.Name()
	}
	return names
}

// StageCount returns the number of enabled stages.
func (p *Pipeline) StageCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ordered)
}
