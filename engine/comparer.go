// Package engine provides the comparer that runs one computation per input.
package engine

import (
	"context"
	"fmt"
	"time"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/action"
	"github.com/gematik/structure-comparer/fixedvalue"
	"github.com/gematik/structure-comparer/hierarchy"
	"github.com/gematik/structure-comparer/pipeline"
	"github.com/gematik/structure-comparer/pkg/logger"
	"github.com/gematik/structure-comparer/profile"
	"github.com/gematik/structure-comparer/recommend"
	"github.com/gematik/structure-comparer/worker"
)

// Input is one computation: a target, its sources and the user's decisions.
type Input struct {
	// ID identifies the mapping or creation entity
	ID string

	Target  *profile.Profile
	Sources []*profile.Profile

	// Manual holds the user's entries keyed by field path
	Manual sc.ManualEntries

	// Classification is the compatibility per field. Ignored for creations.
	Classification map[string]sc.Classification

	// Variant overrides the flavour derived from Sources. A creation
	// ignores any sources.
	Variant sc.Variant
}

// variant returns the flavour of the input.
func (in *Input) variant() sc.Variant {
	if in.Variant != "" {
		return in.Variant
	}
	if len(in.Sources) == 0 {
		return sc.VariantCreation
	}
	return sc.VariantMapping
}

// Comparer computes actions, recommendations and statuses.
// It is safe for concurrent use.
type Comparer struct {
	options *sc.Options

	extractor   *fixedvalue.Extractor
	resolver    *action.Resolver
	recommender *recommend.Engine

	pipe    *pipeline.Pipeline
	metrics *sc.Metrics
	log     *logger.Logger
}

// New creates a Comparer with the given options.
func New(opts ...sc.Option) (*Comparer, error) {
	options := sc.Apply(opts...)

	extractor, err := fixedvalue.New(options.ExpressionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create fixed value extractor: %w", err)
	}

	c := &Comparer{
		options:     options,
		extractor:   extractor,
		resolver:    action.NewResolver(extractor, options),
		recommender: recommend.NewEngine(options),
		metrics:     sc.NewMetrics(),
		log:         logger.Default().Named("engine"),
	}
	if options.Debug {
		c.log.SetLevel(logger.LevelDebug)
	}
	if options.CollectMetrics {
		extractor.WithMetrics(c.metrics)
	}

	c.buildPipeline()
	return c, nil
}

// buildPipeline registers the stages in execution order.
func (c *Comparer) buildPipeline() {
	c.pipe = pipeline.NewPipeline(&pipeline.Options{
		CollectMetrics: c.options.CollectMetrics,
		Debug:          c.options.Debug,
	})
	c.pipe.SetMetrics(c.metrics)
	c.addStages()

	c.setStage(pipeline.StageIDPropagate, c.options.StatusPropagation)
	c.setStage(pipeline.StageIDRecommend, c.options.Recommendations)
}

func (c *Comparer) setStage(id pipeline.StageID, enabled bool) {
	if enabled {
		c.pipe.Enable(id)
	} else {
		c.pipe.Disable(id)
	}
}

// Compute runs one computation. Structural problems abort it with an error
// matching sc.ErrStructural; everything else is reported on the Result.
func (c *Comparer) Compute(ctx context.Context, in *Input) (*sc.Result, error) {
	start := time.Now()

	if in == nil || in.Target == nil {
		return nil, sc.ErrNoInput
	}

	variant := in.variant()
	sources := in.Sources
	if variant == sc.VariantCreation {
		sources = nil
	} else if len(sources) == 0 {
		return nil, fmt.Errorf("mapping %s has no sources: %w", in.ID, sc.ErrNoInput)
	}

	m, err := profile.NewMapping(in.ID, in.Target, sources...)
	if err != nil {
		c.fail(start, in.ID, err)
		return nil, err
	}
	if len(m.Fields()) == 0 {
		return nil, fmt.Errorf("mapping %s: %w", in.ID, sc.ErrNoInput)
	}

	nav, err := hierarchy.Build(m.Paths())
	if err != nil {
		c.fail(start, in.ID, err)
		return nil, err
	}

	pctx := pipeline.AcquireContext()
	defer pctx.Release()

	pctx.Variant = variant
	pctx.Mapping = m
	pctx.Nav = nav
	pctx.Manual = in.Manual
	pctx.Classification = in.Classification
	pctx.Options = c.options
	pctx.Result = sc.NewResult(in.ID, variant)
	pctx.Result.Fields = nav.Paths()

	c.log.Debug("computing %s %s: %d fields, %d sources", variant, in.ID, nav.Size(), len(sources))

	result, err := c.pipe.Execute(ctx, pctx)
	if err != nil {
		c.fail(start, in.ID, err)
		return nil, err
	}

	propagated, _ := pctx.GetMetadata(pipeline.MetaPropagated)
	if n, ok := propagated.(int); ok && n > 0 {
		c.log.Debug("mapping %s: %d fields inherit an incompatible status", in.ID, n)
		if c.options.CollectMetrics {
			c.metrics.RecordPropagated(n)
		}
	}

	if c.options.CollectMetrics {
		c.metrics.RecordComputation(time.Since(start), nav.Size(), false)
		c.metrics.RecordRecommendations(result.RecommendationCount())
		for _, issue := range result.Issues {
			c.metrics.RecordIssue(issue.Severity)
		}
	}
	return result, nil
}

func (c *Comparer) fail(start time.Time, id string, err error) {
	c.log.Error("computation %s failed: %v", id, err)
	if c.options.CollectMetrics {
		c.metrics.RecordComputation(time.Since(start), 0, true)
	}
}

// ComputeBatch runs independent computations in parallel on
// Options.WorkerCount workers. Results keep the order of inputs.
func (c *Comparer) ComputeBatch(ctx context.Context, inputs []*Input) *worker.BatchResult {
	jobs := make([]worker.Job[*Input], len(inputs))
	for i, in := range inputs {
		jobs[i] = newJob(i, in)
	}
	return worker.NewBatch(c.Compute, c.options.WorkerCount).Run(ctx, jobs)
}

// Stream computes inputs as they arrive on Options.WorkerCount workers and
// delivers the results in completion order. The returned channel is closed
// after in is closed and every input was computed, or once ctx is
// cancelled. Callers must drain it.
func (c *Comparer) Stream(ctx context.Context, in <-chan *Input) <-chan *worker.JobResult {
	pool := worker.NewPoolContext(ctx, c.Compute, c.options.WorkerCount)

	go func() {
		defer pool.Finish()
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case input, ok := <-in:
				if !ok || !pool.Submit(newJob(i, input)) {
					return
				}
			}
		}
	}()

	return pool.Results()
}

func newJob(i int, in *Input) worker.Job[*Input] {
	id := fmt.Sprintf("#%d", i)
	if in != nil && in.ID != "" {
		id = in.ID
	}
	return worker.Job[*Input]{ID: id, Input: in}
}

// Stages returns the enabled stage names in execution order.
func (c *Comparer) Stages() []string {
	return c.pipe.Stages()
}

// Recommenders returns the recommender names in priority order.
func (c *Comparer) Recommenders() []string {
	return c.recommender.Recommenders()
}

// Metrics returns the comparer's metrics.
func (c *Comparer) Metrics() *sc.Metrics {
	return c.metrics
}

// Options returns the comparer's options.
func (c *Comparer) Options() *sc.Options {
	return c.options
}
