package engine

import (
	"context"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/evaluation"
	"github.com/gematik/structure-comparer/pipeline"
	"github.com/gematik/structure-comparer/recommend"
)

// addStages registers the computation stages. Resolve must run; the
// propagate and recommend stages are skipped for creations. The options
// switch them off in buildPipeline.
func (c *Comparer) addStages() {
	c.pipe.Register(pipeline.StageIDResolve,
		pipeline.NewStageFunc(string(pipeline.StageIDResolve), c.resolve),
		pipeline.PriorityResolve, pipeline.WithRequired(true))

	c.pipe.Register(pipeline.StageIDEvaluate,
		pipeline.NewStageFunc(string(pipeline.StageIDEvaluate), c.evaluate),
		pipeline.PriorityEvaluate, pipeline.WithRequired(true))

	c.pipe.Register(pipeline.StageIDPropagate,
		pipeline.NewConditionalStage(
			pipeline.NewStageFunc(string(pipeline.StageIDPropagate), c.propagate),
			notCreation),
		pipeline.PriorityPropagate)

	c.pipe.Register(pipeline.StageIDAllowed,
		pipeline.NewStageFunc(string(pipeline.StageIDAllowed), c.allowed),
		pipeline.PriorityAllowed)

	c.pipe.Register(pipeline.StageIDRecommend,
		pipeline.NewConditionalStage(
			pipeline.NewStageFunc(string(pipeline.StageIDRecommend), c.recommend),
			notCreation),
		pipeline.PriorityRecommend)

	c.pipe.Register(pipeline.StageIDAggregate,
		pipeline.NewStageFunc(string(pipeline.StageIDAggregate), c.aggregate),
		pipeline.PriorityAggregate, pipeline.WithRequired(true))
}

func notCreation(pctx *pipeline.Context) bool {
	return !pctx.IsCreation()
}

func (c *Comparer) resolve(_ context.Context, pctx *pipeline.Context) ([]sc.Issue, error) {
	if pctx.IsCreation() {
		pctx.Resolution = c.resolver.ResolveCreation(pctx.Mapping, pctx.Nav, pctx.Manual)
	} else {
		res, err := c.resolver.Resolve(pctx.Mapping, pctx.Nav, pctx.Manual)
		if err != nil {
			return nil, err
		}
		pctx.Resolution = res
	}
	pctx.Result.Actions = pctx.Resolution.Actions
	return pctx.Resolution.Issues, nil
}

func (c *Comparer) evaluate(_ context.Context, pctx *pipeline.Context) ([]sc.Issue, error) {
	if pctx.IsCreation() {
		pctx.Evaluations = evaluation.EvaluateCreation(pctx.Mapping, pctx.Actions())
		return nil, nil
	}
	evals, issues := evaluation.EvaluateMapping(pctx.Mapping, pctx.Actions(), pctx.Classification)
	pctx.Evaluations = evals
	return issues, nil
}

func (c *Comparer) propagate(_ context.Context, pctx *pipeline.Context) ([]sc.Issue, error) {
	n := evaluation.Propagate(pctx.Nav, pctx.Evaluations, pctx.Actions())
	pctx.SetMetadata(pipeline.MetaPropagated, n)
	return nil, nil
}

func (c *Comparer) allowed(_ context.Context, pctx *pipeline.Context) ([]sc.Issue, error) {
	pctx.Result.ActionsAllowed = evaluation.AllowedActions(pctx.Mapping, pctx.Nav,
		pctx.Classification, pctx.Evaluations, pctx.Actions())
	return nil, nil
}

func (c *Comparer) recommend(_ context.Context, pctx *pipeline.Context) ([]sc.Issue, error) {
	recs, issues := c.recommender.Run(&recommend.Input{
		Mapping:        pctx.Mapping,
		Nav:            pctx.Nav,
		Actions:        pctx.Actions(),
		Manual:         pctx.Resolution.Manual,
		Dangling:       pctx.Resolution.Dangling,
		Classification: pctx.Classification,
		Evaluations:    pctx.Evaluations,
		Allowed:        pctx.Result.ActionsAllowed,
	})
	pctx.Result.Recommendations = recs
	return issues, nil
}

func (c *Comparer) aggregate(_ context.Context, pctx *pipeline.Context) ([]sc.Issue, error) {
	pctx.Result.Evaluations = pctx.Evaluations
	pctx.Result.Summary = evaluation.Aggregate(pctx.Variant, pctx.Evaluations)
	pctx.Result.SortIssues()
	return nil, nil
}
