package structurecomparer

import (
	"runtime"
)

// Option configures a Comparer.
type Option func(*Options)

// Options holds all configuration for a Comparer.
type Options struct {
	// Stage flags
	Recommendations      bool
	StatusPropagation    bool
	CopyLinkAugmentation bool

	// MaxRecommendationsPerField caps the suggestions kept per field (0 = unlimited).
	MaxRecommendationsPerField int

	// Performance
	WorkerCount    int
	CollectMetrics bool

	// ExpressionCacheSize bounds the compiled FHIRPath expression cache
	ExpressionCacheSize int

	// Debug enables debug logging of stage boundaries
	Debug bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Recommendations:      true,
		StatusPropagation:    true,
		CopyLinkAugmentation: true,

		MaxRecommendationsPerField: 0, // unlimited

		WorkerCount:    runtime.NumCPU(),
		CollectMetrics: true,

		ExpressionCacheSize: 256,
	}
}

// --- Stage Options ---

// WithRecommendations enables the recommendation engine.
func WithRecommendations(enable bool) Option {
	return func(o *Options) {
		o.Recommendations = enable
	}
}

// WithStatusPropagation enables pushing incompatible status to descendants.
func WithStatusPropagation(enable bool) Option {
	return func(o *Options) {
		o.StatusPropagation = enable
	}
}

// WithCopyLinkAugmentation derives the reverse COPY_TO / COPY_FROM entry
// for every manual copy action.
func WithCopyLinkAugmentation(enable bool) Option {
	return func(o *Options) {
		o.CopyLinkAugmentation = enable
	}
}

// WithMaxRecommendations limits the recommendations kept per field.
// Use 0 for unlimited.
func WithMaxRecommendations(max int) Option {
	return func(o *Options) {
		if max >= 0 {
			o.MaxRecommendationsPerField = max
		}
	}
}

// --- Performance Options ---

// WithWorkerCount sets the number of workers for batch computation.
// Defaults to runtime.NumCPU().
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithMetrics enables metric collection.
func WithMetrics(enable bool) Option {
	return func(o *Options) {
		o.CollectMetrics = enable
	}
}

// WithExpressionCache sets the FHIRPath expression cache size.
func WithExpressionCache(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ExpressionCacheSize = size
		}
	}
}

// --- Debug Options ---

// WithDebug enables debug logging.
func WithDebug(enable bool) Option {
	return func(o *Options) {
		o.Debug = enable
	}
}

// --- Presets ---

// ActionsOnlyOptions returns options that resolve actions and statuses
// without computing recommendations.
func ActionsOnlyOptions() []Option {
	return []Option{
		WithRecommendations(false),
	}
}

// Apply applies opts on top of the defaults.
func Apply(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}
