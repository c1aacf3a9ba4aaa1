// Package pipeline runs the stages of one computation in order.
package pipeline

import (
	"sync"

	sc "github.com/gematik/structure-comparer"
	"github.com/gematik/structure-comparer/action"
	"github.com/gematik/structure-comparer/evaluation"
	"github.com/gematik/structure-comparer/hierarchy"
	"github.com/gematik/structure-comparer/profile"
)

// Context holds all state of a single computation. It is passed through
// every stage; stages read the output of earlier stages from it.
//
// Context instances are pooled. Use AcquireContext() and Release() to
// manage them.
type Context struct {
	// Variant is the comparison flavour
	Variant sc.Variant

	// Mapping joins the target with its sources
	Mapping *profile.Mapping

	// Nav indexes the mapping's field hierarchy
	Nav *hierarchy.Navigator

	// Manual holds the user's entries for this mapping
	Manual sc.ManualEntries

	// Classification is the externally computed compatibility per field
	Classification map[string]sc.Classification

	// Options holds the computation options
	Options *sc.Options

	// Resolution is set by the resolve stage
	Resolution *action.Resolution

	// Evaluations is set by the evaluate stage
	Evaluations evaluation.Evaluations

	// Result accumulates the output
	Result *sc.Result

	// mu protects metadata
	mu sync.RWMutex

	metadata map[string]any
}

var contextPool = sync.Pool{
	New: func() any {
		return &Context{
			metadata: make(map[string]any, 8),
		}
	},
}

// AcquireContext gets a Context from the pool.
// Call Release() when done to return it to the pool.
func AcquireContext() *Context {
	ctx := contextPool.Get().(*Context)
	ctx.Reset()
	return ctx
}

// Release returns the Context to the pool.
// After calling Release, the Context should not be used.
func (c *Context) Release() {
	if c == nil {
		return
	}
	c.Reset()
	contextPool.Put(c)
}

// Reset clears the context for reuse.
func (c *Context) Reset() {
	c.Variant = ""
	c.Mapping = nil
	c.Nav = nil
	c.Manual = nil
	c.Classification = nil
	c.Options = nil
	c.Resolution = nil
	c.Evaluations = nil
	c.Result = nil

	for k := range c.metadata {
		delete(c.metadata, k)
	}
}

// NewContext creates a new Context (non-pooled).
func NewContext() *Context {
	return &Context{
		metadata: make(map[string]any, 8),
	}
}

// IsCreation reports whether the computation has no sources.
func (c *Context) IsCreation() bool {
	return c.Variant == sc.VariantCreation
}

// Actions returns the resolved actions, or nil before the resolve stage.
func (c *Context) Actions() map[string]sc.ActionInfo {
	if c.Resolution == nil {
		return nil
	}
	return c.Resolution.Actions
}

// Metadata keys written by the standard stages.
const (
	// MetaPropagated holds the number of fields the propagate stage marked
	// incompatible, as an int
	MetaPropagated = "propagated"
)

// SetMetadata stores a value in the context metadata.
func (c *Context) SetMetadata(key string, value any) {
	c.mu.Lock()
	c.metadata[key] = value
	c.mu.Unlock()
}

// GetMetadata retrieves a value from the context metadata.
func (c *Context) GetMetadata(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.metadata[key]
	c.mu.RUnlock()
	return v, ok
}
