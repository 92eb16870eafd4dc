// Package steps defines the pipeline step contract and the registry that maps
// "module.function" names from the config file to implementations.
package steps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/backmassage/qcrunner/internal/record"
)

// Resolution errors. Both are startup-fatal for a run.
var (
	ErrUnresolvableModule   = errors.New("unknown module in pipeline")
	ErrUnresolvableFunction = errors.New("unknown function in pipeline module")
)

// Params are the key/value pairs from a step's config section.
type Params map[string]string

// Step mutates a record in place. A returned error stops the pipeline for
// that file only. The reserved fields output, warnings and completed only
// accept a []string through [record.Record.Set] and never become columns
// through [record.Record.AddOutput]; both return the misuse as an error,
// which the step should return.
type Step interface {
	Run(ctx context.Context, rec *record.Record, params Params) error
}

// StepFunc adapts a plain function to [Step].
type StepFunc func(ctx context.Context, rec *record.Record, params Params) error

// Run calls f.
func (f StepFunc) Run(ctx context.Context, rec *record.Record, params Params) error {
	return f(ctx, rec, params)
}

// Entry is one catalogue line.
type Entry struct {
	Module   string
	Function string
	Summary  string
}

// Ref returns "module.function".
func (e Entry) Ref() string { return e.Module + "." + e.Function }

type registered struct {
	step    Step
	summary string
}

// Registry maps module and function names to steps. Lookups are safe for
// concurrent use by worker goroutines.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]map[string]registered
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]map[string]registered)}
}

// Register adds step under module.function, replacing any previous entry.
func (r *Registry) Register(module, function, summary string, step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fns, ok := r.modules[module]
	if !ok {
		fns = make(map[string]registered)
		r.modules[module] = fns
	}
	fns[function] = registered{step: step, summary: summary}
}

// Resolve looks up module.function. The error wraps ErrUnresolvableModule or
// ErrUnresolvableFunction.
func (r *Registry) Resolve(module, function string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fns, ok := r.modules[module]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvableModule, module)
	}
	reg, ok := fns[function]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %q", ErrUnresolvableFunction, function, module)
	}
	return reg.step, nil
}

// Catalogue lists every registered step sorted by reference.
func (r *Registry) Catalogue() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entry
	for mod, fns := range r.modules {
		for fn, reg := range fns {
			out = append(out, Entry{Module: mod, Function: fn, Summary: reg.summary})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref() < out[j].Ref() })
	return out
}

// Default returns a registry holding the built-in steps.
func Default() *Registry {
	r := NewRegistry()
	registerFileSteps(r)
	registerImageSteps(r)
	registerMetaSteps(r)
	return r
}
