package ir

// This file contains the optimization pipeline.
// Passes run in order over the whole program after the IR has been built
// from text and before it is printed back.

import (
	"fmt"
	"sort"

	"github.com/tliron/commonlog"
)

// logger is resolved on use so that a backend configured by main after
// package initialization is picked up
func logger() commonlog.Logger {
	return commonlog.GetLogger("constfold.pipeline")
}

// OptimizationPass represents a single optimization transformation
type OptimizationPass interface {
	Name() string
	Apply(program *Program) bool // Returns true if changes were made
	Description() string
}

// OptimizationPipeline manages the sequence of optimization passes
type OptimizationPipeline struct {
	passes []OptimizationPass
}

// passFactories maps configuration names to pass constructors
var passFactories = map[string]func() OptimizationPass{
	"fold-constants": func() OptimizationPass { return &FoldConstants{} },
	"verify":         func() OptimizationPass { return &VerifyPass{} },
}

// PassNames returns the names accepted by NewPipelineFromNames
func PassNames() []string {
	names := make([]string, 0, len(passFactories))
	for name := range passFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewOptimizationPipeline creates a new optimization pipeline with default passes
func NewOptimizationPipeline() *OptimizationPipeline {
	pipeline := &OptimizationPipeline{}
	pipeline.AddPass(&FoldConstants{})
	return pipeline
}

// NewPipelineFromNames builds a pipeline from pass names in the given order
func NewPipelineFromNames(names []string) (*OptimizationPipeline, error) {
	pipeline := &OptimizationPipeline{}
	for _, name := range names {
		factory, ok := passFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown pass %q (available: %v)", name, PassNames())
		}
		pipeline.AddPass(factory())
	}
	return pipeline, nil
}

// AddPass adds an optimization pass to the pipeline
func (p *OptimizationPipeline) AddPass(pass OptimizationPass) {
	p.passes = append(p.passes, pass)
}

// Passes returns the passes in execution order
func (p *OptimizationPipeline) Passes() []OptimizationPass {
	return p.passes
}

// Run executes all optimization passes on the IR program and reports whether
// any of them changed it.
func (p *OptimizationPipeline) Run(program *Program) bool {
	log := logger()
	log.Infof("running %d optimization passes", len(p.passes))

	changed := false
	for _, pass := range p.passes {
		log.Debug("running pass", "pass", pass.Name(), "description", pass.Description())
		if pass.Apply(program) {
			log.Infof("%s: applied optimizations", pass.Name())
			changed = true
		} else {
			log.Infof("%s: no changes needed", pass.Name())
		}
	}

	return changed
}

// Rewrites collects the rewrite logs of every FoldConstants pass in the pipeline
func (p *OptimizationPipeline) Rewrites() []Rewrite {
	var rewrites []Rewrite
	for _, pass := range p.passes {
		if fc, ok := pass.(*FoldConstants); ok {
			rewrites = append(rewrites, fc.Rewrites()...)
		}
	}
	return rewrites
}

// Err returns the first verification failure recorded by a VerifyPass
func (p *OptimizationPipeline) Err() error {
	for _, pass := range p.passes {
		if vp, ok := pass.(*VerifyPass); ok && vp.Err != nil {
			return vp.Err
		}
	}
	return nil
}
