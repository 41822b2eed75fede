// Package pipeline implements the optimization pipeline driver: one
// normalization, inlining, inversion, dead-node-elimination, and
// common-subexpression-elimination sweep per pipeconfig.Config.Repeat
// round, reporting a stats.PassRecord per pass through a pluggable
// stats.Collector. The driver is a single call stack; each pass runs to
// completion before the next starts.
package pipeline

import (
	"time"

	"rvsdgc/internal/normalform"
	"rvsdgc/internal/opt"
	"rvsdgc/internal/pipeconfig"
	"rvsdgc/internal/rvsdg"
	"rvsdgc/internal/stats"
)

// Pipeline drives the optimization passes named in pipeconfig.Config over
// a single rvsdg.Graph, reporting progress through a stats.Collector.
type Pipeline struct {
	Config    pipeconfig.Config
	Collector stats.Collector
}

// New creates a Pipeline with the given configuration. A nil collector is
// replaced with an empty stats.MultiCollector, a no-op sink.
func New(cfg pipeconfig.Config, collector stats.Collector) *Pipeline {
	if collector == nil {
		collector = stats.MultiCollector(nil)
	}
	return &Pipeline{Config: cfg, Collector: collector}
}

// Run registers the configured normal forms and inlining rule on g (rule
// registration happens once, outside the repeat loop; re-registering on
// every round would fire the same rule object twice per node), then
// repeats normalize -> invert -> dead-node-elimination -> common-
// subexpression-elimination over region, Config.Repeat times.
func (p *Pipeline) Run(g *rvsdg.Graph, region *rvsdg.Region) error {
	normalform.RegisterAll(g, p.Config.NormalForms)
	if p.Config.Inline {
		opt.RegisterInlining(g)
	}

	repeat := p.Config.Repeat
	if repeat < 1 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		if err := p.runPass(g, region, "normalize", func() {
			g.NormalizeRegion(region)
		}); err != nil {
			return err
		}
		if p.Config.Invert {
			if err := p.runPass(g, region, "invert", func() {
				opt.InvertLoops(g, region)
			}); err != nil {
				return err
			}
		}
		if p.Config.DeadNodeElimination {
			if err := p.runPass(g, region, "dce", func() {
				opt.DeadNodeElimination(region)
			}); err != nil {
				return err
			}
		}
		if p.Config.CommonSubexpressionElimination {
			if err := p.runPass(g, region, "cse", func() {
				opt.CommonSubexpressionElimination(region)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// runPass times a single pass, reporting its before/after node count
// through the Collector.
func (p *Pipeline) runPass(g *rvsdg.Graph, region *rvsdg.Region, name string, pass func()) error {
	pre := countNodes(region)
	start := time.Now()
	pass()
	elapsed := time.Since(start)
	post := countNodes(region)
	return p.Collector.Record(stats.PassRecord{
		RunID:     g.RunID,
		PassID:    name,
		PreNodes:  pre,
		PostNodes: post,
		Elapsed:   elapsed,
	})
}

// countNodes returns the total node count reachable from region,
// recursing into every sub-region; the same depth-first shape DCE and
// CSE sweep with.
func countNodes(region *rvsdg.Region) int {
	n := 0
	for _, node := range region.Nodes() {
		n++
		for _, sub := range node.Subregions() {
			n += countNodes(sub)
		}
	}
	return n
}
