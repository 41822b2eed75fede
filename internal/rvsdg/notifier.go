// Notifier events: a list of subscriber handles held by the Graph.
// Every mutation fires its event synchronously, before the mutating
// call returns. Re-entrant mutation from within a notifier is a
// programmer error and is not guarded against here beyond
// documentation.
package rvsdg

// Subscriber receives synchronous notification of graph mutations.
// Implementations should embed NopSubscriber and override only the
// methods they care about, the same way net/http handler middleware
// embeds a default implementation.
type Subscriber interface {
	OnRegionCreate(*Region)
	OnRegionDestroy(*Region)
	OnNodeCreate(*Node)
	OnNodeDestroy(*Node)
	OnNodeDepthChange(n *Node, oldDepth int)
	OnInputCreate(*Input)
	OnInputChange(in *Input, oldOrigin, newOrigin *Output)
	OnInputDestroy(*Input)
	OnOutputCreate(*Output)
	OnOutputDestroy(*Output)
}

// NopSubscriber is a Subscriber with every method a no-op, embedded by
// subscribers (such as the traversers) that only care
// about a subset of events.
type NopSubscriber struct{}

func (NopSubscriber) OnRegionCreate(*Region)                        {}
func (NopSubscriber) OnRegionDestroy(*Region)                       {}
func (NopSubscriber) OnNodeCreate(*Node)                            {}
func (NopSubscriber) OnNodeDestroy(*Node)                           {}
func (NopSubscriber) OnNodeDepthChange(n *Node, oldDepth int)       {}
func (NopSubscriber) OnInputCreate(*Input)                          {}
func (NopSubscriber) OnInputChange(in *Input, old, new *Output)     {}
func (NopSubscriber) OnInputDestroy(*Input)                         {}
func (NopSubscriber) OnOutputCreate(*Output)                        {}
func (NopSubscriber) OnOutputDestroy(*Output)                       {}

// Subscription is a scoped registration: calling Close deregisters the
// subscriber, tying its lifetime to whatever scope holds the
// Subscription.
type Subscription struct {
	graph *Graph
	sub   Subscriber
	live  bool
}

// Close deregisters the subscriber. Idempotent.
func (s *Subscription) Close() {
	if !s.live {
		return
	}
	s.live = false
	for i, sub := range s.graph.subscribers {
		if sub == s.sub {
			s.graph.subscribers = append(s.graph.subscribers[:i], s.graph.subscribers[i+1:]...)
			return
		}
	}
}

// Subscribe registers a Subscriber for every mutation on this graph.
// Subscribers that outlive the graph are a bug; callers
// should Close their Subscription no later than the graph itself goes
// out of scope.
func (g *Graph) Subscribe(s Subscriber) *Subscription {
	g.subscribers = append(g.subscribers, s)
	return &Subscription{graph: g, sub: s, live: true}
}

func (g *Graph) notifyRegionCreate(r *Region) {
	for _, s := range g.subscribers {
		s.OnRegionCreate(r)
	}
}
func (g *Graph) notifyRegionDestroy(r *Region) {
	for _, s := range g.subscribers {
		s.OnRegionDestroy(r)
	}
}
func (g *Graph) notifyNodeCreate(n *Node) {
	for _, s := range g.subscribers {
		s.OnNodeCreate(n)
	}
}
func (g *Graph) notifyNodeDestroy(n *Node) {
	for _, s := range g.subscribers {
		s.OnNodeDestroy(n)
	}
}
func (g *Graph) notifyNodeDepthChange(n *Node, old int) {
	for _, s := range g.subscribers {
		s.OnNodeDepthChange(n, old)
	}
}
func (g *Graph) notifyInputCreate(in *Input) {
	for _, s := range g.subscribers {
		s.OnInputCreate(in)
	}
}
func (g *Graph) notifyInputChange(in *Input, old, new *Output) {
	for _, s := range g.subscribers {
		s.OnInputChange(in, old, new)
	}
}
func (g *Graph) notifyInputDestroy(in *Input) {
	for _, s := range g.subscribers {
		s.OnInputDestroy(in)
	}
}
func (g *Graph) notifyOutputCreate(o *Output) {
	for _, s := range g.subscribers {
		s.OnOutputCreate(o)
	}
}
func (g *Graph) notifyOutputDestroy(o *Output) {
	for _, s := range g.subscribers {
		s.OnOutputDestroy(o)
	}
}
