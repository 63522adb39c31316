// Package graph implements the frame graph: a small, declarative DAG
// over stable pass names. Today the graph is recorded, validated, and
// used for labeling and sequencing; resources are still transitioned
// explicitly by each pass's recorder.
package graph

import "fmt"

// QueueAffinity is the GPU queue a pass is recorded on.
type QueueAffinity int

const (
	Graphics QueueAffinity = iota
	Compute
)

func (q QueueAffinity) String() string {
	if q == Compute {
		return "Compute"
	}
	return "Graphics"
}

// PassName is a stable identifier for one named pass.
type PassName string

const (
	PassShadow       PassName = "shadow"
	PassGISurface    PassName = "gi_surface"
	PassGIInject     PassName = "gi_inject"
	PassGIPropagate  PassName = "gi_propagate"
	PassPrepass      PassName = "prepass"
	PassSSAO         PassName = "ssao"
	PassSSAOBlur     PassName = "ssao_blur"
	PassMain         PassName = "main"
	PassAutoExposure PassName = "auto_exposure"
	PassSunShafts    PassName = "sun_shafts"
	PassPost         PassName = "post"
	PassImgui        PassName = "imgui"
	PassPresent      PassName = "present"
)

// Pass is one node of the graph.
type Pass struct {
	Name     PassName
	Queue    QueueAffinity
	DependsOn []PassName
}

// edge is a directed dependency: From must be sequenced before To.
type edge struct {
	From, To PassName
}

// fixedPasses is the pipeline's fixed pass table.
var fixedPasses = []Pass{
	{Name: PassShadow, Queue: Graphics},
	{Name: PassGISurface, Queue: Compute},
	{Name: PassGIInject, Queue: Compute, DependsOn: []PassName{PassGISurface}},
	{Name: PassGIPropagate, Queue: Compute, DependsOn: []PassName{PassGIInject}},
	{Name: PassPrepass, Queue: Graphics, DependsOn: []PassName{PassShadow}},
	{Name: PassSSAO, Queue: Graphics, DependsOn: []PassName{PassPrepass}},
	{Name: PassSSAOBlur, Queue: Graphics, DependsOn: []PassName{PassSSAO}},
	{Name: PassMain, Queue: Graphics, DependsOn: []PassName{PassSSAOBlur, PassGIPropagate}},
	{Name: PassAutoExposure, Queue: Compute, DependsOn: []PassName{PassMain}},
	{Name: PassSunShafts, Queue: Compute, DependsOn: []PassName{PassMain}},
	{Name: PassPost, Queue: Graphics, DependsOn: []PassName{PassAutoExposure, PassSunShafts}},
	{Name: PassImgui, Queue: Graphics, DependsOn: []PassName{PassPost}},
	{Name: PassPresent, Queue: Graphics, DependsOn: []PassName{PassImgui}},
}

// Graph is a validated, ordered view over fixedPasses.
type Graph struct {
	passes map[PassName]Pass
	order  []PassName
}

// New builds and validates the frame graph: checks every dependency name
// resolves to a known pass and that the dependency set is acyclic, then
// computes one valid topological order.
func New() (*Graph, error) {
	passes := make(map[PassName]Pass, len(fixedPasses))
	for _, p := range fixedPasses {
		passes[p.Name] = p
	}
	for _, p := range fixedPasses {
		for _, dep := range p.DependsOn {
			if _, ok := passes[dep]; !ok {
				return nil, fmt.Errorf("graph: pass %q depends on unknown pass %q", p.Name, dep)
			}
		}
	}

	order, err := topoSort(passes)
	if err != nil {
		return nil, err
	}
	return &Graph{passes: passes, order: order}, nil
}

func topoSort(passes map[PassName]Pass) ([]PassName, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[PassName]int, len(passes))
	var order []PassName

	var visit func(name PassName) error
	visit = func(name PassName) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("graph: cycle detected at pass %q", name)
		}
		color[name] = gray
		for _, dep := range passes[name].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[name] = black
		order = append(order, name)
		return nil
	}

	// Iterate fixedPasses (not the map) for deterministic output given a
	// fixed input table.
	for _, p := range fixedPasses {
		if err := visit(p.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Order returns passes in an order that respects every dependency edge.
func (g *Graph) Order() []PassName {
	out := make([]PassName, len(g.order))
	copy(out, g.order)
	return out
}

// Pass looks up a pass's declared queue affinity and dependencies.
func (g *Graph) Pass(name PassName) (Pass, bool) {
	p, ok := g.passes[name]
	return p, ok
}

// QueueOf reports the queue affinity of a named pass.
func (g *Graph) QueueOf(name PassName) QueueAffinity {
	return g.passes[name].Queue
}
