package meshscheduler

import (
	"math/rand"

	"github.com/golang/glog"
)

type allocatorBase struct {
	topology  *Topology
	evaluator Evaluator
	routing   RoutingMode
}

// nextCandidates lists the nodes the task after cur may be placed on.
func (a *allocatorBase) nextCandidates(cur *Node) []*Node {
	if a.routing == MultiHop {
		return a.topology.Nodes()
	}
	return cur.Neighbors
}

// placeChain maps tasks[0] on cur and extends the chain depth first. On
// failure every mapping made by this call is undone before returning.
func (a *allocatorBase) placeChain(s *Solution, tasks []*Task, prev, cur *Node, order func([]*Node) []*Node) (placed bool) {
	if !s.Map(prev, tasks[0], cur) {
		return false
	}
	defer func() {
		if !placed {
			s.Unmap(tasks[0])
		}
	}()
	if len(tasks) == 1 {
		return true
	}
	for _, next := range order(a.nextCandidates(cur)) {
		if s.Mappable(cur, tasks[1], next) && a.placeChain(s, tasks[1:], cur, next, order) {
			return true
		}
	}
	return false
}

func inOrder(nodes []*Node) []*Node {
	return nodes
}

// GreedyAllocator places every workflow on the first feasible chain found in
// topology order: workflows, start nodes and neighbors as listed.
type GreedyAllocator struct {
	allocatorBase
}

func NewGreedyAllocator(topology *Topology, evaluator Evaluator, routing RoutingMode) *GreedyAllocator {
	return &GreedyAllocator{allocatorBase{topology: topology, evaluator: evaluator, routing: routing}}
}

func (a *GreedyAllocator) Allocate() *Solution {
	s := NewSolution(a.topology, a.evaluator, a.routing)
	for _, wf := range a.topology.Workflows() {
		placed := false
		for _, start := range a.topology.Nodes() {
			if a.placeChain(s, wf.Tasks, nil, start, inOrder) {
				placed = true
				break
			}
		}
		if !placed {
			glog.V(1).Infof("greedy: no feasible placement for %s", wf)
		}
	}
	glog.V(1).Infof("greedy: allocated %d of %d workflows", s.AllocatedCount(), len(a.topology.Workflows()))
	return s
}

// RandomAllocator runs the same depth first search as GreedyAllocator but
// shuffles the start nodes and the neighbors tried at every step.
type RandomAllocator struct {
	allocatorBase
	rng *rand.Rand
}

func NewRandomAllocator(topology *Topology, evaluator Evaluator, routing RoutingMode, rng *rand.Rand) *RandomAllocator {
	return &RandomAllocator{
		allocatorBase: allocatorBase{topology: topology, evaluator: evaluator, routing: routing},
		rng:           rng,
	}
}

func (a *RandomAllocator) shuffled(nodes []*Node) []*Node {
	out := append([]*Node(nil), nodes...)
	a.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func (a *RandomAllocator) Allocate() *Solution {
	s := NewSolution(a.topology, a.evaluator, a.routing)
	for _, wf := range a.topology.Workflows() {
		for _, start := range a.shuffled(a.topology.Nodes()) {
			if a.placeChain(s, wf.Tasks, nil, start, a.shuffled) {
				break
			}
		}
	}
	glog.V(2).Infof("random: allocated %d of %d workflows", s.AllocatedCount(), len(a.topology.Workflows()))
	return s
}
