package meshscheduler

import (
	"github.com/golang/glog"
)

type OptimalParams struct {
	// IncludeIncomplete lets the merge leave workflows unallocated and return
	// the best partial placement when no complete one exists.
	IncludeIncomplete bool `yaml:"include_incomplete"`
	// MaxPlacementsPerWorkflow caps the enumerated chains of one workflow.
	// Zero means no cap.
	MaxPlacementsPerWorkflow int `yaml:"max_placements_per_workflow"`
}

// OptimalAllocator enumerates every feasible chain of every workflow on an
// empty network, then tries every combination of one chain per workflow and
// keeps the best merge. The cost grows combinatorially with the number of
// workflows, so it is meant for small instances.
type OptimalAllocator struct {
	allocatorBase
	params OptimalParams
}

func NewOptimalAllocator(topology *Topology, evaluator Evaluator, routing RoutingMode, params OptimalParams) *OptimalAllocator {
	return &OptimalAllocator{
		allocatorBase: allocatorBase{topology: topology, evaluator: evaluator, routing: routing},
		params:        params,
	}
}

// Allocate returns the best merge found. Without IncludeIncomplete it returns
// nil when the workflows cannot all be placed together.
func (a *OptimalAllocator) Allocate() *Solution {
	workflows := a.topology.Workflows()
	placements := make([][][]*Node, len(workflows))
	scratch := NewSolution(a.topology, a.evaluator, a.routing)
	for i, wf := range workflows {
		placements[i] = a.Placements(scratch, wf)
		glog.V(1).Infof("optimal: %d feasible placements for %s", len(placements[i]), wf)
	}

	m := &merger{
		allocator:  a,
		workflows:  workflows,
		placements: placements,
	}
	m.merge(NewSolution(a.topology, a.evaluator, a.routing), 0)
	if m.best == nil {
		glog.Infof("optimal: no merge of %d workflows is feasible", len(workflows))
		return nil
	}
	glog.Infof("optimal: explored %d merges, best allocates %d workflows value %.4f",
		m.merges, m.bestScore.Allocated, m.bestScore.Value)
	return m.best
}

// Placements lists every complete chain of wf, as node sequences in task
// order, starting from every node of the topology. s is used as scratch space
// and is left unchanged.
func (a *OptimalAllocator) Placements(s *Solution, wf *Workflow) [][]*Node {
	out := make([][]*Node, 0)
	for _, start := range a.topology.Nodes() {
		if a.capped(out) {
			break
		}
		a.enumerate(s, wf.Tasks, nil, start, make([]*Node, 0, len(wf.Tasks)), &out)
	}
	return out
}

func (a *OptimalAllocator) capped(out [][]*Node) bool {
	return a.params.MaxPlacementsPerWorkflow > 0 && len(out) >= a.params.MaxPlacementsPerWorkflow
}

func (a *OptimalAllocator) enumerate(s *Solution, tasks []*Task, prev, cur *Node, chain []*Node, out *[][]*Node) {
	if a.capped(*out) || !s.Map(prev, tasks[0], cur) {
		return
	}
	defer s.Unmap(tasks[0])

	chain = append(chain, cur)
	if len(tasks) == 1 {
		*out = append(*out, append([]*Node(nil), chain...))
		return
	}
	for _, next := range a.nextCandidates(cur) {
		if s.Mappable(cur, tasks[1], next) {
			a.enumerate(s, tasks[1:], cur, next, chain, out)
		}
	}
}

// applyChain maps wf's tasks onto nodes in order. On success it returns a
// function that unmaps them again; on failure nothing stays mapped.
func applyChain(s *Solution, wf *Workflow, nodes []*Node) (undo func(), ok bool) {
	mapped := make([]*Task, 0, len(wf.Tasks))
	undo = func() {
		for i := len(mapped) - 1; i >= 0; i-- {
			s.Unmap(mapped[i])
		}
	}
	var prev *Node
	for i, task := range wf.Tasks {
		if !s.Map(prev, task, nodes[i]) {
			undo()
			return nil, false
		}
		mapped = append(mapped, task)
		prev = nodes[i]
	}
	return undo, true
}

type merger struct {
	allocator  *OptimalAllocator
	workflows  []*Workflow
	placements [][][]*Node
	best       *Solution
	bestScore  Score
	merges     int
}

func (m *merger) merge(s *Solution, idx int) {
	if m.best != nil && s.AllocatedCount()+len(m.workflows)-idx < m.bestScore.Allocated {
		return
	}
	if idx == len(m.workflows) {
		m.merges++
		if !m.allocator.params.IncludeIncomplete && s.AllocatedCount() < len(m.workflows) {
			return
		}
		score := s.Evaluate()
		if m.best == nil || Better(m.allocator.evaluator, score, m.bestScore) {
			m.best = s.Clone()
			m.bestScore = score
		}
		return
	}

	wf := m.workflows[idx]
	for _, nodes := range m.placements[idx] {
		undo, ok := applyChain(s, wf, nodes)
		if !ok {
			continue
		}
		m.merge(s, idx+1)
		undo()
	}
	if m.allocator.params.IncludeIncomplete {
		m.merge(s, idx+1)
	}
}
