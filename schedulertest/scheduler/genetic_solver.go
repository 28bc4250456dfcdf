package meshscheduler

import (
	"container/heap"
	"math/rand"

	"github.com/golang/glog"
)

type GeneticParams struct {
	PopulationSize      int     `yaml:"population_size"`
	Iterations          int     `yaml:"iterations"`
	MutationProbability float64 `yaml:"mutation_probability"`
}

func DefaultGeneticParams() GeneticParams {
	return GeneticParams{PopulationSize: 50, Iterations: 1000, MutationProbability: 0.1}
}

type member struct {
	solution *Solution
	score    Score
}

// population is a heap with its worst member at index 0.
type population struct {
	members   []member
	evaluator Evaluator
}

func (p *population) Len() int { return len(p.members) }
func (p *population) Less(i, j int) bool {
	return Better(p.evaluator, p.members[j].score, p.members[i].score)
}
func (p *population) Swap(i, j int) { p.members[i], p.members[j] = p.members[j], p.members[i] }
func (p *population) Push(x any)    { p.members = append(p.members, x.(member)) }
func (p *population) Pop() any {
	last := p.members[len(p.members)-1]
	p.members = p.members[:len(p.members)-1]
	return last
}

func (p *population) solutions() []*Solution {
	out := make([]*Solution, 0, len(p.members))
	for _, m := range p.members {
		out = append(out, m.solution)
	}
	return out
}

// GeneticSolver evolves a population of allocations with single point
// crossover over the workflow list and random retargeting mutations.
type GeneticSolver struct {
	allocator Allocator
	evaluator Evaluator
	params    GeneticParams
	rng       *rand.Rand
	metrics   *Metrics
}

func NewGeneticSolver(allocator Allocator, evaluator Evaluator, params GeneticParams, rng *rand.Rand, metrics *Metrics) *GeneticSolver {
	return &GeneticSolver{allocator: allocator, evaluator: evaluator, params: params, rng: rng, metrics: metrics}
}

func (g *GeneticSolver) Solve() *Solution {
	pop := &population{evaluator: g.evaluator}
	for i := 0; i < g.params.PopulationSize; i++ {
		if s := g.allocator.Allocate(); s != nil {
			pop.members = append(pop.members, member{solution: s, score: s.Evaluate()})
		}
	}
	heap.Init(pop)
	glog.Infof("genetic: initial population of %d", pop.Len())
	if pop.Len() < 2 {
		best := GetBest(g.evaluator, pop.solutions())
		g.metrics.observeBest("genetic", best)
		return best
	}

	for iter := 0; iter < g.params.Iterations; iter++ {
		g.metrics.iteration("genetic")
		i := g.rng.Intn(pop.Len())
		j := g.rng.Intn(pop.Len() - 1)
		if j >= i {
			j++
		}
		p1, p2 := pop.members[i], pop.members[j]

		child := g.crossover(p1.solution, p2.solution)
		if child == nil {
			g.metrics.crossoverAborted()
		} else {
			g.metrics.candidates("genetic", 1)
			score := child.Evaluate()
			if Better(g.evaluator, score, p1.score) || Better(g.evaluator, score, p2.score) {
				glog.V(2).Infof("genetic: iteration %d child %v replaces %v", iter, score, pop.members[0].score)
				pop.members[0] = member{solution: child, score: score}
				heap.Fix(pop, 0)
				g.metrics.replacement()
				g.metrics.transition("genetic")
			}
		}

		if g.rng.Float64() < g.params.MutationProbability {
			k := g.rng.Intn(pop.Len())
			mutated := g.mutate(pop.members[k].solution)
			pop.members[k] = member{solution: mutated, score: mutated.Evaluate()}
			heap.Fix(pop, k)
			g.metrics.mutation()
		}
	}

	best := GetBest(g.evaluator, pop.solutions())
	glog.Infof("genetic: best solution %s %v", best.ID, best)
	g.metrics.observeBest("genetic", best)
	return best
}

func candidatesAfter(s *Solution, prev *Node) []*Node {
	if prev == nil || s.Routing() == MultiHop {
		return s.Topology().Nodes()
	}
	return prev.Neighbors
}

func (g *GeneticSolver) pick(nodes []*Node) *Node {
	return nodes[g.rng.Intn(len(nodes))]
}

// crossover takes the workflows before a random cut from p1 and the rest from
// p2.
func (g *GeneticSolver) crossover(p1, p2 *Solution) *Solution {
	return g.crossoverAt(p1, p2, g.rng.Intn(len(p1.Topology().Workflows())+1))
}

// crossoverAt merges the workflows of p1 before cut with those of p2 from cut
// on. A parent node that no longer fits is replaced by a random feasible one;
// it returns nil when there is none.
func (g *GeneticSolver) crossoverAt(p1, p2 *Solution, cut int) *Solution {
	t := p1.Topology()
	workflows := t.Workflows()
	child := NewSolution(t, p1.Evaluator(), p1.Routing())
	for w, wf := range workflows {
		parent := p1
		if w >= cut {
			parent = p2
		}
		if !parent.IsAllocated(wf) {
			continue
		}
		var prev *Node
		for _, task := range wf.Tasks {
			target, _ := parent.NodeOf(task)
			if !child.Map(prev, task, target) {
				feasible := make([]*Node, 0)
				for _, c := range candidatesAfter(child, prev) {
					if child.Mappable(prev, task, c) {
						feasible = append(feasible, c)
					}
				}
				if len(feasible) == 0 {
					glog.V(2).Infof("genetic: crossover aborted at %s", task)
					return nil
				}
				target = g.pick(feasible)
				if !child.Map(prev, task, target) {
					return nil
				}
			}
			prev = target
		}
	}
	return child
}

func connected(s *Solution, a, b *Node) bool {
	if s.Routing() == MultiHop {
		return s.Topology().Reachable(a, b)
	}
	return a.IsNeighbor(b)
}

// mutate returns a copy of s in which every non-first task of each allocated
// workflow is moved to a random node that still connects its predecessor and
// its successor. Tasks without such a node stay where they are.
func (g *GeneticSolver) mutate(s *Solution) *Solution {
	m := s.Clone()
	for _, wf := range m.Topology().Workflows() {
		if !m.IsAllocated(wf) {
			continue
		}
		for i := 1; i < len(wf.Tasks); i++ {
			task := wf.Tasks[i]
			prev, _ := m.NodeOf(wf.Tasks[i-1])
			cur, _ := m.NodeOf(task)
			var succNode *Node
			if i+1 < len(wf.Tasks) {
				succNode, _ = m.NodeOf(wf.Tasks[i+1])
			}

			feasible := make([]*Node, 0)
			for _, c := range candidatesAfter(m, prev) {
				if c == cur || !m.Mappable(prev, task, c) {
					continue
				}
				if succNode != nil && !connected(m, c, succNode) {
					continue
				}
				feasible = append(feasible, c)
			}
			if len(feasible) == 0 {
				continue
			}
			m.Retarget(prev, task, g.pick(feasible), m.Routing())
		}
	}
	return m
}
