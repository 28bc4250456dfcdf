package meshscheduler

import (
	"math"
	"math/rand"

	"github.com/golang/glog"
	"k8s.io/apimachinery/pkg/util/sets"
)

type MarkovParams struct {
	Iterations int     `yaml:"iterations"`
	Beta       float64 `yaml:"beta"`
	// Restarts is the number of independent chains; the best final state wins.
	Restarts int `yaml:"restarts"`
}

func DefaultMarkovParams() MarkovParams {
	return MarkovParams{Iterations: 1000, Beta: 10, Restarts: 10}
}

// MarkovSolver runs a Markov chain over single-task migrations. Every
// iteration proposes one migration per task position and moves to one of the
// proposals with probability proportional to exp(-beta/2 * cost increase).
type MarkovSolver struct {
	allocator Allocator
	evaluator Evaluator
	params    MarkovParams
	rng       *rand.Rand
	metrics   *Metrics
}

func NewMarkovSolver(allocator Allocator, evaluator Evaluator, params MarkovParams, rng *rand.Rand, metrics *Metrics) *MarkovSolver {
	if params.Restarts <= 0 {
		params.Restarts = 1
	}
	return &MarkovSolver{allocator: allocator, evaluator: evaluator, params: params, rng: rng, metrics: metrics}
}

func (ms *MarkovSolver) Solve() *Solution {
	results := make([]*Solution, 0, ms.params.Restarts)
	for r := 0; r < ms.params.Restarts; r++ {
		initial := ms.allocator.Allocate()
		if initial == nil {
			continue
		}
		final := ms.Run(initial)
		glog.V(1).Infof("markov: chain %d finished at %v", r, final)
		results = append(results, final)
	}
	best := GetBest(ms.evaluator, results)
	if best != nil {
		glog.Infof("markov: best of %d chains is %s %v", len(results), best.ID, best)
		ms.metrics.observeBest("markov", best)
	}
	return best
}

// Run advances one chain from current for the configured number of
// iterations and returns the final state. current itself is never modified.
func (ms *MarkovSolver) Run(current *Solution) *Solution {
	for iter := 0; iter < ms.params.Iterations; iter++ {
		ms.metrics.iteration("markov")
		candidates := ms.proposals(current)
		ms.metrics.candidates("markov", len(candidates))
		if len(candidates) == 0 {
			glog.V(2).Infof("markov: iteration %d has no candidates", iter)
			continue
		}
		next := ms.selectNext(current, candidates)
		if next != current {
			ms.metrics.transition("markov")
			current = next
		}
		glog.V(3).Infof("markov: iteration %d at %v", iter, current)
	}
	return current
}

func nodeIds(nodes []*Node) sets.Set[int] {
	ids := sets.New[int]()
	for _, n := range nodes {
		ids.Insert(n.NodeId)
	}
	return ids
}

// proposals migrates every non-first task of every allocated workflow to a
// random feasible node, each on its own clone of current.
func (ms *MarkovSolver) proposals(current *Solution) []*Solution {
	t := current.Topology()
	all := nodeIds(t.Nodes())
	candidates := make([]*Solution, 0)
	for _, wf := range t.Workflows() {
		if !current.IsAllocated(wf) {
			continue
		}
		used := nodeIds(current.AssignedNodes(wf))
		for i := 1; i < len(wf.Tasks); i++ {
			task := wf.Tasks[i]
			prev, _ := current.NodeOf(wf.Tasks[i-1])
			cur, _ := current.NodeOf(task)

			ids := all.Difference(used)
			if i+1 < len(wf.Tasks) {
				succNode, _ := current.NodeOf(wf.Tasks[i+1])
				ids = ids.Intersection(nodeIds(succNode.Neighbors))
			}
			ids.Delete(cur.NodeId)

			feasible := make([]*Node, 0, ids.Len())
			for _, id := range sets.List(ids) {
				n, _ := t.Node(id)
				if current.MappableWithRouting(prev, task, n, MultiHop) {
					feasible = append(feasible, n)
				}
			}
			if len(feasible) == 0 {
				continue
			}
			target := feasible[ms.rng.Intn(len(feasible))]
			c := current.Clone()
			if c.Retarget(prev, task, target, MultiHop) {
				candidates = append(candidates, c)
			}
		}
	}
	return candidates
}

// transitionRate is exp(-beta/2 * (cost(to) - cost(from))).
func (ms *MarkovSolver) transitionRate(fromCost float64, to *Solution) float64 {
	toCost := ms.evaluator.Cost(to.Evaluate().Value)
	return math.Exp(-0.5 * ms.params.Beta * (toCost - fromCost))
}

// selectNext draws a candidate with probability proportional to its transition
// rate. The exponents are shifted by their maximum so the largest weight is 1
// and the draw survives rates that underflow or overflow.
func (ms *MarkovSolver) selectNext(current *Solution, candidates []*Solution) *Solution {
	fromCost := ms.evaluator.Cost(current.Evaluate().Value)
	exponents := make([]float64, len(candidates))
	top := math.Inf(-1)
	for i, c := range candidates {
		toCost := ms.evaluator.Cost(c.Evaluate().Value)
		exponents[i] = -0.5 * ms.params.Beta * (toCost - fromCost)
		top = math.Max(top, exponents[i])
	}
	weights := make([]float64, len(candidates))
	total := 0.0
	for i := range candidates {
		weights[i] = math.Exp(exponents[i] - top)
		total += weights[i]
	}
	threshold := ms.rng.Float64() * total
	sum := 0.0
	for i, c := range candidates {
		sum += weights[i]
		if threshold < sum {
			return c
		}
	}
	return candidates[len(candidates)-1]
}
