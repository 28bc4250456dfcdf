package meshscheduler

// Score orders solutions: more fully allocated workflows always wins, the
// evaluator-specific Value breaks ties.
type Score struct {
	Allocated int
	Value     float64
}

// Evaluator scores a solution. Evaluate must be a pure function of the
// solution's current placement.
type Evaluator interface {
	Name() string
	Evaluate(s *Solution) float64
	// Maximize reports whether a larger Value is better.
	Maximize() bool
	// Cost maps a Value onto a lower-is-better scale.
	Cost(value float64) float64
}

// Better reports whether a is strictly better than b under ev.
func Better(ev Evaluator, a, b Score) bool {
	if a.Allocated != b.Allocated {
		return a.Allocated > b.Allocated
	}
	if ev == nil {
		return false
	}
	if ev.Maximize() {
		return a.Value > b.Value
	}
	return a.Value < b.Value
}

// GetBest returns the best of the candidates under ev, or nil when there is
// none. Ties go to the earliest candidate.
func GetBest(ev Evaluator, candidates []*Solution) *Solution {
	var best *Solution
	var bestScore Score
	for _, c := range candidates {
		if c == nil {
			continue
		}
		score := c.Evaluate()
		if best == nil || Better(ev, score, bestScore) {
			best, bestScore = c, score
		}
	}
	return best
}

// DistanceEvaluator sums the distance between the nodes of consecutive tasks
// of every allocated workflow. Lower is better.
type DistanceEvaluator struct{}

func NewDistanceEvaluator() *DistanceEvaluator {
	return &DistanceEvaluator{}
}

func (ev *DistanceEvaluator) Name() string {
	return "distance"
}

func (ev *DistanceEvaluator) Maximize() bool {
	return false
}

func (ev *DistanceEvaluator) Cost(value float64) float64 {
	return value
}

func (ev *DistanceEvaluator) Evaluate(s *Solution) float64 {
	sum := 0.0
	t := s.Topology()
	for _, wf := range t.Workflows() {
		if !s.IsAllocated(wf) {
			continue
		}
		nodes := s.AssignedNodes(wf)
		for i := 1; i < len(nodes); i++ {
			sum += t.Distance(nodes[i-1], nodes[i])
		}
	}
	return sum
}
