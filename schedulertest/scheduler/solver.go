package meshscheduler

import (
	"github.com/golang/glog"
)

type SamplingParams struct {
	Samples int `yaml:"samples"`
}

func DefaultSamplingParams() SamplingParams {
	return SamplingParams{Samples: 1000}
}

// SamplingSolver calls its allocator a fixed number of times and keeps the
// best result. It is only useful with a randomized allocator.
type SamplingSolver struct {
	allocator Allocator
	evaluator Evaluator
	params    SamplingParams
	metrics   *Metrics
	name      string
}

func NewSamplingSolver(allocator Allocator, evaluator Evaluator, params SamplingParams, metrics *Metrics) *SamplingSolver {
	if params.Samples <= 0 {
		params.Samples = 1
	}
	return &SamplingSolver{allocator: allocator, evaluator: evaluator, params: params, metrics: metrics, name: "sampling"}
}

// NewOptimalSolver returns a solver that runs an OptimalAllocator once.
func NewOptimalSolver(allocator *OptimalAllocator, evaluator Evaluator, metrics *Metrics) *SamplingSolver {
	return &SamplingSolver{allocator: allocator, evaluator: evaluator, params: SamplingParams{Samples: 1}, metrics: metrics, name: "optimal"}
}

func (s *SamplingSolver) Solve() *Solution {
	solutions := make([]*Solution, 0, s.params.Samples)
	for i := 0; i < s.params.Samples; i++ {
		s.metrics.iteration(s.name)
		if sol := s.allocator.Allocate(); sol != nil {
			solutions = append(solutions, sol)
		}
	}
	s.metrics.candidates(s.name, len(solutions))
	best := GetBest(s.evaluator, solutions)
	if best == nil {
		glog.Infof("%s: no feasible solution found", s.name)
		return nil
	}
	glog.Infof("%s: best of %d solutions is %s %v", s.name, len(solutions), best.ID, best)
	s.metrics.observeBest(s.name, best)
	return best
}
