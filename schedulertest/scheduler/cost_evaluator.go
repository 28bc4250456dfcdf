package meshscheduler

import (
	"github.com/golang/glog"
)

type CostParams struct {
	// Scale multiplies the summed squared utilization.
	Scale float64
	// Normalize divides the total by the number of loaded nodes.
	Normalize bool
}

func DefaultCostParams() CostParams {
	return CostParams{Scale: 1.0}
}

// CostEvaluator sums, over every node, the squared processing and bandwidth
// utilization ratios. Lower is better.
type CostEvaluator struct {
	params CostParams
}

func NewCostEvaluator(params CostParams) *CostEvaluator {
	if params.Scale == 0 {
		params.Scale = 1.0
	}
	return &CostEvaluator{params: params}
}

func (ev *CostEvaluator) Name() string {
	return "cost"
}

func (ev *CostEvaluator) Maximize() bool {
	return false
}

func (ev *CostEvaluator) Cost(value float64) float64 {
	return value
}

func utilization(capacity, available float64) float64 {
	if capacity <= 0 {
		return 0
	}
	return (capacity - available) / capacity
}

func (ev *CostEvaluator) Evaluate(s *Solution) float64 {
	total := 0.0
	loaded := 0
	for _, n := range s.Topology().Nodes() {
		if s.NumTasksOn(n) == 0 {
			continue
		}
		loaded++
		available := s.Available(n)
		up := utilization(n.Capacity[ProcessingPower], available[ProcessingPower])
		ub := utilization(n.Capacity[Bandwidth], available[Bandwidth])
		total += up*up + ub*ub
	}
	total *= ev.params.Scale
	if ev.params.Normalize {
		if loaded == 0 {
			glog.V(2).Infof("solution %s has no loaded nodes, cost is 0", s.ID)
			return 0
		}
		total /= float64(loaded)
	}
	return total
}
