package meshscheduler

import (
	"github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
)

// EnergyModel maps a link distance to the energy spent per unit of
// transmitted demand.
type EnergyModel string

const (
	LinearEnergy  EnergyModel = "linear"
	SquaredEnergy EnergyModel = "squared"
	LteEnergy     EnergyModel = "lte"
)

// lteUplinkSteps is a measured LTE uplink transmit power curve: distance
// upper bound -> power. Links beyond the last bound transmit at full power.
var lteUplinkSteps = []struct {
	maxDistance float64
	power       float64
}{
	{10, 0.50},
	{20, 0.80},
	{40, 1.20},
	{60, 1.60},
	{80, 2.00},
	{100, 2.30},
}

const lteMaxPower = 2.50

func (m EnergyModel) Power(distance float64) float64 {
	switch m {
	case SquaredEnergy:
		return distance * distance
	case LteEnergy:
		for _, step := range lteUplinkSteps {
			if distance < step.maxDistance {
				return step.power
			}
		}
		return lteMaxPower
	default:
		return distance
	}
}

// FairnessDenominator selects the node count in Jain's index.
type FairnessDenominator string

const (
	ActiveNodes FairnessDenominator = "active"
	AllNodes    FairnessDenominator = "all"
)

type EnergyParams struct {
	Model       EnergyModel
	Denominator FairnessDenominator
	// Demand is the demand dimension that scales transmission energy.
	Demand ResourceType
}

func DefaultEnergyParams() EnergyParams {
	return EnergyParams{Model: LinearEnergy, Denominator: ActiveNodes, Demand: ProcessingPower}
}

// EnergyEvaluator scores a solution with Jain's fairness index over the
// per-node transmission energy. Higher is better. Links that carry a recorded
// multi-hop route are charged hop by hop along the route.
type EnergyEvaluator struct {
	params EnergyParams
}

func NewEnergyEvaluator(params EnergyParams) *EnergyEvaluator {
	if params.Model == "" {
		params.Model = LinearEnergy
	}
	if params.Denominator == "" {
		params.Denominator = ActiveNodes
	}
	if params.Demand == "" {
		params.Demand = ProcessingPower
	}
	return &EnergyEvaluator{params: params}
}

func (ev *EnergyEvaluator) Name() string {
	return "energy"
}

func (ev *EnergyEvaluator) Maximize() bool {
	return true
}

func (ev *EnergyEvaluator) Cost(value float64) float64 {
	return 1 - value
}

// Consumption returns the transmission energy of every node that hosts a task
// or relays traffic for an allocated workflow.
func (ev *EnergyEvaluator) Consumption(s *Solution) map[*Node]float64 {
	t := s.Topology()
	consumption := make(map[*Node]float64, 0)
	for _, n := range t.Nodes() {
		if s.NumTasksOn(n) > 0 {
			consumption[n] = 0
		}
	}
	for _, wf := range t.Workflows() {
		if !s.IsAllocated(wf) {
			continue
		}
		for i := 1; i < len(wf.Tasks); i++ {
			src, _ := s.NodeOf(wf.Tasks[i-1])
			dst, _ := s.NodeOf(wf.Tasks[i])
			demand := wf.Tasks[i].Demand[ev.params.Demand]
			hops, routed := s.Route(src, dst)
			if !routed || len(hops) < 2 {
				hops = []*Node{src, dst}
			}
			for h := 1; h < len(hops); h++ {
				consumption[hops[h-1]] += ev.params.Model.Power(t.Distance(hops[h-1], hops[h])) * demand
				if _, seen := consumption[hops[h]]; !seen {
					consumption[hops[h]] = 0
				}
			}
		}
	}
	return consumption
}

// Evaluate returns (sum x)^2 / (N * sum x^2). With no consumption at all the
// index is undefined and 0 is returned.
func (ev *EnergyEvaluator) Evaluate(s *Solution) float64 {
	consumption := ev.Consumption(s)
	xs := make([]float64, 0, len(consumption))
	for _, x := range consumption {
		xs = append(xs, x)
	}
	n := len(xs)
	if ev.params.Denominator == AllNodes {
		n = len(s.Topology().Nodes())
	}
	sum := floats.Sum(xs)
	sumSq := floats.Dot(xs, xs)
	if n == 0 || sumSq == 0 {
		glog.V(2).Infof("solution %s has no energy consumption, fairness is 0", s.ID)
		return 0
	}
	return sum * sum / (float64(n) * sumSq)
}
