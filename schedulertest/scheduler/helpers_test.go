package meshscheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestNode(id int, x float64, processing, bandwidth float64) *Node {
	n := NewNode(id, Drone, x, 0)
	n.Capacity = NewResources(processing, bandwidth)
	return n
}

// getLineNodes returns n nodes 10 apart on the x axis, linked 0-1-...-(n-1).
func getLineNodes(n int, processing float64) []*Node {
	nodes := make([]*Node, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, newTestNode(i, float64(i*10), processing, 100))
		if i > 0 {
			nodes[i-1].Connect(nodes[i])
		}
	}
	return nodes
}

// getSquareNodes returns 0-1, 0-2, 1-3, 2-3.
func getSquareNodes() []*Node {
	nodes := []*Node{
		newTestNode(0, 0, 100, 100),
		newTestNode(1, 10, 100, 100),
		newTestNode(2, 0, 100, 100),
		newTestNode(3, 10, 100, 100),
	}
	nodes[2].Y, nodes[3].Y = 10, 10
	nodes[0].Connect(nodes[1])
	nodes[0].Connect(nodes[2])
	nodes[1].Connect(nodes[3])
	nodes[2].Connect(nodes[3])
	return nodes
}

func getWorkflow(id, firstTaskId int, demands ...Resources) *Workflow {
	wf := NewWorkflow(id)
	for i, d := range demands {
		wf.AddTask(firstTaskId+i, d)
	}
	return wf
}

func getChainWorkflow(id, firstTaskId, n int, processing float64) *Workflow {
	demands := make([]Resources, n)
	for i := range demands {
		demands[i] = NewResources(processing, 10)
	}
	return getWorkflow(id, firstTaskId, demands...)
}

func mustTopology(t *testing.T, nodes []*Node, workflows ...*Workflow) *Topology {
	t.Helper()
	topo, err := NewTopology(nodes, workflows)
	require.NoError(t, err)
	return topo
}

func nodeIdsOf(nodes []*Node) []int {
	ids := make([]int, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.NodeId)
	}
	return ids
}

// checkSolution asserts the invariants every reachable solution state holds.
func checkSolution(t *testing.T, s *Solution, routing RoutingMode) {
	t.Helper()
	topo := s.Topology()
	used := make(map[*Node]Resources, 0)
	for _, wf := range topo.Workflows() {
		nodes := s.AssignedNodes(wf)
		if !s.IsAllocated(wf) {
			continue
		}
		require.Len(t, nodes, len(wf.Tasks), "%s is allocated but not fully placed", wf)
		seen := make(map[*Node]bool, 0)
		for i, n := range nodes {
			require.False(t, seen[n], "%s uses %s twice", wf, n)
			seen[n] = true
			if i > 0 {
				if routing == MultiHop {
					require.True(t, topo.Reachable(nodes[i-1], n))
				} else {
					require.True(t, nodes[i-1].IsNeighbor(n), "%s: %s and %s are not neighbors", wf, nodes[i-1], n)
				}
			}
		}
	}
	for _, wf := range topo.Workflows() {
		for _, task := range wf.Tasks {
			n, mapped := s.NodeOf(task)
			if !mapped {
				continue
			}
			if used[n] == nil {
				used[n] = NewResources(0, 0)
			}
			used[n].Add(task.Demand)
		}
	}
	for _, n := range topo.Nodes() {
		available := s.Available(n)
		require.False(t, available.IsNegative(), "%s is overcommitted: %s", n, available)
		expected := n.Capacity.Clone()
		if used[n] != nil {
			expected.Sub(used[n])
		}
		require.InDelta(t, expected[ProcessingPower], available[ProcessingPower], 1e-9)
		require.InDelta(t, expected[Bandwidth], available[Bandwidth], 1e-9)
	}
}
