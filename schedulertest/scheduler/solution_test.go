package meshscheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapUnmapRoundTrip(t *testing.T) {
	nodes := getLineNodes(3, 100)
	wf := getChainWorkflow(0, 0, 2, 30)
	topo := mustTopology(t, nodes, wf)
	s := NewSolution(topo, NewDistanceEvaluator(), MultiHop)

	require.True(t, s.Map(nil, wf.Tasks[0], nodes[0]))
	require.True(t, s.Map(nodes[0], wf.Tasks[1], nodes[2]))
	assert.True(t, s.IsAllocated(wf))
	assert.Equal(t, 1, s.AllocatedCount())
	assert.Equal(t, NewResources(70, 90), s.Available(nodes[0]))
	hops, routed := s.Route(nodes[0], nodes[2])
	require.True(t, routed)
	assert.Equal(t, []int{0, 1, 2}, nodeIdsOf(hops))

	require.True(t, s.Unmap(wf.Tasks[1]))
	require.True(t, s.Unmap(wf.Tasks[0]))
	assert.False(t, s.IsAllocated(wf))
	assert.Equal(t, 0, s.NumMapped())
	for _, n := range nodes {
		assert.Equal(t, n.Capacity, s.Available(n))
		assert.Equal(t, 0, s.NumTasksOn(n))
	}
	_, routed = s.Route(nodes[0], nodes[2])
	assert.False(t, routed)
	assert.Empty(t, s.AssignedNodes(wf))
	assert.False(t, s.Unmap(wf.Tasks[0]))
}

func TestMapInsufficientResource(t *testing.T) {
	nodes := []*Node{newTestNode(0, 0, 10, 100)}
	wf := getWorkflow(0, 0, NewResources(11, 1))
	topo := mustTopology(t, nodes, wf)
	s := NewSolution(topo, NewDistanceEvaluator(), SingleHop)

	err := s.CheckFit(nil, wf.Tasks[0], nodes[0])
	var resErr *InsufficientResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, ProcessingPower, resErr.ResourceType)
	assert.False(t, s.Mappable(nil, wf.Tasks[0], nodes[0]))
	assert.False(t, s.Map(nil, wf.Tasks[0], nodes[0]))
	assert.Equal(t, NewResources(10, 100), s.Available(nodes[0]))
	assert.Equal(t, 0, s.NumMapped())
}

func TestMapUniqueness(t *testing.T) {
	nodes := getLineNodes(2, 100)
	wf := getChainWorkflow(0, 0, 2, 10)
	topo := mustTopology(t, nodes, wf)
	s := NewSolution(topo, NewDistanceEvaluator(), MultiHop)

	require.True(t, s.Map(nil, wf.Tasks[0], nodes[0]))
	err := s.CheckFit(nodes[0], wf.Tasks[1], nodes[0])
	var cErr *ConstraintError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, ConstraintUniqueness, cErr.Constraint)
	assert.False(t, s.Map(nodes[0], wf.Tasks[1], nodes[0]))
	assert.False(t, s.Map(nil, wf.Tasks[0], nodes[1]), "a mapped task cannot be mapped again")
}

func TestMapReachability(t *testing.T) {
	nodes := getLineNodes(3, 100)
	wf := getChainWorkflow(0, 0, 2, 10)
	topo := mustTopology(t, nodes, wf)

	single := NewSolution(topo, NewDistanceEvaluator(), SingleHop)
	require.True(t, single.Map(nil, wf.Tasks[0], nodes[0]))
	err := single.CheckFit(nodes[0], wf.Tasks[1], nodes[2])
	var cErr *ConstraintError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, ConstraintReachability, cErr.Constraint)
	assert.True(t, single.MappableWithRouting(nodes[0], wf.Tasks[1], nodes[2], MultiHop))

	isolated := append(getLineNodes(2, 100), newTestNode(2, 50, 100, 100))
	topo = mustTopology(t, isolated, wf)
	multi := NewSolution(topo, NewDistanceEvaluator(), MultiHop)
	require.True(t, multi.Map(nil, wf.Tasks[0], isolated[0]))
	assert.False(t, multi.Mappable(isolated[0], wf.Tasks[1], isolated[2]))
	assert.True(t, multi.Mappable(isolated[0], wf.Tasks[1], isolated[1]))
}

func TestSharedRouteIsReferenceCounted(t *testing.T) {
	nodes := getLineNodes(3, 100)
	wf1 := getChainWorkflow(0, 0, 2, 10)
	wf2 := getChainWorkflow(1, 2, 2, 10)
	topo := mustTopology(t, nodes, wf1, wf2)
	s := NewSolution(topo, NewDistanceEvaluator(), MultiHop)

	for _, wf := range []*Workflow{wf1, wf2} {
		require.True(t, s.Map(nil, wf.Tasks[0], nodes[0]))
		require.True(t, s.Map(nodes[0], wf.Tasks[1], nodes[2]))
	}
	require.True(t, s.Unmap(wf1.Tasks[1]))
	_, routed := s.Route(nodes[0], nodes[2])
	assert.True(t, routed, "route still used by the second workflow")
	require.True(t, s.Unmap(wf2.Tasks[1]))
	_, routed = s.Route(nodes[0], nodes[2])
	assert.False(t, routed)
}

func TestCloneIsIndependent(t *testing.T) {
	nodes := getLineNodes(3, 100)
	wf := getChainWorkflow(0, 0, 3, 10)
	topo := mustTopology(t, nodes, wf)
	s := NewSolution(topo, NewDistanceEvaluator(), MultiHop)
	require.True(t, s.Map(nil, wf.Tasks[0], nodes[0]))
	require.True(t, s.Map(nodes[0], wf.Tasks[1], nodes[1]))
	require.True(t, s.Map(nodes[1], wf.Tasks[2], nodes[2]))

	c := s.Clone()
	assert.NotEqual(t, s.ID, c.ID)
	assert.Equal(t, s.Assignments(), c.Assignments())
	assert.Equal(t, s.Evaluate(), c.Evaluate())

	require.True(t, c.Unmap(wf.Tasks[2]))
	require.True(t, c.Unmap(wf.Tasks[1]))
	require.True(t, c.Map(nodes[0], wf.Tasks[1], nodes[2]))

	assert.True(t, s.IsAllocated(wf))
	assert.False(t, c.IsAllocated(wf))
	assert.Equal(t, []int{0, 1, 2}, nodeIdsOf(s.AssignedNodes(wf)))
	assert.Equal(t, NewResources(90, 90), s.Available(nodes[2]))
	assert.Equal(t, NewResources(90, 90), c.Available(nodes[2]))
	assert.Equal(t, NewResources(100, 100), c.Available(nodes[1]))
	assert.Equal(t, NewResources(90, 90), s.Available(nodes[1]))
	_, routed := s.Route(nodes[0], nodes[2])
	assert.False(t, routed)
	_, routed = c.Route(nodes[0], nodes[2])
	assert.True(t, routed)
	checkSolution(t, s, MultiHop)
	checkSolution(t, c, MultiHop)
}

func TestRetarget(t *testing.T) {
	nodes := getSquareNodes()
	wf := getChainWorkflow(0, 0, 3, 10)
	topo := mustTopology(t, nodes, wf)
	s := NewSolution(topo, NewDistanceEvaluator(), SingleHop)
	require.True(t, s.Map(nil, wf.Tasks[0], nodes[0]))
	require.True(t, s.Map(nodes[0], wf.Tasks[1], nodes[1]))
	require.True(t, s.Map(nodes[1], wf.Tasks[2], nodes[3]))

	assert.False(t, s.Retarget(nodes[0], wf.Tasks[1], nodes[3], SingleHop), "node 3 already hosts the workflow")
	assert.Equal(t, []int{0, 1, 3}, nodeIdsOf(s.AssignedNodes(wf)))

	require.True(t, s.Retarget(nodes[0], wf.Tasks[1], nodes[2], SingleHop))
	assert.Equal(t, []int{0, 2, 3}, nodeIdsOf(s.AssignedNodes(wf)))
	assert.True(t, s.IsAllocated(wf))
	checkSolution(t, s, SingleHop)
}

func TestAssignments(t *testing.T) {
	nodes := getLineNodes(2, 100)
	wf1 := getChainWorkflow(7, 0, 2, 10)
	wf2 := getChainWorkflow(8, 2, 2, 10)
	topo := mustTopology(t, nodes, wf1, wf2)
	s := NewSolution(topo, NewDistanceEvaluator(), SingleHop)
	require.True(t, s.Map(nil, wf1.Tasks[0], nodes[1]))
	require.True(t, s.Map(nodes[1], wf1.Tasks[1], nodes[0]))
	require.True(t, s.Map(nil, wf2.Tasks[0], nodes[0]))

	assert.Equal(t, []OutputAssignment{
		{WorkflowId: 7, TaskId: 0, NodeId: 1, Allocated: true},
		{WorkflowId: 7, TaskId: 1, NodeId: 0, Allocated: true},
		{WorkflowId: 8, TaskId: 2, NodeId: 0, Allocated: false},
	}, s.Assignments())
	assert.Equal(t, []*Task{wf1.Tasks[1], wf2.Tasks[0]}, s.TasksOn(nodes[0]))
}

func TestRandomMapUnmapWalkKeepsViewsConsistent(t *testing.T) {
	nodes := getLineNodes(4, 30)
	base := getChainWorkflow(0, 0, 2, 10)
	walked := []*Workflow{
		getChainWorkflow(1, 10, 3, 10),
		getChainWorkflow(2, 20, 3, 10),
		getChainWorkflow(3, 30, 3, 10),
	}
	topo := mustTopology(t, nodes, append([]*Workflow{base}, walked...)...)
	s := NewSolution(topo, NewDistanceEvaluator(), MultiHop)
	require.True(t, s.Map(nil, base.Tasks[0], nodes[0]))
	require.True(t, s.Map(nodes[0], base.Tasks[1], nodes[3]))
	before := s.Clone()

	// tasks of a workflow are placed in chain order and removed from its end
	rng := rand.New(rand.NewSource(11))
	mapped, unmapped := 0, 0
	for step := 0; step < 500; step++ {
		wf := walked[rng.Intn(len(walked))]
		placed := len(s.AssignedNodes(wf))
		if placed > 0 && (placed == len(wf.Tasks) || rng.Intn(2) == 0) {
			require.True(t, s.Unmap(wf.Tasks[placed-1]))
			unmapped++
		} else {
			var prev *Node
			if placed > 0 {
				prev, _ = s.NodeOf(wf.Tasks[placed-1])
			}
			target := nodes[rng.Intn(len(nodes))]
			fits := s.Mappable(prev, wf.Tasks[placed], target)
			require.Equal(t, fits, s.Map(prev, wf.Tasks[placed], target))
			if fits {
				mapped++
			}
		}
		checkSolution(t, s, MultiHop)

		total := 0
		for _, n := range nodes {
			total += s.NumTasksOn(n)
		}
		require.Equal(t, s.NumMapped(), total)
		for _, w := range topo.Workflows() {
			assigned := s.AssignedNodes(w)
			require.Equal(t, len(assigned) == len(w.Tasks), s.IsAllocated(w))
			for i := 1; i < len(assigned); i++ {
				_, routed := s.Route(assigned[i-1], assigned[i])
				require.True(t, routed, "%s has no route from %s to %s", w, assigned[i-1], assigned[i])
			}
		}
	}
	assert.Greater(t, mapped, 0)
	assert.Greater(t, unmapped, 0)

	for _, wf := range walked {
		for i := len(wf.Tasks) - 1; i >= 0; i-- {
			s.Unmap(wf.Tasks[i])
		}
	}
	checkSolution(t, s, MultiHop)
	assert.Equal(t, before.Assignments(), s.Assignments())
	assert.Equal(t, before.NumMapped(), s.NumMapped())
	assert.Equal(t, before.AllocatedCount(), s.AllocatedCount())
	for _, n := range nodes {
		assert.Equal(t, before.Available(n), s.Available(n))
		assert.Equal(t, before.TasksOn(n), s.TasksOn(n))
		for _, m := range nodes {
			wantHops, wantRouted := before.Route(n, m)
			hops, routed := s.Route(n, m)
			assert.Equal(t, wantRouted, routed, "route %s to %s", n, m)
			assert.Equal(t, nodeIdsOf(wantHops), nodeIdsOf(hops))
		}
	}
}
