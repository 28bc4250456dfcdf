package meshscheduler

import (
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getGeneratedTopo(t *testing.T, seed int64) *Topology {
	t.Helper()
	params := DefaultGeneratorParams()
	params.Drones, params.EdgeServers, params.CloudServers = 8, 2, 1
	params.Workflows = 4
	params.TasksPerWorkflow = IntSpan{Min: 3, Max: 3}
	topo, err := GenerateTopology(params, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return topo
}

func TestSamplingSolverKeepsBest(t *testing.T) {
	topo := getGeneratedTopo(t, 5)
	ev := NewDistanceEvaluator()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	solver := NewSamplingSolver(NewRandomAllocator(topo, ev, SingleHop, rand.New(rand.NewSource(1))), ev, SamplingParams{Samples: 25}, metrics)

	best := solver.Solve()
	require.NotNil(t, best)
	checkSolution(t, best, SingleHop)

	others := NewSamplingSolver(NewRandomAllocator(topo, ev, SingleHop, rand.New(rand.NewSource(1))), ev, SamplingParams{Samples: 1}, nil).Solve()
	assert.False(t, Better(ev, others.Evaluate(), best.Evaluate()), "the first sample cannot beat the best of all samples")

	assert.Equal(t, 25.0, testutil.ToFloat64(metrics.Iterations.WithLabelValues("sampling")))
	assert.Equal(t, 25.0, testutil.ToFloat64(metrics.Candidates.WithLabelValues("sampling")))
	assert.Equal(t, float64(best.AllocatedCount()), testutil.ToFloat64(metrics.BestAllocated.WithLabelValues("sampling")))
}

func TestOptimalSolver(t *testing.T) {
	topo, wf1, wf2 := getTwoPairTopo(t, true)
	ev := NewDistanceEvaluator()
	best := NewOptimalSolver(NewOptimalAllocator(topo, ev, SingleHop, OptimalParams{}), ev, nil).Solve()
	require.NotNil(t, best)
	assert.True(t, best.IsAllocated(wf1))
	assert.True(t, best.IsAllocated(wf2))

	topo, _, _ = getTwoPairTopo(t, false)
	assert.Nil(t, NewOptimalSolver(NewOptimalAllocator(topo, ev, SingleHop, OptimalParams{}), ev, nil).Solve())
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.iteration("x")
	m.candidates("x", 3)
	m.transition("x")
	m.crossoverAborted()
	m.mutation()
	m.replacement()
	m.observeBest("x", nil)

	unregistered := NewMetrics(nil)
	unregistered.iteration("x")
	assert.Equal(t, 1.0, testutil.ToFloat64(unregistered.Iterations.WithLabelValues("x")))
}
