package main

import (
	"flag"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	meshscheduler "github.gatech.edu/cs-epl/mesh-workflow-scheduler/schedulertest/scheduler"
)

func loadTopology(cfg *Config, rng *rand.Rand) (*meshscheduler.Topology, error) {
	if cfg.NodesFile == "" {
		return meshscheduler.GenerateTopology(cfg.Generate, rng)
	}
	files := make([]io.Reader, 0, 3)
	for _, name := range []string{cfg.NodesFile, cfg.LinksFile, cfg.TasksFile} {
		in, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", name)
		}
		defer in.Close()
		files = append(files, in)
	}
	return meshscheduler.LoadTopology(files[0], files[1], files[2])
}

func buildEvaluator(cfg *Config) meshscheduler.Evaluator {
	switch cfg.Evaluator {
	case "distance":
		return meshscheduler.NewDistanceEvaluator()
	case "cost":
		return meshscheduler.NewCostEvaluator(meshscheduler.CostParams{Scale: cfg.CostScale, Normalize: cfg.CostNormalize})
	default:
		return meshscheduler.NewEnergyEvaluator(meshscheduler.EnergyParams{
			Model:       meshscheduler.EnergyModel(cfg.EnergyModel),
			Denominator: meshscheduler.FairnessDenominator(cfg.FairnessDenominator),
			Demand:      meshscheduler.ProcessingPower,
		})
	}
}

func buildSolver(cfg *Config, t *meshscheduler.Topology, ev meshscheduler.Evaluator, rng *rand.Rand, metrics *meshscheduler.Metrics) meshscheduler.Solver {
	routing := cfg.RoutingMode()
	var allocator meshscheduler.Allocator
	if cfg.Allocator == "greedy" {
		allocator = meshscheduler.NewGreedyAllocator(t, ev, routing)
	} else {
		allocator = meshscheduler.NewRandomAllocator(t, ev, routing, rng)
	}
	switch cfg.Solver {
	case "optimal":
		return meshscheduler.NewOptimalSolver(meshscheduler.NewOptimalAllocator(t, ev, routing, cfg.Optimal), ev, metrics)
	case "genetic":
		return meshscheduler.NewGeneticSolver(allocator, ev, cfg.Genetic, rng, metrics)
	case "markov":
		return meshscheduler.NewMarkovSolver(allocator, ev, cfg.Markov, rng, metrics)
	default:
		return meshscheduler.NewSamplingSolver(allocator, ev, cfg.Sampling, metrics)
	}
}

func writeAssignments(path string, best *meshscheduler.Solution) error {
	if path == "" {
		return meshscheduler.WriteAssignments(os.Stdout, best)
	}
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer out.Close()
	return meshscheduler.WriteAssignments(out, best)
}

func main() {
	var configPath, outPath string
	flag.StringVar(&configPath, "config", "", "run config (yaml)")
	flag.StringVar(&outPath, "out", "", "assignment csv, stdout when empty")
	flag.Parse()
	defer glog.Flush()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("%v", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	glog.Infof("seed %d, solver %s, evaluator %s, routing %s", seed, cfg.Solver, cfg.Evaluator, cfg.Routing)
	rng := rand.New(rand.NewSource(seed))

	t, err := loadTopology(cfg, rng)
	if err != nil {
		glog.Fatalf("%v", err)
	}
	if glog.V(1) {
		t.LogTopology()
	}

	reg := prometheus.NewRegistry()
	metrics := meshscheduler.NewMetrics(reg)
	ev := buildEvaluator(cfg)
	best := buildSolver(cfg, t, ev, rng, metrics).Solve()
	if best == nil {
		glog.Warning("no feasible solution found")
	} else {
		best.LogAllocation()
		if err := writeAssignments(outPath, best); err != nil {
			glog.Fatalf("%v", err)
		}
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			glog.Errorf("writing metrics: %v", err)
		}
	}
}
