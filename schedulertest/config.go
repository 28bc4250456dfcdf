package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	meshscheduler "github.gatech.edu/cs-epl/mesh-workflow-scheduler/schedulertest/scheduler"
)

// Config describes one experiment run. Workflows and nodes come from the CSV
// files when nodes_file is set, otherwise they are generated.
type Config struct {
	NodesFile string                        `yaml:"nodes_file,omitempty"`
	LinksFile string                        `yaml:"links_file,omitempty"`
	TasksFile string                        `yaml:"tasks_file,omitempty"`
	Generate  meshscheduler.GeneratorParams `yaml:"generate"`

	// Evaluator is one of distance, energy or cost.
	Evaluator           string  `yaml:"evaluator"`
	EnergyModel         string  `yaml:"energy_model"`
	FairnessDenominator string  `yaml:"fairness_denominator"`
	CostScale           float64 `yaml:"cost_scale"`
	CostNormalize       bool    `yaml:"cost_normalize"`

	// Routing is single_hop or multi_hop.
	Routing string `yaml:"routing"`
	// Allocator is greedy or random. The optimal solver ignores it.
	Allocator string `yaml:"allocator"`
	// Solver is one of sampling, optimal, genetic or markov.
	Solver   string                       `yaml:"solver"`
	Sampling meshscheduler.SamplingParams `yaml:"sampling"`
	Optimal  meshscheduler.OptimalParams  `yaml:"optimal"`
	Genetic  meshscheduler.GeneticParams  `yaml:"genetic"`
	Markov   meshscheduler.MarkovParams   `yaml:"markov"`

	// Seed of the random source. Zero seeds from the clock.
	Seed        int64  `yaml:"seed"`
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Generate:            meshscheduler.DefaultGeneratorParams(),
		Evaluator:           "energy",
		EnergyModel:         string(meshscheduler.LinearEnergy),
		FairnessDenominator: string(meshscheduler.ActiveNodes),
		CostScale:           meshscheduler.DefaultCostParams().Scale,
		Routing:             meshscheduler.SingleHop.String(),
		Allocator:           "random",
		Solver:              "sampling",
		Sampling:            meshscheduler.DefaultSamplingParams(),
		Genetic:             meshscheduler.DefaultGeneticParams(),
		Markov:              meshscheduler.DefaultMarkovParams(),
	}
}

// LoadConfig reads a YAML run config on top of DefaultConfig. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config %s", path)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &meshscheduler.InvalidInputError{Field: field, Reason: "unknown value " + value}
}

func (c *Config) Validate() error {
	files := 0
	for _, f := range []string{c.NodesFile, c.LinksFile, c.TasksFile} {
		if f != "" {
			files++
		}
	}
	if files != 0 && files != 3 {
		return &meshscheduler.InvalidInputError{Field: "nodes_file", Reason: "nodes_file, links_file and tasks_file must be set together"}
	}
	if files == 0 {
		if err := c.Generate.Validate(); err != nil {
			return err
		}
	}
	checks := []error{
		oneOf("evaluator", c.Evaluator, "distance", "energy", "cost"),
		oneOf("energy_model", c.EnergyModel, string(meshscheduler.LinearEnergy), string(meshscheduler.SquaredEnergy), string(meshscheduler.LteEnergy)),
		oneOf("fairness_denominator", c.FairnessDenominator, string(meshscheduler.ActiveNodes), string(meshscheduler.AllNodes)),
		oneOf("routing", c.Routing, meshscheduler.SingleHop.String(), meshscheduler.MultiHop.String()),
		oneOf("allocator", c.Allocator, "greedy", "random"),
		oneOf("solver", c.Solver, "sampling", "optimal", "genetic", "markov"),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if c.CostScale <= 0 {
		return &meshscheduler.InvalidInputError{Field: "cost_scale", Reason: "must be positive"}
	}
	if c.Sampling.Samples < 1 {
		return &meshscheduler.InvalidInputError{Field: "sampling.samples", Reason: "must be at least 1"}
	}
	if c.Genetic.PopulationSize < 1 || c.Genetic.Iterations < 0 {
		return &meshscheduler.InvalidInputError{Field: "genetic", Reason: "population_size must be at least 1 and iterations non-negative"}
	}
	if c.Genetic.MutationProbability < 0 || c.Genetic.MutationProbability > 1 {
		return &meshscheduler.InvalidInputError{Field: "genetic.mutation_probability", Reason: "must be between 0 and 1"}
	}
	if c.Markov.Iterations < 0 || c.Markov.Restarts < 1 {
		return &meshscheduler.InvalidInputError{Field: "markov", Reason: "iterations must be non-negative and restarts at least 1"}
	}
	if c.Optimal.MaxPlacementsPerWorkflow < 0 {
		return &meshscheduler.InvalidInputError{Field: "optimal.max_placements_per_workflow", Reason: "must be non-negative"}
	}
	return nil
}

func (c *Config) RoutingMode() meshscheduler.RoutingMode {
	if c.Routing == meshscheduler.MultiHop.String() {
		return meshscheduler.MultiHop
	}
	return meshscheduler.SingleHop
}
