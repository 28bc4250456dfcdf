package meshscheduler

import (
	"math"
	"math/rand"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Span is the half-open interval [Min, Max).
type Span struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (s Span) sample(rng *rand.Rand) float64 {
	if s.Max <= s.Min {
		return s.Min
	}
	return s.Min + rng.Float64()*(s.Max-s.Min)
}

// IntSpan is the closed interval [Min, Max].
type IntSpan struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

func (s IntSpan) sample(rng *rand.Rand) int {
	if s.Max <= s.Min {
		return s.Min
	}
	return s.Min + rng.Intn(s.Max-s.Min+1)
}

type GeneratorParams struct {
	Drones       int `yaml:"drones"`
	EdgeServers  int `yaml:"edge_servers"`
	CloudServers int `yaml:"cloud_servers"`

	DroneX Span `yaml:"drone_x"`
	EdgeX  Span `yaml:"edge_x"`
	CloudX Span `yaml:"cloud_x"`
	AreaY  Span `yaml:"area_y"`

	Workflows        int     `yaml:"workflows"`
	TasksPerWorkflow IntSpan `yaml:"tasks_per_workflow"`
	ProcessingDemand IntSpan `yaml:"processing_demand"`
	BandwidthDemand  IntSpan `yaml:"bandwidth_demand"`
}

func DefaultGeneratorParams() GeneratorParams {
	return GeneratorParams{
		Drones:           30,
		EdgeServers:      4,
		CloudServers:     2,
		DroneX:           Span{Min: 0, Max: 100},
		EdgeX:            Span{Min: 100, Max: 140},
		CloudX:           Span{Min: 140, Max: 200},
		AreaY:            Span{Min: 0, Max: 100},
		Workflows:        20,
		TasksPerWorkflow: IntSpan{Min: 4, Max: 4},
		ProcessingDemand: IntSpan{Min: 20, Max: 30},
		BandwidthDemand:  IntSpan{Min: 20, Max: 30},
	}
}

func (p GeneratorParams) Validate() error {
	if p.Drones < 0 || p.EdgeServers < 0 || p.CloudServers < 0 {
		return &InvalidInputError{Field: "generate", Reason: "negative node count"}
	}
	if p.Drones+p.EdgeServers+p.CloudServers == 0 {
		return &InvalidInputError{Field: "generate", Reason: "no nodes"}
	}
	if p.Workflows < 0 {
		return &InvalidInputError{Field: "generate.workflows", Reason: "negative workflow count"}
	}
	if p.TasksPerWorkflow.Min < 1 || p.TasksPerWorkflow.Max < p.TasksPerWorkflow.Min {
		return &InvalidInputError{Field: "generate.tasks_per_workflow", Reason: "need 1 <= min <= max"}
	}
	if p.ProcessingDemand.Min < 0 || p.BandwidthDemand.Min < 0 {
		return &InvalidInputError{Field: "generate", Reason: "negative demand"}
	}
	return nil
}

func deploy(nodes []*Node, class NodeClass, n int, xs, ys Span, rng *rand.Rand) []*Node {
	for i := 0; i < n; i++ {
		nodes = append(nodes, NewNode(len(nodes), class, xs.sample(rng), ys.sample(rng)))
	}
	return nodes
}

// GenerateTopology deploys drones, edge servers and cloud servers in their
// x ranges and links them: drones to drones within both transmission ranges,
// every drone to every edge server and every edge server to every cloud server.
func GenerateTopology(p GeneratorParams, rng *rand.Rand) (*Topology, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, p.Drones+p.EdgeServers+p.CloudServers)
	nodes = deploy(nodes, Drone, p.Drones, p.DroneX, p.AreaY, rng)
	nodes = deploy(nodes, EdgeServer, p.EdgeServers, p.EdgeX, p.AreaY, rng)
	nodes = deploy(nodes, CloudServer, p.CloudServers, p.CloudX, p.AreaY, rng)
	drones := nodes[:p.Drones]
	edges := nodes[p.Drones : p.Drones+p.EdgeServers]
	clouds := nodes[p.Drones+p.EdgeServers:]

	for i, a := range drones {
		for _, b := range drones[i+1:] {
			d := math.Hypot(a.X-b.X, a.Y-b.Y)
			if d <= a.TransRange && d <= b.TransRange {
				a.Connect(b)
			}
		}
		for _, e := range edges {
			a.Connect(e)
		}
	}
	for _, e := range edges {
		for _, c := range clouds {
			e.Connect(c)
		}
	}

	workflows := make([]*Workflow, 0, p.Workflows)
	taskId := 0
	for w := 0; w < p.Workflows; w++ {
		wf := NewWorkflow(w)
		n := p.TasksPerWorkflow.sample(rng)
		for i := 0; i < n; i++ {
			demand := NewResources(float64(p.ProcessingDemand.sample(rng)), float64(p.BandwidthDemand.sample(rng)))
			wf.AddTask(taskId, demand)
			taskId++
		}
		workflows = append(workflows, wf)
	}

	t, err := NewTopology(nodes, workflows)
	if err != nil {
		return nil, errors.Wrap(err, "generated topology")
	}
	glog.Infof("generated %d nodes and %d workflows (%d tasks)", len(nodes), len(workflows), taskId)
	return t, nil
}
