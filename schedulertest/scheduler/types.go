package meshscheduler

import (
	"fmt"
	"math"
)

type ResourceType string

const (
	ProcessingPower ResourceType = "processing_power"
	Bandwidth       ResourceType = "bandwidth"
)

// Resources is a capacity or demand vector. Vectors compared or combined with
// each other are expected to carry the same resource types.
type Resources map[ResourceType]float64

func NewResources(processing, bandwidth float64) Resources {
	return Resources{ProcessingPower: processing, Bandwidth: bandwidth}
}

func (r Resources) Clone() Resources {
	c := make(Resources, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Add adds other to r in place.
func (r Resources) Add(other Resources) {
	for k, v := range other {
		r[k] += v
	}
}

// Sub subtracts other from r in place.
func (r Resources) Sub(other Resources) {
	for k, v := range other {
		r[k] -= v
	}
}

// Fits reports whether every dimension of r is <= the same dimension of available.
func (r Resources) Fits(available Resources) bool {
	for k, v := range r {
		if v > available[k] {
			return false
		}
	}
	return true
}

func (r Resources) IsNegative() bool {
	for _, v := range r {
		if v < 0 {
			return true
		}
	}
	return false
}

func (r Resources) String() string {
	return fmt.Sprintf("[%.1f %.1f]", r[ProcessingPower], r[Bandwidth])
}

type NodeClass string

const (
	Drone       NodeClass = "drone"
	EdgeServer  NodeClass = "edge"
	CloudServer NodeClass = "cloud"
)

// ClassProfile holds the per-tier constants of a node class.
type ClassProfile struct {
	ProcessingPower float64
	Bandwidth       float64
	DelayFactor     float64
	TransRange      float64
}

var DefaultClassProfiles = map[NodeClass]ClassProfile{
	Drone:       {ProcessingPower: 100, Bandwidth: 200, DelayFactor: 1, TransRange: 30},
	EdgeServer:  {ProcessingPower: 500, Bandwidth: 400, DelayFactor: 5, TransRange: math.Inf(1)},
	CloudServer: {ProcessingPower: 10000, Bandwidth: 1000, DelayFactor: 6, TransRange: math.Inf(1)},
}

type Node struct {
	NodeId      int
	Class       NodeClass
	X           float64
	Y           float64
	Capacity    Resources
	DelayFactor float64
	TransRange  float64
	Neighbors   []*Node
}

func NewNode(id int, class NodeClass, x, y float64) *Node {
	profile := DefaultClassProfiles[class]
	return &Node{
		NodeId:      id,
		Class:       class,
		X:           x,
		Y:           y,
		Capacity:    NewResources(profile.ProcessingPower, profile.Bandwidth),
		DelayFactor: profile.DelayFactor,
		TransRange:  profile.TransRange,
	}
}

// Connect adds an undirected link between n and other. Only topology
// construction calls this; the neighbor lists are read-only afterwards.
func (n *Node) Connect(other *Node) {
	if n == other || n.IsNeighbor(other) {
		return
	}
	n.Neighbors = append(n.Neighbors, other)
	other.Neighbors = append(other.Neighbors, n)
}

func (n *Node) IsNeighbor(other *Node) bool {
	for _, nb := range n.Neighbors {
		if nb == other {
			return true
		}
	}
	return false
}

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d", n.Class, n.NodeId)
}

type Task struct {
	TaskId   int
	Workflow *Workflow
	Index    int // position in the workflow chain
	Demand   Resources
}

func (t *Task) String() string {
	return fmt.Sprintf("Task#%d", t.TaskId)
}

type Workflow struct {
	WorkflowId int
	Tasks      []*Task
}

func NewWorkflow(id int) *Workflow {
	return &Workflow{WorkflowId: id}
}

// AddTask appends a task with the given demand to the end of the chain.
func (wf *Workflow) AddTask(id int, demand Resources) *Task {
	t := &Task{TaskId: id, Workflow: wf, Index: len(wf.Tasks), Demand: demand}
	wf.Tasks = append(wf.Tasks, t)
	return t
}

func (wf *Workflow) String() string {
	return fmt.Sprintf("WorkFlow#%d", wf.WorkflowId)
}
