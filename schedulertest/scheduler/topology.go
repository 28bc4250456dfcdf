package meshscheduler

import (
	"fmt"
	"math"
	"strconv"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Topology is the read-only network and workload a search runs against:
// nodes with their neighbor links, and the ordered list of workflows.
type Topology struct {
	nodes     []*Node
	workflows []*Workflow
	nodeById  map[int]*Node
	graph     *simple.UndirectedGraph
	component map[int]int // node id -> connected component index
}

// NewTopology validates the nodes and workflows and indexes the neighbor graph.
// Neighbor lists must already be established (see Node.Connect).
func NewTopology(nodes []*Node, workflows []*Workflow) (*Topology, error) {
	t := &Topology{
		nodes:     nodes,
		workflows: workflows,
		nodeById:  make(map[int]*Node, len(nodes)),
		graph:     simple.NewUndirectedGraph(),
		component: make(map[int]int, len(nodes)),
	}
	for _, n := range nodes {
		if n.NodeId < 0 {
			return nil, &InvalidInputError{Field: "node id", Reason: strconv.Itoa(n.NodeId) + " is negative"}
		}
		if _, exists := t.nodeById[n.NodeId]; exists {
			return nil, &InvalidInputError{Field: "node id", Reason: "duplicate id " + strconv.Itoa(n.NodeId)}
		}
		t.nodeById[n.NodeId] = n
		t.graph.AddNode(simple.Node(n.NodeId))
	}
	for _, n := range nodes {
		for _, nb := range n.Neighbors {
			if t.nodeById[nb.NodeId] != nb {
				return nil, &NotFoundError{Msg: fmt.Sprintf("neighbor %s of %s is not part of the topology", nb, n)}
			}
			if nb == n {
				continue
			}
			t.graph.SetEdge(t.graph.NewEdge(simple.Node(n.NodeId), simple.Node(nb.NodeId)))
		}
	}
	for idx, cc := range topo.ConnectedComponents(t.graph) {
		for _, gn := range cc {
			t.component[int(gn.ID())] = idx
		}
	}

	taskIds := make(map[int]bool, 0)
	for _, wf := range workflows {
		if len(wf.Tasks) == 0 {
			return nil, &InvalidInputError{Field: "workflow", Reason: wf.String() + " has no tasks"}
		}
		for i, task := range wf.Tasks {
			if taskIds[task.TaskId] {
				return nil, &InvalidInputError{Field: "task id", Reason: "duplicate id " + strconv.Itoa(task.TaskId)}
			}
			if task.Workflow != wf || task.Index != i {
				return nil, &InvalidInputError{Field: "task", Reason: task.String() + " is not linked to " + wf.String()}
			}
			taskIds[task.TaskId] = true
		}
	}
	return t, nil
}

func (t *Topology) Nodes() []*Node {
	return t.nodes
}

func (t *Topology) Workflows() []*Workflow {
	return t.workflows
}

func (t *Topology) Node(id int) (*Node, bool) {
	n, ok := t.nodeById[id]
	return n, ok
}

func (t *Topology) NumTasks() int {
	total := 0
	for _, wf := range t.workflows {
		total += len(wf.Tasks)
	}
	return total
}

// Distance is the euclidean distance between the positions of two nodes.
func (t *Topology) Distance(a, b *Node) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func (t *Topology) Adjacent(a, b *Node) bool {
	return a.IsNeighbor(b)
}

// Reachable reports whether b can be reached from a over any number of hops.
func (t *Topology) Reachable(a, b *Node) bool {
	ca, okA := t.component[a.NodeId]
	cb, okB := t.component[b.NodeId]
	return okA && okB && ca == cb
}

// ShortestPath returns the fewest-hop path from a to b, both ends included.
// It returns nil when b is not reachable from a.
func (t *Topology) ShortestPath(a, b *Node) []*Node {
	if a == b {
		return []*Node{a}
	}
	if !t.Reachable(a, b) {
		return nil
	}
	shortest := path.DijkstraFrom(simple.Node(a.NodeId), t.graph)
	hops, _ := shortest.To(int64(b.NodeId))
	if len(hops) == 0 {
		return nil
	}
	route := make([]*Node, 0, len(hops))
	for _, h := range hops {
		route = append(route, t.nodeById[int(h.ID())])
	}
	return route
}

func (t *Topology) LogTopology() {
	glog.Infof("%d nodes, %d workflows, %d tasks", len(t.nodes), len(t.workflows), t.NumTasks())
	glog.Info("NodeId,Class,X,Y,Capacity,DelayFactor,Neighbors")
	for _, n := range t.nodes {
		glog.Infof("%d,%s,%.1f,%.1f,%s,%.1f,%d", n.NodeId, n.Class, n.X, n.Y, n.Capacity, n.DelayFactor, len(n.Neighbors))
	}
	glog.Info("WorkflowId,TaskId,Demand")
	for _, wf := range t.workflows {
		for _, task := range wf.Tasks {
			glog.Infof("%d,%d,%s", wf.WorkflowId, task.TaskId, task.Demand)
		}
	}
}
