package meshscheduler

import (
	"fmt"
	"sort"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/sets"
)

// RoutingMode selects how consecutive tasks of a workflow must be connected.
type RoutingMode int

const (
	// SingleHop requires consecutive tasks to sit on neighboring nodes.
	SingleHop RoutingMode = iota
	// MultiHop accepts any pair of nodes joined by a path in the neighbor graph
	// and records the fewest-hop route between them.
	MultiHop
)

func (m RoutingMode) String() string {
	if m == MultiHop {
		return "multi_hop"
	}
	return "single_hop"
}

type routeKey struct {
	src int
	dst int
}

type route struct {
	hops []*Node
	refs int
}

// Solution is one candidate placement of the topology's workflows. The views
// below describe a single logical state and are updated together by Map and
// Unmap; Clone must copy every one of them.
type Solution struct {
	ID        string
	topology  *Topology
	evaluator Evaluator
	routing   RoutingMode

	wfAlloc     map[*Workflow]bool
	wfToNodes   map[*Workflow][]*Node // indexed by task position, nil when unmapped
	wfMapped    map[*Workflow]int
	taskToNode  map[*Task]*Node
	nodeToTasks map[*Node]sets.Set[*Task]
	available   map[*Node]Resources
	routes      map[routeKey]*route
	taskRoute   map[*Task]routeKey // route acquired when the task was mapped
}

func NewSolution(topology *Topology, evaluator Evaluator, routing RoutingMode) *Solution {
	s := &Solution{
		ID:          uuid.New().String(),
		topology:    topology,
		evaluator:   evaluator,
		routing:     routing,
		wfAlloc:     make(map[*Workflow]bool, len(topology.Workflows())),
		wfToNodes:   make(map[*Workflow][]*Node, len(topology.Workflows())),
		wfMapped:    make(map[*Workflow]int, len(topology.Workflows())),
		taskToNode:  make(map[*Task]*Node, 0),
		nodeToTasks: make(map[*Node]sets.Set[*Task], len(topology.Nodes())),
		available:   make(map[*Node]Resources, len(topology.Nodes())),
		routes:      make(map[routeKey]*route, 0),
		taskRoute:   make(map[*Task]routeKey, 0),
	}
	for _, wf := range topology.Workflows() {
		s.wfAlloc[wf] = false
		s.wfToNodes[wf] = make([]*Node, len(wf.Tasks))
	}
	for _, n := range topology.Nodes() {
		s.nodeToTasks[n] = sets.New[*Task]()
		s.available[n] = n.Capacity.Clone()
	}
	return s
}

func (s *Solution) Topology() *Topology {
	return s.topology
}

func (s *Solution) Evaluator() Evaluator {
	return s.evaluator
}

func (s *Solution) Routing() RoutingMode {
	return s.routing
}

// CheckFit explains why task cannot be placed on target after prev, using the
// solution's routing mode. It returns nil when the placement is feasible.
func (s *Solution) CheckFit(prev *Node, task *Task, target *Node) error {
	return s.CheckFitWithRouting(prev, task, target, s.routing)
}

func (s *Solution) CheckFitWithRouting(prev *Node, task *Task, target *Node, routing RoutingMode) error {
	available, exists := s.available[target]
	if !exists {
		return &NotFoundError{Msg: "node " + target.String()}
	}
	nodes, exists := s.wfToNodes[task.Workflow]
	if !exists {
		return &NotFoundError{Msg: "workflow " + task.Workflow.String()}
	}
	for resourceType, demand := range task.Demand {
		if demand > available[resourceType] {
			return &InsufficientResourceError{ResourceType: resourceType, NodeId: target.NodeId}
		}
	}
	for _, used := range nodes {
		if used == target {
			return &ConstraintError{Constraint: ConstraintUniqueness, TaskId: task.TaskId, NodeId: target.NodeId}
		}
	}
	if prev == nil {
		return nil
	}
	connected := false
	if routing == MultiHop {
		connected = s.topology.Reachable(prev, target)
	} else {
		connected = prev.IsNeighbor(target)
	}
	if !connected {
		return &ConstraintError{Constraint: ConstraintReachability, TaskId: task.TaskId, NodeId: target.NodeId}
	}
	return nil
}

// Mappable reports whether task can be placed on target after prev. A nil prev
// means task is the first of its workflow.
func (s *Solution) Mappable(prev *Node, task *Task, target *Node) bool {
	return s.CheckFit(prev, task, target) == nil
}

func (s *Solution) MappableWithRouting(prev *Node, task *Task, target *Node, routing RoutingMode) bool {
	return s.CheckFitWithRouting(prev, task, target, routing) == nil
}

// Map places task on target. It returns false without changing anything when
// the task is already placed or the placement is infeasible.
func (s *Solution) Map(prev *Node, task *Task, target *Node) bool {
	return s.MapWithRouting(prev, task, target, s.routing)
}

func (s *Solution) MapWithRouting(prev *Node, task *Task, target *Node, routing RoutingMode) bool {
	if n, mapped := s.taskToNode[task]; mapped {
		glog.V(3).Info(&ConstraintError{Constraint: ConstraintAlreadyMapped, TaskId: task.TaskId, NodeId: n.NodeId})
		return false
	}
	if err := s.CheckFitWithRouting(prev, task, target, routing); err != nil {
		glog.V(3).Infof("cannot map %s to %s: %v", task, target, err)
		return false
	}
	if routing == MultiHop && prev != nil {
		key := routeKey{src: prev.NodeId, dst: target.NodeId}
		r, cached := s.routes[key]
		if !cached {
			hops := s.topology.ShortestPath(prev, target)
			if hops == nil {
				glog.Warningf("%s reported reachable from %s but no path was found", target, prev)
				return false
			}
			r = &route{hops: hops}
			s.routes[key] = r
		}
		r.refs++
		s.taskRoute[task] = key
	}

	wf := task.Workflow
	s.wfToNodes[wf][task.Index] = target
	s.wfMapped[wf]++
	if s.wfMapped[wf] == len(wf.Tasks) {
		s.wfAlloc[wf] = true
	}
	s.taskToNode[task] = target
	s.nodeToTasks[target].Insert(task)
	s.available[target].Sub(task.Demand)
	return true
}

// Unmap removes task from the solution and returns its node's resources. It
// returns false when the task is not placed.
func (s *Solution) Unmap(task *Task) bool {
	target, mapped := s.taskToNode[task]
	if !mapped {
		return false
	}
	wf := task.Workflow
	s.wfToNodes[wf][task.Index] = nil
	s.wfMapped[wf]--
	s.wfAlloc[wf] = false
	delete(s.taskToNode, task)
	s.nodeToTasks[target].Delete(task)
	s.available[target].Add(task.Demand)

	if key, routed := s.taskRoute[task]; routed {
		delete(s.taskRoute, task)
		if r, exists := s.routes[key]; exists {
			r.refs--
			if r.refs <= 0 {
				delete(s.routes, key)
			}
		}
	}
	return true
}

// Retarget moves a placed task from its node to target, connected to prev
// under routing. A placed successor is re-mapped from target so its recorded
// route stays current. On failure the solution is left unchanged.
func (s *Solution) Retarget(prev *Node, task *Task, target *Node, routing RoutingMode) bool {
	cur, mapped := s.taskToNode[task]
	if !mapped {
		return false
	}
	restore := SingleHop
	if _, routed := s.taskRoute[task]; routed {
		restore = MultiHop
	}
	s.Unmap(task)
	if !s.MapWithRouting(prev, task, target, routing) {
		s.MapWithRouting(prev, task, cur, restore)
		return false
	}

	wf := task.Workflow
	if task.Index+1 == len(wf.Tasks) {
		return true
	}
	succ := wf.Tasks[task.Index+1]
	succNode, succMapped := s.taskToNode[succ]
	if !succMapped {
		return true
	}
	succRestore := SingleHop
	if _, routed := s.taskRoute[succ]; routed {
		succRestore = MultiHop
	}
	s.Unmap(succ)
	if !s.MapWithRouting(target, succ, succNode, routing) {
		glog.Warningf("%s on %s is not connected to %s, reverting move of %s", succ, succNode, target, task)
		s.Unmap(task)
		s.MapWithRouting(prev, task, cur, restore)
		s.MapWithRouting(cur, succ, succNode, succRestore)
		return false
	}
	return true
}

// Clone returns an independent deep copy of the solution with a new ID.
func (s *Solution) Clone() *Solution {
	c := &Solution{
		ID:          uuid.New().String(),
		topology:    s.topology,
		evaluator:   s.evaluator,
		routing:     s.routing,
		wfAlloc:     make(map[*Workflow]bool, len(s.wfAlloc)),
		wfToNodes:   make(map[*Workflow][]*Node, len(s.wfToNodes)),
		wfMapped:    make(map[*Workflow]int, len(s.wfMapped)),
		taskToNode:  make(map[*Task]*Node, len(s.taskToNode)),
		nodeToTasks: make(map[*Node]sets.Set[*Task], len(s.nodeToTasks)),
		available:   make(map[*Node]Resources, len(s.available)),
		routes:      make(map[routeKey]*route, len(s.routes)),
		taskRoute:   make(map[*Task]routeKey, len(s.taskRoute)),
	}
	for wf, allocated := range s.wfAlloc {
		c.wfAlloc[wf] = allocated
	}
	for wf, nodes := range s.wfToNodes {
		c.wfToNodes[wf] = append([]*Node(nil), nodes...)
	}
	for wf, cnt := range s.wfMapped {
		c.wfMapped[wf] = cnt
	}
	for task, n := range s.taskToNode {
		c.taskToNode[task] = n
	}
	for n, tasks := range s.nodeToTasks {
		c.nodeToTasks[n] = tasks.Clone()
	}
	for n, res := range s.available {
		c.available[n] = res.Clone()
	}
	for key, r := range s.routes {
		c.routes[key] = &route{hops: append([]*Node(nil), r.hops...), refs: r.refs}
	}
	for task, key := range s.taskRoute {
		c.taskRoute[task] = key
	}
	return c
}

// Evaluate scores the solution with its evaluator. The value is recomputed on
// every call.
func (s *Solution) Evaluate() Score {
	score := Score{Allocated: s.AllocatedCount()}
	if s.evaluator != nil {
		score.Value = s.evaluator.Evaluate(s)
	}
	return score
}

func (s *Solution) IsAllocated(wf *Workflow) bool {
	return s.wfAlloc[wf]
}

// AllocatedCount is the number of fully allocated workflows.
func (s *Solution) AllocatedCount() int {
	cnt := 0
	for _, allocated := range s.wfAlloc {
		if allocated {
			cnt++
		}
	}
	return cnt
}

// AssignedNodes returns the nodes used by wf in task order, skipping tasks
// that are not placed.
func (s *Solution) AssignedNodes(wf *Workflow) []*Node {
	nodes := make([]*Node, 0, len(wf.Tasks))
	for _, n := range s.wfToNodes[wf] {
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (s *Solution) NodeOf(task *Task) (*Node, bool) {
	n, ok := s.taskToNode[task]
	return n, ok
}

func (s *Solution) NumMapped() int {
	return len(s.taskToNode)
}

// NumTasksOn is the number of tasks placed on n.
func (s *Solution) NumTasksOn(n *Node) int {
	return s.nodeToTasks[n].Len()
}

// TasksOn returns the tasks placed on n ordered by task id.
func (s *Solution) TasksOn(n *Node) []*Task {
	tasks := s.nodeToTasks[n].UnsortedList()
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskId < tasks[j].TaskId })
	return tasks
}

// Available returns a copy of the resources left on n.
func (s *Solution) Available(n *Node) Resources {
	return s.available[n].Clone()
}

// Route returns the recorded multi-hop route from src to dst.
func (s *Solution) Route(src, dst *Node) ([]*Node, bool) {
	r, exists := s.routes[routeKey{src: src.NodeId, dst: dst.NodeId}]
	if !exists {
		return nil, false
	}
	return r.hops, true
}

func (s *Solution) String() string {
	score := s.Evaluate()
	return fmt.Sprintf("(%d, %.2f)", score.Allocated, score.Value)
}

// Assignments flattens the placement into one row per placed task.
func (s *Solution) Assignments() []OutputAssignment {
	rows := make([]OutputAssignment, 0, len(s.taskToNode))
	for _, wf := range s.topology.Workflows() {
		for _, task := range wf.Tasks {
			n, mapped := s.taskToNode[task]
			if !mapped {
				continue
			}
			rows = append(rows, OutputAssignment{
				WorkflowId: wf.WorkflowId,
				TaskId:     task.TaskId,
				NodeId:     n.NodeId,
				Allocated:  s.wfAlloc[wf],
			})
		}
	}
	return rows
}

func (s *Solution) LogAllocation() {
	glog.Infof("solution %s: allocated %d of %d workflows", s.ID, s.AllocatedCount(), len(s.topology.Workflows()))
	glog.Info("WorkflowId,TaskId,NodeId")
	for _, row := range s.Assignments() {
		glog.Infof("%d,%d,%d", row.WorkflowId, row.TaskId, row.NodeId)
	}
}
