package meshscheduler

import (
	"io"

	gocsv "github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

func readNodes(in io.Reader) ([]*Node, error) {
	rows := []*InputNode{}
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, errors.Wrap(err, "reading nodes")
	}
	nodes := make([]*Node, 0, len(rows))
	for _, r := range rows {
		class := NodeClass(r.Class)
		if _, known := DefaultClassProfiles[class]; !known {
			return nil, &InvalidInputError{Field: "class", Reason: "unknown node class " + r.Class}
		}
		n := NewNode(r.NodeId, class, r.X, r.Y)
		if r.Processing > 0 {
			n.Capacity[ProcessingPower] = r.Processing
		}
		if r.Bandwidth > 0 {
			n.Capacity[Bandwidth] = r.Bandwidth
		}
		if r.DelayFactor > 0 {
			n.DelayFactor = r.DelayFactor
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func readLinks(in io.Reader, nodes []*Node) error {
	rows := []*InputLink{}
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return errors.Wrap(err, "reading links")
	}
	nodesMap := make(map[int]*Node, len(nodes))
	for _, n := range nodes {
		nodesMap[n.NodeId] = n
	}
	for _, l := range rows {
		src, srcExists := nodesMap[l.Src]
		dst, dstExists := nodesMap[l.Dst]
		if !srcExists || !dstExists {
			return errors.Wrapf(&NotFoundError{Msg: "link endpoint"}, "link %d-%d", l.Src, l.Dst)
		}
		if src == dst {
			return &InvalidInputError{Field: "link", Reason: "self link on node " + src.String()}
		}
		src.Connect(dst)
	}
	return nil
}

func readWorkflows(in io.Reader) ([]*Workflow, error) {
	rows := []*InputTask{}
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, errors.Wrap(err, "reading tasks")
	}
	workflows := make([]*Workflow, 0)
	wfMap := make(map[int]*Workflow, 0)
	for _, r := range rows {
		if r.Processing < 0 || r.Bandwidth < 0 {
			return nil, &InvalidInputError{Field: "demand", Reason: "negative demand"}
		}
		wf, exists := wfMap[r.WorkflowId]
		if !exists {
			wf = NewWorkflow(r.WorkflowId)
			wfMap[r.WorkflowId] = wf
			workflows = append(workflows, wf)
		}
		wf.AddTask(r.TaskId, NewResources(r.Processing, r.Bandwidth))
	}
	return workflows, nil
}

// LoadTopology builds a topology from node, link and task CSV streams.
func LoadTopology(nodesIn, linksIn, tasksIn io.Reader) (*Topology, error) {
	nodes, err := readNodes(nodesIn)
	if err != nil {
		return nil, err
	}
	if err := readLinks(linksIn, nodes); err != nil {
		return nil, err
	}
	workflows, err := readWorkflows(tasksIn)
	if err != nil {
		return nil, err
	}
	t, err := NewTopology(nodes, workflows)
	if err != nil {
		return nil, errors.Wrap(err, "building topology")
	}
	return t, nil
}

// WriteAssignments writes the solution's placement as CSV.
func WriteAssignments(out io.Writer, s *Solution) error {
	rows := s.Assignments()
	if err := gocsv.Marshal(rows, out); err != nil {
		return errors.Wrap(err, "writing assignments")
	}
	return nil
}
