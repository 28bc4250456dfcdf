package meshscheduler

// Rows of the CSV files read by LoadTopology. Zero or empty capacity columns
// fall back to the node class profile.
type InputNode struct {
	NodeId      int     `csv:"nodeId"` // .csv column headers
	Class       string  `csv:"class"`
	X           float64 `csv:"x"`
	Y           float64 `csv:"y"`
	Processing  float64 `csv:"processing_power"`
	Bandwidth   float64 `csv:"bandwidth"`
	DelayFactor float64 `csv:"delay_factor"`
}

// InputLink is an undirected neighbor link.
type InputLink struct {
	Src int `csv:"src"`
	Dst int `csv:"dst"`
}

// InputTask rows are grouped by workflowId; within a workflow the file order
// is the chain order.
type InputTask struct {
	WorkflowId int     `csv:"workflowId"`
	TaskId     int     `csv:"taskId"`
	Processing float64 `csv:"processing_power"`
	Bandwidth  float64 `csv:"bandwidth"`
}

type OutputAssignment struct {
	WorkflowId int  `csv:"workflowId"`
	TaskId     int  `csv:"taskId"`
	NodeId     int  `csv:"nodeId"`
	Allocated  bool `csv:"allocated"`
}
