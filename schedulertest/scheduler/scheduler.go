package meshscheduler

// Allocator builds a placement of the topology's workflows from scratch. Every
// call returns a new Solution; workflows that could not be placed are left
// unallocated.
type Allocator interface {
	Allocate() *Solution
}

// Solver searches for the best placement, typically by calling an Allocator
// repeatedly and improving on its results.
type Solver interface {
	Solve() *Solution
}
