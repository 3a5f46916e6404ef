package transform

import "sync"

// plannerMu serializes every plan creation and release in the process, and
// guards the live workspace count.
var (
	plannerMu sync.Mutex
	live      int
)

// withPlanner runs fn while holding the process-wide planner lock.
func withPlanner(fn func() error) error {
	plannerMu.Lock()
	defer plannerMu.Unlock()
	return fn()
}

// LiveWorkspaces returns the number of workspaces created and not yet closed.
func LiveWorkspaces() int {
	plannerMu.Lock()
	defer plannerMu.Unlock()
	return live
}
