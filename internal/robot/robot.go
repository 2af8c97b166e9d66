// Package robot commands the supervised robot arms through the motion
// controller, with abstraction for testing. Command return values are
// advisory only: the supervisor decides success by re-reading run status
// after a confirmation wait.
package robot

import "fmt"

// RunStatus is a robot's program run status as reported by the controller.
type RunStatus int

// Wire values follow the controller's encoding.
const (
	StatusStopped RunStatus = 0
	StatusPaused  RunStatus = 1
	StatusRunning RunStatus = 2
)

// String returns a human-readable status name.
func (s RunStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPaused:
		return "paused"
	case StatusRunning:
		return "running"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Controller commands robots and queries their state.
type Controller interface {
	// RunStatus returns the robot's current program run status.
	RunStatus(id int) (RunStatus, error)

	// OpenJob returns the name of the currently open job.
	// An empty name with nil error means no job is open; that is not an error.
	OpenJob(id int) (string, error)

	// PauseJob asks the controller to pause the robot's running job.
	PauseJob(id int) error

	// StartJob asks the controller to start (or resume) the named job.
	StartJob(job string) error

	// Close releases controller resources.
	Close() error
}
