package robot

import (
	"fmt"
	"sync"
)

// FakeController is a test double that simulates robots. Each robot has a
// scripted status and open job; pause and start commands move the status
// only when the robot is set to obey them, which lets tests exercise the
// unconfirmed-actuation paths.
type FakeController struct {
	mu     sync.Mutex
	robots map[int]*fakeRobot

	// PauseCalls records the robot ids that received a pause command.
	PauseCalls []int

	// StartCalls records the job names that received a start command.
	StartCalls []string

	// StatusError, if set, will be returned by RunStatus.
	StatusError error

	// OpenJobError, if set, will be returned by OpenJob.
	OpenJobError error

	// Closed tracks if Close was called.
	Closed bool
}

type fakeRobot struct {
	status    RunStatus
	job       string
	obeyPause bool
	obeyStart bool
}

// NewFakeController creates a FakeController with no robots.
func NewFakeController() *FakeController {
	return &FakeController{robots: make(map[int]*fakeRobot)}
}

// AddRobot registers a robot with the given status and open job name.
// The robot obeys pause and start commands until told otherwise.
func (f *FakeController) AddRobot(id int, status RunStatus, job string) {
	f.mu.Lock()
	f.robots[id] = &fakeRobot{status: status, job: job, obeyPause: true, obeyStart: true}
	f.mu.Unlock()
}

// SetStatus overrides a robot's status.
func (f *FakeController) SetStatus(id int, status RunStatus) {
	f.mu.Lock()
	if r, ok := f.robots[id]; ok {
		r.status = status
	}
	f.mu.Unlock()
}

// SetObeyPause controls whether pause commands move the robot to Paused.
func (f *FakeController) SetObeyPause(id int, obey bool) {
	f.mu.Lock()
	if r, ok := f.robots[id]; ok {
		r.obeyPause = obey
	}
	f.mu.Unlock()
}

// SetObeyStart controls whether start commands move the robot to Running.
func (f *FakeController) SetObeyStart(id int, obey bool) {
	f.mu.Lock()
	if r, ok := f.robots[id]; ok {
		r.obeyStart = obey
	}
	f.mu.Unlock()
}

// Status returns a robot's current status, for test assertions.
func (f *FakeController) Status(id int) RunStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.robots[id]; ok {
		return r.status
	}
	return StatusStopped
}

// RunStatus returns the robot's scripted status.
func (f *FakeController) RunStatus(id int) (RunStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatusError != nil {
		return StatusStopped, f.StatusError
	}
	r, ok := f.robots[id]
	if !ok {
		return StatusStopped, fmt.Errorf("unknown robot %d", id)
	}
	return r.status, nil
}

// OpenJob returns the robot's scripted open job name.
func (f *FakeController) OpenJob(id int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenJobError != nil {
		return "", f.OpenJobError
	}
	r, ok := f.robots[id]
	if !ok {
		return "", fmt.Errorf("unknown robot %d", id)
	}
	return r.job, nil
}

// PauseJob records the call and, if the robot obeys, pauses it.
func (f *FakeController) PauseJob(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PauseCalls = append(f.PauseCalls, id)
	if r, ok := f.robots[id]; ok && r.obeyPause && r.status == StatusRunning {
		r.status = StatusPaused
	}
	return nil
}

// StartJob records the call and, if a paused robot has the named job open
// and obeys, moves it to Running.
func (f *FakeController) StartJob(job string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StartCalls = append(f.StartCalls, job)
	for _, r := range f.robots {
		if r.job == job && r.obeyStart && r.status == StatusPaused {
			r.status = StatusRunning
		}
	}
	return nil
}

// Close marks the controller as closed.
func (f *FakeController) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
