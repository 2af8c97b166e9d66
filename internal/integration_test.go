package internal

import (
	"context"
	"testing"
	"time"

	"github.com/sweeney/safety-interlock/internal/alert"
	"github.com/sweeney/safety-interlock/internal/channelio"
	"github.com/sweeney/safety-interlock/internal/config"
	"github.com/sweeney/safety-interlock/internal/interlock"
	"github.com/sweeney/safety-interlock/internal/robot"
)

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestIntegrationTripAndRecover drives the full flow over fakes: a safety
// input trips, the monitor loop latches it and pauses both robots, the input
// clears and the loop resumes the recorded jobs.
func TestIntegrationTripAndRecover(t *testing.T) {
	in := channelio.NewFakeReader()
	rc := robot.NewFakeController()
	rc.AddRobot(1, robot.StatusRunning, "WELD_LINE_1")
	rc.AddRobot(2, robot.StatusRunning, "WELD_LINE_2")
	al := alert.NewFakeReporter()

	sup := interlock.New(interlock.Options{
		Channels:    in,
		Robots:      rc,
		Alerts:      al,
		Store:       config.NewStore(t.TempDir()),
		RobotIDs:    []int{1, 2},
		ConfirmWait: time.Millisecond,
	})
	if err := sup.UpdateConfig([]config.Entry{
		{Channel: 5, TriggerValue: 1, Description: "light curtain"},
	}, 30); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	al.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx, time.Millisecond)
		close(done)
	}()

	// Trip: the curtain is interrupted.
	in.Set(5, true)
	waitFor(t, "limited state", func() bool { return sup.State() == interlock.SystemLimited })
	waitFor(t, "robots paused", func() bool {
		return rc.Status(1) == robot.StatusPaused && rc.Status(2) == robot.StatusPaused
	})

	// Clear: the loop resumes the recorded jobs.
	in.Set(5, false)
	waitFor(t, "normal state", func() bool { return sup.State() == interlock.SystemNormal })
	waitFor(t, "robots resumed", func() bool {
		return rc.Status(1) == robot.StatusRunning && rc.Status(2) == robot.StatusRunning
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor loop did not stop")
	}

	// One trip alert for the system plus one per robot, then the recovery set.
	if got := len(al.BySeverity(alert.SeverityTrip)); got != 3 {
		t.Errorf("expected 3 trip alerts, got %d: %v", got, al.All())
	}
	if got := len(al.BySeverity(alert.SeverityFailure)); got != 0 {
		t.Errorf("expected no failure alerts, got %d: %v", got, al.All())
	}
}

// TestIntegrationResetChannelRequiresManualReset covers the door-with-reset-
// button flow: the trip clears physically but the latch holds until either
// the reset channel is asserted or an operator resets over the web API.
func TestIntegrationResetChannelRequiresManualReset(t *testing.T) {
	in := channelio.NewFakeReader()
	rc := robot.NewFakeController()
	rc.AddRobot(1, robot.StatusRunning, "PRESS_LOAD")
	al := alert.NewFakeReporter()

	sup := interlock.New(interlock.Options{
		Channels:    in,
		Robots:      rc,
		Alerts:      al,
		Store:       config.NewStore(t.TempDir()),
		RobotIDs:    []int{1},
		ConfirmWait: time.Millisecond,
	})
	if err := sup.UpdateConfig([]config.Entry{
		{Channel: 7, ResetChannel: 8, TriggerValue: 1, Description: "cell door"},
	}, 30); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx, time.Millisecond)

	in.Set(7, true)
	waitFor(t, "limited state", func() bool { return sup.State() == interlock.SystemLimited })

	// Door closed again, but nobody pressed the reset button.
	in.Set(7, false)
	time.Sleep(20 * time.Millisecond)
	if sup.State() != interlock.SystemLimited {
		t.Fatal("latch must hold until the reset channel is asserted")
	}

	// A reset while the hazard is gone recovers and resumes the job.
	if err := sup.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	waitFor(t, "robot resumed", func() bool { return rc.Status(1) == robot.StatusRunning })
	if sup.State() != interlock.SystemNormal {
		t.Errorf("expected normal state, got %s", sup.State())
	}
}
