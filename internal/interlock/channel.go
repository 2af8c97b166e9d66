// Package interlock implements the latching safety state machine that sits
// between the physical safety inputs and robot motion control. A background
// loop polls every configured channel, maintains per-channel trip latches,
// derives the system state from the latches (never from instantaneous
// readings), and pauses or resumes the supervised robots on transitions.
package interlock

import (
	"log"
	"time"

	"github.com/sweeney/safety-interlock/internal/config"
)

// MaxChannel is the highest addressable safety input channel.
const MaxChannel = 2048

// channel is one slot of the registry: the persisted configuration plus the
// latch state. The latch (triggered) is the invariant-bearing field - it is
// set only when a physical read matches the trigger polarity and cleared
// only when the reset condition holds.
type channel struct {
	index       int
	resetIndex  int // 0 = no reset channel
	trigger     int // 1 = trip on asserted, 0 = trip on deasserted
	description string

	configured  bool
	triggered   bool
	triggerTime time.Time
}

// tripsOn reports whether the given physical value meets the channel's
// trigger condition.
func (c *channel) tripsOn(value bool) bool {
	return value == (c.trigger == 1)
}

func (c *channel) entry() config.Entry {
	return config.Entry{
		Channel:      c.index,
		ResetChannel: c.resetIndex,
		TriggerValue: c.trigger,
		Description:  c.description,
	}
}

// ChannelStatus is a configured channel plus its latch state at the instant
// of a query.
type ChannelStatus struct {
	config.Entry
	Triggered   bool
	TriggerTime time.Time // zero if not latched
}

// newTable returns an empty registry with all slots unconfigured.
func newTable() []channel {
	return make([]channel, MaxChannel+1)
}

// sanitizeEntry validates one channel entry. An out-of-range channel index
// rejects the entry (ok=false); an out-of-range reset index is clamped to 0
// and an invalid trigger value is forced to 1, both with a logged warning.
func sanitizeEntry(e config.Entry) (config.Entry, bool) {
	if e.Channel < 0 || e.Channel > MaxChannel {
		log.Printf("interlock: invalid channel index %d, dropping entry", e.Channel)
		return e, false
	}
	if e.ResetChannel < 0 || e.ResetChannel > MaxChannel {
		log.Printf("interlock: channel %d has invalid reset channel %d, clearing it",
			e.Channel, e.ResetChannel)
		e.ResetChannel = 0
	}
	if e.TriggerValue != 0 && e.TriggerValue != 1 {
		log.Printf("interlock: channel %d has invalid trigger value %d, using 1",
			e.Channel, e.TriggerValue)
		e.TriggerValue = 1
	}
	return e, true
}

// installEntries builds a fresh registry from the given entries. Every latch
// starts clear. Invalid entries are dropped or clamped by sanitizeEntry.
func installEntries(entries []config.Entry) []channel {
	table := newTable()
	for _, raw := range entries {
		e, ok := sanitizeEntry(raw)
		if !ok {
			continue
		}
		table[e.Channel] = channel{
			index:       e.Channel,
			resetIndex:  e.ResetChannel,
			trigger:     e.TriggerValue,
			description: e.Description,
			configured:  true,
		}
	}
	return table
}
