package interlock

import (
	"testing"

	"github.com/sweeney/safety-interlock/internal/config"
)

func TestTripsOn(t *testing.T) {
	high := &channel{trigger: 1}
	low := &channel{trigger: 0}

	if !high.tripsOn(true) || high.tripsOn(false) {
		t.Error("trigger-high channel must trip only on an asserted read")
	}
	if !low.tripsOn(false) || low.tripsOn(true) {
		t.Error("trigger-low channel must trip only on a deasserted read")
	}
}

func TestSanitizeEntry(t *testing.T) {
	tests := []struct {
		name   string
		in     config.Entry
		wantOK bool
		want   config.Entry
	}{
		{
			name:   "valid entry passes through",
			in:     config.Entry{Channel: 5, ResetChannel: 6, TriggerValue: 1, Description: "gate"},
			wantOK: true,
			want:   config.Entry{Channel: 5, ResetChannel: 6, TriggerValue: 1, Description: "gate"},
		},
		{
			name:   "trigger-low is valid",
			in:     config.Entry{Channel: 5, TriggerValue: 0},
			wantOK: true,
			want:   config.Entry{Channel: 5, TriggerValue: 0},
		},
		{
			name:   "negative channel index rejected",
			in:     config.Entry{Channel: -1, TriggerValue: 1},
			wantOK: false,
		},
		{
			name:   "channel index above maximum rejected",
			in:     config.Entry{Channel: MaxChannel + 1, TriggerValue: 1},
			wantOK: false,
		},
		{
			name:   "out of range reset channel cleared",
			in:     config.Entry{Channel: 5, ResetChannel: MaxChannel + 1, TriggerValue: 1},
			wantOK: true,
			want:   config.Entry{Channel: 5, ResetChannel: 0, TriggerValue: 1},
		},
		{
			name:   "invalid trigger value forced to 1",
			in:     config.Entry{Channel: 5, TriggerValue: 2},
			wantOK: true,
			want:   config.Entry{Channel: 5, TriggerValue: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sanitizeEntry(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInstallEntries(t *testing.T) {
	table := installEntries([]config.Entry{
		{Channel: 5, ResetChannel: 6, TriggerValue: 1, Description: "gate"},
		{Channel: MaxChannel + 100, TriggerValue: 1}, // dropped
		{Channel: 9, TriggerValue: 0},
	})

	if len(table) != MaxChannel+1 {
		t.Fatalf("table length = %d, want %d", len(table), MaxChannel+1)
	}

	configured := 0
	for i := range table {
		if table[i].configured {
			configured++
			if table[i].triggered {
				t.Errorf("channel %d: a fresh table must have every latch clear", i)
			}
		}
	}
	if configured != 2 {
		t.Errorf("configured = %d, want 2", configured)
	}

	c := table[5]
	if c.index != 5 || c.resetIndex != 6 || c.trigger != 1 || c.description != "gate" {
		t.Errorf("channel 5 installed wrong: %+v", c)
	}
	if table[9].trigger != 0 {
		t.Errorf("channel 9 trigger = %d, want 0", table[9].trigger)
	}
}
