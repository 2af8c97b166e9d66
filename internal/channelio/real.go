//go:build linux

package channelio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads safety inputs from actual hardware using the Linux GPIO
// character device. Lines are requested lazily as channels are read, because
// the set of configured channels can change at runtime.
type RealReader struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewRealReader opens the named GPIO chip (e.g. "gpiochip0").
func NewRealReader(chipName string) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	return &RealReader{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

// Read returns the value of the line at the given offset.
// A negative or unavailable offset fails safe to false with an error.
func (r *RealReader) Read(index int) (bool, error) {
	if index < 0 {
		return false, fmt.Errorf("invalid channel index %d", index)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	line, ok := r.lines[index]
	if !ok {
		// Pull-down matches the wiring of normally-open safety contacts
		// through optocoupler input modules.
		var err error
		line, err = r.chip.RequestLine(index, gpiocdev.AsInput, gpiocdev.WithPullDown)
		if err != nil {
			return false, fmt.Errorf("request channel %d: %w", index, err)
		}
		r.lines[index] = line
	}

	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read channel %d: %w", index, err)
	}
	return v != 0, nil
}

// Close releases all requested lines and the chip.
func (r *RealReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for index, line := range r.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %d: %w", index, err))
		}
	}
	r.lines = make(map[int]*gpiocdev.Line)

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
