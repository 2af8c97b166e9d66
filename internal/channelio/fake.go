package channelio

import "sync"

// FakeReader is a test double with settable per-channel values.
// It is safe for concurrent use so tests can flip inputs while a monitor
// loop is reading them.
type FakeReader struct {
	mu     sync.Mutex
	values map[int]bool

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeReader creates a FakeReader with all channels deasserted.
func NewFakeReader() *FakeReader {
	return &FakeReader{values: make(map[int]bool)}
}

// Set sets the value of a channel.
func (f *FakeReader) Set(index int, value bool) {
	f.mu.Lock()
	f.values[index] = value
	f.mu.Unlock()
}

// Read returns the configured value for the channel, false if never set.
func (f *FakeReader) Read(index int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.values[index], nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
