// Package channelio reads the binary safety input channels with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package channelio

// Reader reads safety input channels by index.
type Reader interface {
	// Read returns the current value of the channel at the given index.
	// An invalid index fails safe to false.
	Read(index int) (bool, error)

	// Close releases input resources.
	Close() error
}
