package capture

// Device guards exclusive access to the audio input.
// One Device value must be shared by all recorders of the process.
type Device struct {
	sem chan struct{}
}

// NewDevice creates a free device
func NewDevice() *Device {
	return &Device{sem: make(chan struct{}, 1)}
}

func (d *Device) tryAcquire() bool {
	select {
	case d.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (d *Device) release() {
	select {
	case <-d.sem:
	default:
	}
}

// Busy returns true if some recorder holds the device
func (d *Device) Busy() bool {
	return len(d.sem) > 0
}
