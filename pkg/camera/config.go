// Package camera acquires frames from a local video device.
package camera

import "fmt"

// Config holds camera acquisition settings.
type Config struct {
	DeviceID  int // V4L2 / AVFoundation device index
	Width     int
	Height    int
	Framerate int
}

// DefaultConfig returns the reference 640x480 feed.
func DefaultConfig() Config {
	return Config{
		DeviceID:  0,
		Width:     640,
		Height:    480,
		Framerate: 15,
	}
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("camera: invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.Framerate <= 0 {
		return fmt.Errorf("camera: invalid framerate %d", c.Framerate)
	}
	return nil
}

// FrameInterval returns the nominal time between frames in seconds.
func (c Config) FrameInterval() float64 {
	return 1.0 / float64(c.Framerate)
}
