package view

import (
	"fmt"

	"github.com/openscope/wavescope/internal/core/wave"
)

// Config carries the validated settings for one viewer session.
type Config struct {
	// InputFile is the capture to view.
	InputFile string
	// Follow tails the capture for appended records (JSONL only).
	Follow bool
	// RefreshPerSecond is the display refresh rate.
	RefreshPerSecond float64
	// Retention bounds retained samples per channel in follow mode;
	// 0 keeps everything.
	Retention int
	// Branch is the pyramid branching factor; 0 selects the default.
	Branch int
	// Interpolate switches marker readouts from nearest-sample to linear
	// interpolation.
	Interpolate bool
	// Channels restricts the view to the named channels; empty shows all.
	Channels []wave.ChannelID
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("no input file")
	}
	if c.RefreshPerSecond < 0.1 || c.RefreshPerSecond > 60 {
		return fmt.Errorf("refresh rate %.2f out of range (0.1-60)", c.RefreshPerSecond)
	}
	if c.Retention < 0 {
		return fmt.Errorf("retention must be >= 0")
	}
	return nil
}

// wants reports whether a channel passes the channel filter.
func (c *Config) wants(id wave.ChannelID) bool {
	if len(c.Channels) == 0 {
		return true
	}
	for _, want := range c.Channels {
		if want == id {
			return true
		}
	}
	return false
}
