// Package control implements the volume feedback law: both streams' peaks are
// smoothed, their difference becomes a volume step, and the step is applied to
// a mixer control within fixed bounds.
package control

import (
	"errors"
	"fmt"
	"math"
)

// VolumeScale converts a peak-magnitude delta into a mixer volume step.
const VolumeScale = 1000

// Defaults for Config.
const (
	DefaultFilterCoeff = 0.2
	DefaultPeakDecay   = 0.8
)

// ErrBounds is returned by Bounds.Validate.
var ErrBounds = errors.New("invalid volume bounds")

// Mixer is the playback volume control the controller drives.
type Mixer interface {
	Volume() (int64, error)
	SetVolume(v int64) error
	// HandleEvents processes pending control events.
	HandleEvents() error
}

// Tracer receives one Decision per Adjust call while verbose is set.
type Tracer interface {
	Trace(d Decision)
}

// Bounds limits where the controller may move the volume.
type Bounds struct {
	Base int64
	Max  int64
}

// Validate reports whether Base does not exceed Max.
func (b Bounds) Validate() error {
	if b.Base > b.Max {
		return fmt.Errorf("%w: base volume %d exceeds max volume %d", ErrBounds, b.Base, b.Max)
	}
	return nil
}

// Clamp limits v to [Base, Max].
func (b Bounds) Clamp(v int64) int64 {
	return max(b.Base, min(v, b.Max))
}

// Config holds the tunable parameters of the feedback law.
type Config struct {
	// FilterCoeff is the smoothing coefficient, in [0, 1].
	FilterCoeff float64
	// PeakDecay scales the volume step, >= 0.
	PeakDecay float64
	Verbose   bool
}

// DefaultConfig returns the tuning the tool ships with.
func DefaultConfig() Config {
	return Config{
		FilterCoeff: DefaultFilterCoeff,
		PeakDecay:   DefaultPeakDecay,
		Verbose:     true,
	}
}

// Decision records one Adjust call.
type Decision struct {
	MonitorPeak   uint32
	CapturePeak   uint32
	Delta         int64
	CurrentVolume int64
	Modifier      int64
	NextVolume    int64
	// Applied is false when the write was gated or failed.
	Applied bool
}

// Controller turns smoothed peak pairs into volume changes. It keeps one
// filter state per stream for its lifetime and is not safe for concurrent use.
type Controller struct {
	mixer  Mixer
	bounds Bounds
	cfg    Config
	tracer Tracer

	monitor Smoother
	capture Smoother
}

// NewController returns a controller writing to mixer within bounds. tracer
// may be nil.
func NewController(mixer Mixer, bounds Bounds, cfg Config, tracer Tracer) *Controller {
	return &Controller{
		mixer:  mixer,
		bounds: bounds,
		cfg:    cfg,
		tracer: tracer,
	}
}

// Adjust smooths both raw peaks and moves the mixer volume by the resulting
// step. The write is skipped while the smoothed monitor peak is zero, since a
// silent reference says nothing about loudness. Mixer events are processed on
// every call. Returned errors come from the mixer only.
func (c *Controller) Adjust(monitorRaw, captureRaw uint32) (Decision, error) {
	d := Decision{
		MonitorPeak: c.monitor.Apply(c.cfg.FilterCoeff, monitorRaw),
		CapturePeak: c.capture.Apply(c.cfg.FilterCoeff, captureRaw),
	}
	d.Delta = int64(d.CapturePeak) - int64(d.MonitorPeak)
	d.Modifier = int64(math.Floor(c.cfg.PeakDecay * float64(d.Delta) / VolumeScale))

	var errs []error
	current, err := c.mixer.Volume()
	if err != nil {
		errs = append(errs, fmt.Errorf("get volume: %w", err))
	} else {
		d.CurrentVolume = current
		d.NextVolume = c.bounds.Clamp(current + d.Modifier)
		if d.MonitorPeak != 0 {
			if err := c.mixer.SetVolume(d.NextVolume); err != nil {
				errs = append(errs, fmt.Errorf("set volume %d: %w", d.NextVolume, err))
			} else {
				d.Applied = true
			}
		}
	}

	if c.cfg.Verbose && c.tracer != nil {
		c.tracer.Trace(d)
	}

	if err := c.mixer.HandleEvents(); err != nil {
		errs = append(errs, fmt.Errorf("handle mixer events: %w", err))
	}
	return d, errors.Join(errs...)
}

// SetVerbose takes effect on the next Adjust call, as do the other setters.
// Values are not validated.
func (c *Controller) SetVerbose(verbose bool) {
	c.cfg.Verbose = verbose
}

func (c *Controller) SetFilterCoeff(coeff float64) {
	c.cfg.FilterCoeff = coeff
}

func (c *Controller) SetPeakDecay(decay float64) {
	c.cfg.PeakDecay = decay
}

// Config returns the current tuning.
func (c *Controller) Config() Config {
	return c.cfg
}

// Bounds returns the volume bounds fixed at construction.
func (c *Controller) Bounds() Bounds {
	return c.bounds
}
