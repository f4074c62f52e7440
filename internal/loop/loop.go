// Package loop drives the volume controller from two capture streams: one
// block is read from each stream per cycle, their peaks are measured and the
// pair is handed to the controller.
package loop

import (
	"context"
	"errors"
	"fmt"

	"github.com/linuxmatters/avc/internal/control"
	"github.com/linuxmatters/avc/internal/peak"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrUnrecoverable wraps the read error that ended the loop.
var ErrUnrecoverable = errors.New("unrecoverable stream error")

// Source is one capture stream.
type Source interface {
	// Read fills block with whole frames, blocking until they are available.
	Read(block []byte) error
	// Recover attempts to bring the stream back after a failed Read.
	Recover(err error) error
	Close() error
}

// Adjuster consumes one raw peak pair per cycle.
type Adjuster interface {
	Adjust(monitorRaw, captureRaw uint32) (control.Decision, error)
}

// Observer is notified of loop activity, from the loop goroutine.
type Observer interface {
	ObserveCycle(d control.Decision)
	ObserveReadFailure(stream Stream, recovered bool)
}

// Stream identifies one of the two sources.
type Stream int

const (
	Capture Stream = iota
	Monitor
)

func (s Stream) String() string {
	switch s {
	case Capture:
		return "capture"
	case Monitor:
		return "monitor"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

// State is the loop's position in its lifecycle.
type State int

const (
	Running State = iota
	Recovering
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Recovering:
		return "recovering"
	case ShuttingDown:
		return "shutting down"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ReadError is a failed read on one stream.
type ReadError struct {
	Stream Stream
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read from %s stream failed: %v", e.Stream, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Config sizes the blocks read each cycle.
type Config struct {
	Format       peak.Format
	BufferFrames int
	// ConcurrentReads reads both streams in parallel and joins them before
	// measuring, narrowing the skew between the two blocks.
	ConcurrentReads bool
}

// DefaultBufferFrames is the block size in frames.
const DefaultBufferFrames = 128

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for loop events.
func WithLogger(log *logrus.Entry) Option {
	return func(l *Loop) { l.log = log }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(l *Loop) { l.observers = append(l.observers, o) }
}

// Loop reads capture and monitor blocks and feeds their peaks to an Adjuster.
// It runs on the caller's goroutine and does not own its sources.
type Loop struct {
	capture Source
	monitor Source
	adj     Adjuster
	codec   peak.Codec
	cfg     Config

	captureBuf []byte
	monitorBuf []byte

	state     State
	stats     Stats
	log       *logrus.Entry
	observers []Observer
}

// New returns a loop reading cfg.BufferFrames frames per block.
func New(capture, monitor Source, adj Adjuster, cfg Config, opts ...Option) (*Loop, error) {
	if cfg.BufferFrames <= 0 {
		return nil, fmt.Errorf("buffer frames must be positive, got %d", cfg.BufferFrames)
	}
	codec, err := peak.Lookup(cfg.Format)
	if err != nil {
		return nil, err
	}

	size := cfg.BufferFrames * peak.FrameBytes(codec)
	l := &Loop{
		capture:    capture,
		monitor:    monitor,
		adj:        adj,
		codec:      codec,
		cfg:        cfg,
		captureBuf: make([]byte, size),
		monitorBuf: make([]byte, size),
		state:      Running,
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run cycles until a stream cannot be recovered or ctx is cancelled. The
// returned error wraps ErrUnrecoverable and the final ReadError in the first
// case, and ctx.Err() in the second. Reads are not interrupted by ctx.
func (l *Loop) Run(ctx context.Context) error {
	l.log.WithFields(logrus.Fields{
		"function":      "Loop.Run",
		"format":        l.cfg.Format,
		"buffer_frames": l.cfg.BufferFrames,
		"concurrent":    l.cfg.ConcurrentReads,
	}).Info("Starting control loop")

	defer l.setState(Terminated)

	for {
		if err := ctx.Err(); err != nil {
			l.setState(ShuttingDown)
			return err
		}
		if err := l.cycle(); err != nil {
			l.setState(ShuttingDown)
			return err
		}
	}
}

// readStatus is the outcome of reading one block.
type readStatus int

const (
	readOK readStatus = iota
	readRecovered
	readFailed
)

func (l *Loop) cycle() error {
	var captureStatus, monitorStatus readStatus
	var err error

	if l.cfg.ConcurrentReads {
		captureStatus, monitorStatus, err = l.readConcurrent()
	} else {
		captureStatus, monitorStatus, err = l.readSequential()
	}

	l.report(Capture, captureStatus)
	l.report(Monitor, monitorStatus)
	if err != nil {
		return err
	}

	l.stats.Cycles++
	if captureStatus != readOK || monitorStatus != readOK {
		// recovered, but the block is not trusted
		l.stats.Skipped++
		l.setState(Running)
		return nil
	}

	capturePeak := l.codec.Peak(l.captureBuf, l.cfg.BufferFrames)
	monitorPeak := l.codec.Peak(l.monitorBuf, l.cfg.BufferFrames)

	d, err := l.adj.Adjust(monitorPeak, capturePeak)
	l.stats.Adjusts++
	if d.Applied {
		l.stats.Writes++
	}
	l.stats.Last = d
	if err != nil {
		l.stats.MixerErrors++
		l.log.WithFields(logrus.Fields{
			"function": "Loop.cycle",
			"error":    err.Error(),
		}).Warn("Mixer operation failed")
	}
	for _, o := range l.observers {
		o.ObserveCycle(d)
	}
	return nil
}

func (l *Loop) readSequential() (capture, monitor readStatus, err error) {
	capture, err = l.read(Capture, l.capture, l.captureBuf, &l.stats.Capture)
	if err != nil {
		return capture, readOK, err
	}
	monitor, err = l.read(Monitor, l.monitor, l.monitorBuf, &l.stats.Monitor)
	return capture, monitor, err
}

func (l *Loop) readConcurrent() (capture, monitor readStatus, err error) {
	var g errgroup.Group
	g.Go(func() error {
		var err error
		capture, err = l.read(Capture, l.capture, l.captureBuf, &l.stats.Capture)
		return err
	})
	g.Go(func() error {
		var err error
		monitor, err = l.read(Monitor, l.monitor, l.monitorBuf, &l.stats.Monitor)
		return err
	})
	err = g.Wait()
	return capture, monitor, err
}

// read fills buf from src, attempting recovery when the read fails. Only the
// per-stream stats are touched so both streams may be read in parallel.
func (l *Loop) read(stream Stream, src Source, buf []byte, stats *StreamStats) (readStatus, error) {
	readErr := src.Read(buf)
	if readErr == nil {
		stats.Reads++
		return readOK, nil
	}

	stats.ReadFailures++
	log := l.log.WithFields(logrus.Fields{
		"function": "Loop.read",
		"stream":   stream.String(),
		"error":    readErr.Error(),
	})
	log.Warn("Stream read failed, recovering")

	if err := src.Recover(readErr); err != nil {
		log.WithField("recover_error", err.Error()).Error("Failed to recover stream")
		rerr := &ReadError{Stream: stream, Err: readErr}
		return readFailed, fmt.Errorf("%w: %w (recovery: %v)", ErrUnrecoverable, rerr, err)
	}

	stats.Recoveries++
	return readRecovered, nil
}

// report moves the state machine through Recovering for a failed read and
// notifies observers.
func (l *Loop) report(stream Stream, status readStatus) {
	if status == readOK {
		return
	}
	l.setState(Recovering)
	for _, o := range l.observers {
		o.ObserveReadFailure(stream, status == readRecovered)
	}
}

func (l *Loop) setState(s State) {
	if l.state == s {
		return
	}
	l.log.WithFields(logrus.Fields{
		"function": "Loop.setState",
		"from":     l.state.String(),
		"to":       s.String(),
	}).Debug("Loop state change")
	l.state = s
}

// State returns the current lifecycle state. It must be called from the
// goroutine running the loop or after Run has returned.
func (l *Loop) State() State {
	return l.state
}

// Stats returns counters accumulated so far, with the same restriction as
// State.
func (l *Loop) Stats() Stats {
	return l.stats
}
