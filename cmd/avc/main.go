package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/avc/internal/alsa"
	"github.com/linuxmatters/avc/internal/audio"
	"github.com/linuxmatters/avc/internal/cli"
	"github.com/linuxmatters/avc/internal/control"
	"github.com/linuxmatters/avc/internal/logging"
	"github.com/linuxmatters/avc/internal/loop"
	"github.com/linuxmatters/avc/internal/mains"
	"github.com/linuxmatters/avc/internal/metrics"
	"github.com/linuxmatters/avc/internal/peak"
	"github.com/linuxmatters/avc/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	version = "0.0.1"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit status. Every path that reaches the control
// loop returns 1, as does every setup failure.
func run(args []string) int {
	cliArgs := &CLI{}
	parser, err := newParser(cliArgs)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		cli.PrintError(err.Error())
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) {
			_ = parseErr.Context.PrintUsage(false)
		}
		return 1
	}

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(os.Stdout, version)
		return 0
	}

	if err := cliArgs.validate(); err != nil {
		cli.PrintError(err.Error())
		_ = ctx.PrintUsage(false)
		return 1
	}

	logOut, closeLog, err := openLogOutput(cliArgs)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	defer closeLog()

	log, err := logging.New(cliArgs.logOptions(), logOut)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	metricsLn, err := listenMetrics(cliArgs)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}
	if metricsLn != nil {
		defer metricsLn.Close()
	}

	mixer, err := alsa.OpenMixer(cliArgs.Playback, cliArgs.MixerElement)
	if err != nil {
		cli.PrintError((&DeviceError{Op: "cannot open mixer on", Device: cliArgs.Playback, Err: err}).Error())
		return 1
	}
	defer mixer.Close()

	lo, hi, err := mixer.Range()
	if err != nil {
		cli.PrintError((&DeviceError{Op: "cannot read volume range of", Device: cliArgs.MixerElement, Err: err}).Error())
		return 1
	}

	if cliArgs.PrintRange {
		cli.PrintVolumeRange(os.Stdout, lo, hi)
		return 0
	}

	current := hi
	if cliArgs.BaseVolume == nil {
		if current, err = mixer.Volume(); err != nil {
			cli.PrintError((&DeviceError{Op: "cannot read volume of", Device: cliArgs.MixerElement, Err: err}).Error())
			return 1
		}
	}
	bounds, err := resolveBounds(cliArgs.BaseVolume, cliArgs.MaxVolume, lo, hi, current)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	format := peak.Format(cliArgs.Format)
	monitor, err := audio.Open(cliArgs.Looprec, format, cliArgs.Rate, log.WithField("stream", loop.Monitor.String()))
	if err != nil {
		cli.PrintError((&DeviceError{Op: "cannot open loop recording device", Device: cliArgs.Looprec, Err: err}).Error())
		return 1
	}
	defer monitor.Close()

	capture, err := audio.Open(cliArgs.Capture, format, cliArgs.Rate, log.WithField("stream", loop.Capture.String()))
	if err != nil {
		cli.PrintError((&DeviceError{Op: "cannot open capture device", Device: cliArgs.Capture, Err: err}).Error())
		return 1
	}
	defer capture.Close()

	var captureSource loop.Source = capture
	if cliArgs.HumFilter {
		detected := mains.Resolve(cliArgs.mainsHz())
		hum := mains.NewHumFilter(float64(detected.Hz), mains.DefaultHarmonics, mains.DefaultQ, capture.Rate(), peak.Channels)
		captureSource = audio.Filter(capture, hum)
		log.WithFields(logrus.Fields{
			"mains_hz": detected.Hz,
			"timezone": detected.Timezone,
			"country":  detected.Country,
			"notches":  hum.Frequencies(),
		}).Info("Hum filter enabled on capture stream")
	}

	log.WithFields(logrus.Fields{
		"looprec":       cliArgs.Looprec,
		"capture":       cliArgs.Capture,
		"playback":      cliArgs.Playback,
		"mixer_element": cliArgs.MixerElement,
		"base_volume":   bounds.Base,
		"max_volume":    bounds.Max,
		"dry_run":       cliArgs.DryRun,
	}).Info("Devices ready")

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	opts := []loop.Option{loop.WithLogger(log)}

	if metricsLn != nil {
		reg := prometheus.NewRegistry()
		opts = append(opts, loop.WithObserver(metrics.NewCollector(reg)))
		go func() {
			if err := metrics.Serve(runCtx, metricsLn, reg, log); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	var volumeMixer control.Mixer = mixer
	if cliArgs.DryRun {
		volumeMixer = control.DryRun(mixer, log)
	}

	var program *tea.Program
	var feed *ui.Feed
	if cliArgs.TUI {
		model := ui.NewModel(ui.Devices{
			Looprec:  cliArgs.Looprec,
			Capture:  cliArgs.Capture,
			Playback: cliArgs.Playback,
			Element:  cliArgs.MixerElement,
		}, bounds, cliArgs.DryRun, cancel)
		program = tea.NewProgram(model, tea.WithAltScreen())
		feed = ui.NewFeed(program.Send)
		opts = append(opts, loop.WithObserver(feed))
	}

	controller := control.NewController(volumeMixer, bounds, cliArgs.controlConfig(), newTracer(cliArgs, log))
	l, err := loop.New(captureSource, monitor, controller, cliArgs.loopConfig(), opts...)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	start := time.Now()
	var runErr error
	if program != nil {
		done := make(chan error, 1)
		go func() {
			err := l.Run(runCtx)
			feed.Done(err, l.Stats())
			done <- err
		}()

		if _, err := program.Run(); err != nil {
			cli.PrintError(fmt.Sprintf("UI error: %v", err))
		}
		// The monitor may exit before the loop; reads finish within one block.
		cancel()
		runErr = <-done
	} else {
		runErr = l.Run(runCtx)
	}

	switch {
	case errors.Is(runErr, loop.ErrUnrecoverable):
		log.WithError(runErr).Error("Control loop stopped")
		if program != nil {
			cli.PrintError(runErr.Error())
		}
	case errors.Is(runErr, context.Canceled):
		log.Info("Control loop cancelled")
	default:
		log.WithError(runErr).Error("Control loop stopped")
	}

	if err := logging.WriteSummary(os.Stdout, logging.Summary{
		Stats:   l.Stats(),
		Bounds:  bounds,
		Elapsed: time.Since(start),
		Reason:  runErr,
	}); err != nil {
		log.WithError(err).Warn("Failed to write summary")
	}

	return 1
}

// openLogOutput picks where log records go. The live monitor owns the
// terminal, so without a log file its logs are dropped.
func openLogOutput(c *CLI) (io.Writer, func(), error) {
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
	if c.TUI {
		return io.Discard, func() {}, nil
	}
	return os.Stderr, func() {}, nil
}

// listenMetrics binds the metrics address, if one is set, so a busy port
// fails setup before any device is opened.
func listenMetrics(c *CLI) (net.Listener, error) {
	if c.MetricsAddr == "" {
		return nil, nil
	}
	ln, err := metrics.Listen(c.MetricsAddr)
	if err != nil {
		return nil, &DeviceError{Op: "cannot listen for metrics on", Device: c.MetricsAddr, Err: err}
	}
	return ln, nil
}

// newTracer returns the per-cycle decision tracer. The live monitor shows
// decisions itself, so it only keeps the tracer when logs go to a file.
func newTracer(c *CLI, log *logrus.Entry) control.Tracer {
	if c.TUI && c.LogFile == "" {
		return nil
	}
	return logging.NewTracer(log)
}
