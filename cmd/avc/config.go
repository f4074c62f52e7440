package main

import (
	"github.com/alecthomas/kong"
	"github.com/linuxmatters/avc/internal/cli"
	"github.com/linuxmatters/avc/internal/control"
	"github.com/linuxmatters/avc/internal/logging"
	"github.com/linuxmatters/avc/internal/loop"
	"github.com/linuxmatters/avc/internal/peak"
)

// configPaths are searched for a JSON config file whose keys are flag names.
var configPaths = []string{"/etc/avc.json", "~/.config/avc/config.json"}

// CLI defines the command-line interface
type CLI struct {
	Version bool            `short:"v" help:"Show version information"`
	Config  kong.ConfigFlag `short:"c" help:"Path to JSON config file (optional)"`

	Looprec      string `name:"looprec" group:"devices" short:"L" placeholder:"DEVICE" help:"Loop recording device carrying what is played back"`
	Capture      string `name:"capture" group:"devices" short:"C" placeholder:"DEVICE" help:"Capture device picking up the environment"`
	Playback     string `name:"playback" group:"devices" short:"P" placeholder:"CARD" help:"Playback device whose mixer is adjusted"`
	MixerElement string `name:"mixer_element" group:"devices" short:"M" default:"Master" placeholder:"NAME" help:"Mixer element for volume control"`
	BaseVolume   *int64 `name:"base_volume" group:"devices" placeholder:"VOLUME" help:"Lowest volume to set (if not provided use current volume)"`
	MaxVolume    *int64 `name:"max_volume" group:"devices" placeholder:"VOLUME" help:"Highest volume to set (if not provided use mixer maximum)"`
	PrintRange   bool   `name:"print_volume_range" group:"devices" help:"Print (min, max) volume of the playback mixer element and exit"`

	FilterCoeff float64 `name:"filter_coeff" group:"control" default:"0.2" help:"Peak smoothing coefficient, 0 to 1"`
	PeakDecay   float64 `name:"peak_decay" group:"control" default:"0.8" help:"Scale of the volume step per unit of peak difference"`
	Verbose     bool    `name:"verbose" group:"control" default:"true" negatable:"" help:"Log every volume decision"`

	Rate            uint   `name:"rate" group:"stream" default:"8000" help:"Capture sample rate in Hz"`
	BufferFrames    int    `name:"buffer_frames" group:"stream" default:"128" help:"Frames read per block"`
	Format          string `name:"format" group:"stream" default:"S16_LE" help:"Capture sample format"`
	ConcurrentReads bool   `name:"concurrent_reads" group:"stream" help:"Read both streams concurrently each cycle"`

	HumFilter bool   `name:"hum_filter" group:"stream" help:"Notch mains hum out of the capture stream before measuring it"`
	MainsHz   string `name:"mains_hz" group:"stream" default:"auto" enum:"auto,50,60" help:"Mains frequency for the hum filter (auto uses the system timezone)"`

	LogLevel    string `name:"log_level" group:"output" default:"info" enum:"trace,debug,info,warn,warning,error,fatal,panic" help:"Log level"`
	LogFormat   string `name:"log_format" group:"output" default:"text" enum:"text,json" help:"Log output format"`
	LogFile     string `name:"log_file" group:"output" type:"path" help:"Write logs to this file instead of stderr"`
	TUI         bool   `name:"tui" group:"output" help:"Show a live monitor instead of log lines"`
	MetricsAddr string `name:"metrics_addr" group:"output" placeholder:"HOST:PORT" help:"Serve Prometheus metrics on this address"`
	DryRun      bool   `name:"dry_run" group:"control" help:"Compute volume changes without writing them"`
}

func newParser(c *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("avc"),
		kong.Description("Automatic volume compensation: raises playback volume as ambient noise rises."),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Configuration(kong.JSON, configPaths...),
		kong.ExplicitGroups([]kong.Group{
			{Key: "devices", Title: "Devices"},
			{Key: "control", Title: "Control"},
			{Key: "stream", Title: "Capture streams"},
			{Key: "output", Title: "Output"},
		}),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	}, options...)
	return kong.New(c, options...)
}

// validate checks settings that do not need a device.
func (c *CLI) validate() error {
	if !c.PrintRange {
		if c.Looprec == "" {
			return configErrorf("loop recording device required")
		}
		if c.Capture == "" {
			return configErrorf("capture recording device required")
		}
	}
	if c.Playback == "" {
		return configErrorf("playback device required")
	}

	if c.FilterCoeff < 0 || c.FilterCoeff > 1 {
		return configErrorf("filter coefficient must be within [0, 1], got %g", c.FilterCoeff)
	}
	if c.PeakDecay < 0 {
		return configErrorf("peak decay must not be negative, got %g", c.PeakDecay)
	}
	if c.Rate == 0 {
		return configErrorf("sample rate must be positive")
	}
	if c.BufferFrames <= 0 {
		return configErrorf("buffer frames must be positive, got %d", c.BufferFrames)
	}
	if _, err := peak.Lookup(peak.Format(c.Format)); err != nil {
		return configErrorf("%v (known: %v)", err, peak.Formats())
	}
	if c.HumFilter && peak.Format(c.Format) != peak.FormatS16LE {
		return configErrorf("hum filter needs %s samples, got %s", peak.FormatS16LE, c.Format)
	}
	return nil
}

// mainsHz returns the forced mains frequency, or 0 to detect it.
func (c *CLI) mainsHz() int {
	switch c.MainsHz {
	case "50":
		return 50
	case "60":
		return 60
	default:
		return 0
	}
}

func (c *CLI) controlConfig() control.Config {
	return control.Config{
		FilterCoeff: c.FilterCoeff,
		PeakDecay:   c.PeakDecay,
		Verbose:     c.Verbose,
	}
}

func (c *CLI) loopConfig() loop.Config {
	return loop.Config{
		Format:          peak.Format(c.Format),
		BufferFrames:    c.BufferFrames,
		ConcurrentReads: c.ConcurrentReads,
	}
}

func (c *CLI) logOptions() logging.Options {
	return logging.Options{Level: c.LogLevel, Format: c.LogFormat}
}

// resolveBounds derives the controller's volume bounds. An explicit base is
// raised to the element minimum, otherwise the current volume is used; an
// explicit max is lowered to the element maximum, otherwise the maximum is
// used.
func resolveBounds(baseFlag, maxFlag *int64, lo, hi, current int64) (control.Bounds, error) {
	b := control.Bounds{Base: current, Max: hi}
	if baseFlag != nil {
		b.Base = max(*baseFlag, lo)
	}
	if maxFlag != nil {
		b.Max = min(*maxFlag, hi)
	}
	if err := b.Validate(); err != nil {
		return b, &ConfigError{Msg: err.Error(), Err: err}
	}
	return b, nil
}
