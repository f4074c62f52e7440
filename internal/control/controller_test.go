package control

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMixer records calls made by the controller.
type fakeMixer struct {
	volume   int64
	sets     []int64
	events   int
	getErr   error
	setErr   error
	eventErr error
}

func (m *fakeMixer) Volume() (int64, error) {
	return m.volume, m.getErr
}

func (m *fakeMixer) SetVolume(v int64) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets = append(m.sets, v)
	m.volume = v
	return nil
}

func (m *fakeMixer) HandleEvents() error {
	m.events++
	return m.eventErr
}

type recordingTracer struct {
	decisions []Decision
}

func (r *recordingTracer) Trace(d Decision) {
	r.decisions = append(r.decisions, d)
}

func newTestController(m Mixer, tracer Tracer) *Controller {
	return NewController(m, Bounds{Base: 0, Max: 100}, DefaultConfig(), tracer)
}

func TestAdjustScenarios(t *testing.T) {
	mixer := &fakeMixer{volume: 50}
	c := newTestController(mixer, nil)

	// First call: filters start from zero.
	d, err := c.Adjust(1000, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), d.MonitorPeak)
	assert.Equal(t, uint32(1000), d.CapturePeak)
	assert.Equal(t, int64(800), d.Delta)
	assert.Equal(t, int64(0), d.Modifier)
	assert.Equal(t, int64(50), d.CurrentVolume)
	assert.Equal(t, int64(50), d.NextVolume)
	assert.True(t, d.Applied)

	// Second call with the same raw input.
	d, err = c.Adjust(1000, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint32(360), d.MonitorPeak)
	assert.Equal(t, uint32(1800), d.CapturePeak)
	assert.Equal(t, int64(1440), d.Delta)
	assert.Equal(t, int64(1), d.Modifier)
	assert.Equal(t, int64(51), d.NextVolume)

	assert.Equal(t, []int64{50, 51}, mixer.sets)
	assert.Equal(t, 2, mixer.events)
}

func TestAdjustSilentMonitorGate(t *testing.T) {
	mixer := &fakeMixer{volume: 50}
	c := newTestController(mixer, nil)

	// Monitor filter state becomes 200.
	_, err := c.Adjust(1000, 1000)
	require.NoError(t, err)
	require.Len(t, mixer.sets, 1)

	// 0.8^n * 200 drops below 1 on the 24th silent cycle.
	for cycle := 1; cycle <= 30; cycle++ {
		d, err := c.Adjust(0, 0)
		require.NoError(t, err)

		if cycle < 24 {
			assert.NotZero(t, d.MonitorPeak, "cycle %d", cycle)
			assert.True(t, d.Applied, "cycle %d", cycle)
		} else {
			assert.Zero(t, d.MonitorPeak, "cycle %d", cycle)
			assert.False(t, d.Applied, "cycle %d", cycle)
		}
	}

	assert.Len(t, mixer.sets, 24, "one write per cycle until the gate closes")
	assert.Equal(t, 31, mixer.events, "events are handled on every cycle")
}

func TestAdjustZeroMonitorNeverWrites(t *testing.T) {
	mixer := &fakeMixer{volume: 10}
	c := newTestController(mixer, nil)

	for i := 0; i < 5; i++ {
		d, err := c.Adjust(0, 30000)
		require.NoError(t, err)
		assert.Equal(t, int64(10), d.CurrentVolume)
		assert.Greater(t, d.NextVolume, int64(10), "the decision is still computed")
	}
	assert.Empty(t, mixer.sets)
	assert.Equal(t, 5, mixer.events)
}

func TestAdjustClamp(t *testing.T) {
	tests := []struct {
		name    string
		volume  int64
		monitor uint32
		capture uint32
		want    int64
	}{
		{"loud_capture_hits_max", 95, 1, 32767, 80},
		{"loud_monitor_hits_base", 25, 32767, 0, 20},
		{"below_base_lifted", 5, 1000, 1000, 20},
		{"above_max_lowered", 90, 1000, 1000, 80},
		{"inside_range", 50, 1000, 1000, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mixer := &fakeMixer{volume: tt.volume}
			cfg := DefaultConfig()
			cfg.FilterCoeff = 1
			c := NewController(mixer, Bounds{Base: 20, Max: 80}, cfg, nil)

			d, err := c.Adjust(tt.monitor, tt.capture)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.NextVolume)
			assert.Equal(t, []int64{tt.want}, mixer.sets)
		})
	}
}

func TestAdjustMonotonicInDelta(t *testing.T) {
	// Pass-through filter so each call sees exactly the raw peaks.
	next := func(monitor, capture uint32) int64 {
		mixer := &fakeMixer{volume: 50}
		cfg := DefaultConfig()
		cfg.FilterCoeff = 1
		c := NewController(mixer, Bounds{Base: 0, Max: 100}, cfg, nil)
		d, err := c.Adjust(monitor, capture)
		require.NoError(t, err)
		return d.NextVolume
	}

	prev := int64(-1)
	for capture := uint32(0); capture <= 32767; capture += 997 {
		v := next(5000, capture)
		assert.GreaterOrEqual(t, v, prev, "capture=%d", capture)
		assert.GreaterOrEqual(t, v, int64(0))
		assert.LessOrEqual(t, v, int64(100))
		prev = v
	}
}

func TestAdjustTracer(t *testing.T) {
	mixer := &fakeMixer{volume: 50}
	tracer := &recordingTracer{}
	c := newTestController(mixer, tracer)

	_, err := c.Adjust(1000, 5000)
	require.NoError(t, err)
	require.Len(t, tracer.decisions, 1)
	assert.Equal(t, int64(800), tracer.decisions[0].Delta)

	c.SetVerbose(false)
	_, err = c.Adjust(1000, 5000)
	require.NoError(t, err)
	assert.Len(t, tracer.decisions, 1, "no trace once verbose is off")
}

func TestSettersApplyNextCall(t *testing.T) {
	mixer := &fakeMixer{volume: 50}
	c := newTestController(mixer, nil)

	c.SetFilterCoeff(1)
	c.SetPeakDecay(2)
	assert.Equal(t, Config{FilterCoeff: 1, PeakDecay: 2, Verbose: true}, c.Config())

	d, err := c.Adjust(1000, 3000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), d.MonitorPeak)
	assert.Equal(t, int64(4), d.Modifier)
	assert.Equal(t, int64(54), d.NextVolume)

	c.SetFilterCoeff(0)
	d, err = c.Adjust(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), d.MonitorPeak, "alpha 0 freezes the filter")
}

func TestAdjustMixerErrors(t *testing.T) {
	errDevice := errors.New("device gone")

	t.Run("get", func(t *testing.T) {
		mixer := &fakeMixer{volume: 50, getErr: errDevice}
		c := newTestController(mixer, nil)

		d, err := c.Adjust(1000, 5000)
		require.ErrorIs(t, err, errDevice)
		assert.False(t, d.Applied)
		assert.Empty(t, mixer.sets)
		assert.Equal(t, 1, mixer.events)
	})

	t.Run("set", func(t *testing.T) {
		mixer := &fakeMixer{volume: 50, setErr: errDevice}
		c := newTestController(mixer, nil)

		d, err := c.Adjust(1000, 5000)
		require.ErrorIs(t, err, errDevice)
		assert.False(t, d.Applied)
		assert.Equal(t, 1, mixer.events)
	})

	t.Run("events", func(t *testing.T) {
		mixer := &fakeMixer{volume: 50, eventErr: errDevice}
		c := newTestController(mixer, nil)

		d, err := c.Adjust(1000, 5000)
		require.ErrorIs(t, err, errDevice)
		assert.True(t, d.Applied)
	})
}

func TestBounds(t *testing.T) {
	assert.NoError(t, Bounds{Base: 10, Max: 10}.Validate())
	assert.ErrorIs(t, Bounds{Base: 11, Max: 10}.Validate(), ErrBounds)

	b := Bounds{Base: -5, Max: 5}
	assert.Equal(t, int64(-5), b.Clamp(-100))
	assert.Equal(t, int64(5), b.Clamp(100))
	assert.Equal(t, int64(0), b.Clamp(0))
}

func TestDryRun(t *testing.T) {
	mixer := &fakeMixer{volume: 42}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := DryRun(mixer, logrus.NewEntry(logger))
	v, err := m.Volume()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	require.NoError(t, m.SetVolume(7))
	assert.Empty(t, mixer.sets)
	assert.Equal(t, int64(42), mixer.volume)

	require.NoError(t, m.HandleEvents())
	assert.Equal(t, 1, mixer.events)
}
