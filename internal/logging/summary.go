package logging

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/linuxmatters/avc/internal/control"
	"github.com/linuxmatters/avc/internal/loop"
)

// Summary describes a finished run.
type Summary struct {
	Stats   loop.Stats
	Bounds  control.Bounds
	Elapsed time.Duration
	// Reason is why the loop stopped.
	Reason error
}

// WriteSummary renders s as two tables: loop activity, then per-stream reads.
func WriteSummary(w io.Writer, s Summary) error {
	st := s.Stats

	activity := NewTable("Loop", "Value")
	activity.Add("Run time", s.Elapsed.Round(time.Millisecond).String())
	activity.Add("Cycles", formatCount(st.Cycles))
	activity.Add("Adjustments", formatCount(st.Adjusts))
	activity.Add("Skipped cycles", formatCount(st.Skipped)).WithNote(skippedNote(st))
	activity.Add("Volume writes", formatCount(st.Writes)).WithNote(heldNote(st))
	activity.Add("Mixer errors", formatCount(st.MixerErrors))
	activity.Add("Volume range", fmt.Sprintf("%d..%d", s.Bounds.Base, s.Bounds.Max))
	if st.Adjusts > 0 {
		activity.Add("Last volume", strconv.FormatInt(st.Last.NextVolume, 10))
		activity.Add("Last step", formatStep(st.Last.Modifier))
	}

	streams := NewTable("Streams", "Capture", "Monitor")
	streams.Add("Reads", formatCount(st.Capture.Reads), formatCount(st.Monitor.Reads))
	streams.Add("Read failures", formatCount(st.Capture.ReadFailures), formatCount(st.Monitor.ReadFailures))
	streams.Add("Recoveries", formatCount(st.Capture.Recoveries), formatCount(st.Monitor.Recoveries))
	peaks := streams.Add("Smoothed peak").WithUnit("dBFS")
	if st.Adjusts > 0 {
		peaks.Values = []string{
			formatPeakDBFS(st.Last.CapturePeak, 1),
			formatPeakDBFS(st.Last.MonitorPeak, 1),
		}
	}

	if _, err := fmt.Fprintf(w, "\n%s\n%s", activity, streams); err != nil {
		return err
	}
	if s.Reason != nil {
		if _, err := fmt.Fprintf(w, "\nStopped: %v\n", s.Reason); err != nil {
			return err
		}
	}
	return nil
}

func skippedNote(st loop.Stats) string {
	if st.Skipped == 0 {
		return ""
	}
	return formatShare(st.Skipped, st.Cycles) + " of cycles"
}

func heldNote(st loop.Stats) string {
	held := st.Adjusts - min(st.Writes, st.Adjusts)
	if held == 0 {
		return ""
	}
	return fmt.Sprintf("%d held (silent monitor or mixer error)", held)
}
