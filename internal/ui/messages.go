package ui

import (
	"time"

	"github.com/linuxmatters/avc/internal/control"
	"github.com/linuxmatters/avc/internal/loop"
)

// CycleMsg carries one controller decision
type CycleMsg struct {
	Decision control.Decision
}

// ReadFailureMsg reports a failed block read and whether it was recovered
type ReadFailureMsg struct {
	Stream    loop.Stream
	Recovered bool
}

// LoopDoneMsg indicates the control loop has returned
type LoopDoneMsg struct {
	Err   error
	Stats loop.Stats
}

// tickMsg is sent for spinner/timer animation
type tickMsg time.Time
