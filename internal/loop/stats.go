package loop

import "github.com/linuxmatters/avc/internal/control"

// StreamStats counts reads on one stream.
type StreamStats struct {
	Reads        uint64
	ReadFailures uint64
	Recoveries   uint64
}

// Stats counts loop activity since Run started.
type Stats struct {
	// Cycles counts completed read pairs, including skipped ones.
	Cycles uint64
	// Adjusts counts cycles that reached the controller.
	Adjusts uint64
	// Skipped counts cycles dropped after a recovered read.
	Skipped uint64
	// Writes counts volume writes the controller performed.
	Writes      uint64
	MixerErrors uint64

	Capture StreamStats
	Monitor StreamStats

	// Last is the most recent controller decision.
	Last control.Decision
}
