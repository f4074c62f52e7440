package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/avc/internal/control"
	"github.com/linuxmatters/avc/internal/loop"
)

// Feed forwards loop events to a running program. It implements
// loop.Observer.
type Feed struct {
	send func(tea.Msg)
}

// NewFeed returns a feed delivering messages through send, usually
// (*tea.Program).Send.
func NewFeed(send func(tea.Msg)) *Feed {
	return &Feed{send: send}
}

func (f *Feed) ObserveCycle(d control.Decision) {
	f.send(CycleMsg{Decision: d})
}

func (f *Feed) ObserveReadFailure(stream loop.Stream, recovered bool) {
	f.send(ReadFailureMsg{Stream: stream, Recovered: recovered})
}

// Done reports the loop's result and lets the program exit.
func (f *Feed) Done(err error, stats loop.Stats) {
	f.send(LoopDoneMsg{Err: err, Stats: stats})
}
