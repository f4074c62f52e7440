// Package alsa opens ALSA PCM capture streams and simple-mixer playback
// controls. Without cgo on Linux every open fails with ErrUnsupported.
package alsa

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned when the binary was built without ALSA.
	ErrUnsupported = errors.New("ALSA support not built in")
	// ErrControlNotFound is returned when the named mixer element is missing.
	ErrControlNotFound = errors.New("mixer control not found")
	// ErrUnsupportedFormat is returned for sample formats ALSA capture is not
	// wired for.
	ErrUnsupportedFormat = errors.New("unsupported sample format")
)

// Error is a failed ALSA call, carrying the driver's error code and message.
type Error struct {
	Op     string
	Device string
	Code   int
	Msg    string
}

func (e *Error) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Device, e.Msg)
}
