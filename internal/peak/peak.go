// Package peak measures the peak sample magnitude of interleaved PCM blocks.
//
// Each supported sample encoding is a Codec registered under its Format name,
// so the control loop selects a codec once at startup and never branches on
// the encoding itself.
package peak

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Channels is the number of interleaved channels in every block.
const Channels = 2

// Format names a PCM sample encoding, using the ALSA spelling.
type Format string

// FormatS16LE is signed 16-bit little-endian PCM.
const FormatS16LE Format = "S16_LE"

// ErrUnknownFormat is returned by Lookup for formats with no registered codec.
var ErrUnknownFormat = errors.New("unknown sample format")

// Codec computes peak magnitudes for one sample encoding.
type Codec interface {
	// Width is the sample width in bits.
	Width() int
	// SilenceMask is the bit pattern of digital silence for the encoding.
	SilenceMask() uint32
	// Peak returns the largest sample magnitude found in the first frames
	// frames of block.
	Peak(block []byte, frames int) uint32
}

// FrameBytes returns the size in bytes of one interleaved frame.
func FrameBytes(c Codec) int {
	return c.Width() / 8 * Channels
}

var (
	registryMu sync.RWMutex
	registry   = map[Format]Codec{}
)

// Register makes a codec available under the given format name, replacing any
// codec previously registered under it.
func Register(format Format, c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[format] = c
}

// Lookup returns the codec registered for format.
func Lookup(format Format) (Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return c, nil
}

// Formats lists the registered format names in sorted order.
func Formats() []Format {
	registryMu.RLock()
	defer registryMu.RUnlock()
	formats := make([]Format, 0, len(registry))
	for f := range registry {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

func init() {
	Register(FormatS16LE, S16LE{})
}
