package peak

import (
	"encoding/binary"
	"math"
)

// S16LE is the codec for signed 16-bit little-endian samples. Its silence
// pattern is all zero bits.
type S16LE struct{}

func (S16LE) Width() int { return 16 }

func (S16LE) SilenceMask() uint32 { return 0 }

// Peak walks every sample of the first frames frames, both channels included.
func (c S16LE) Peak(block []byte, frames int) uint32 {
	return PeakS16LE(block, frames*Channels, int16(c.SilenceMask()))
}

// PeakS16LE returns the maximum absolute value over the first samples 16-bit
// little-endian samples of block, each XORed with silenceMask first. The
// buffer is walked as one flat sequence regardless of channel layout. A
// sample whose magnitude has no positive int16 counterpart is clamped to
// math.MaxInt16.
func PeakS16LE(block []byte, samples int, silenceMask int16) uint32 {
	if n := len(block) / 2; samples > n {
		samples = n
	}

	var peak uint32
	for i := 0; i < samples; i++ {
		v := int16(binary.LittleEndian.Uint16(block[2*i:])) ^ silenceMask
		var mag uint32
		switch {
		case v == math.MinInt16:
			mag = math.MaxInt16
		case v < 0:
			mag = uint32(-v)
		default:
			mag = uint32(v)
		}
		if mag > peak {
			peak = mag
		}
	}
	return peak
}
