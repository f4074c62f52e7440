package mains

import (
	"encoding/binary"
	"math"
)

// Notch defaults for mains hum: the fundamental plus three harmonics, narrow
// enough to leave speech intact.
const (
	DefaultHarmonics = 4
	DefaultQ         = 30.0
)

// biquad is one second-order section in direct form I, with separate state
// per interleaved channel.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 []float64
	y1, y2 []float64
}

func newNotch(freq, q, rate float64, channels int) *biquad {
	w0 := 2 * math.Pi * freq / rate
	alpha := math.Sin(w0) / (2 * q)
	cosw := math.Cos(w0)
	a0 := 1 + alpha
	return &biquad{
		b0: 1 / a0,
		b1: -2 * cosw / a0,
		b2: 1 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
		x1: make([]float64, channels),
		x2: make([]float64, channels),
		y1: make([]float64, channels),
		y2: make([]float64, channels),
	}
}

func (s *biquad) step(ch int, x float64) float64 {
	y := s.b0*x + s.b1*s.x1[ch] + s.b2*s.x2[ch] - s.a1*s.y1[ch] - s.a2*s.y2[ch]
	s.x2[ch], s.x1[ch] = s.x1[ch], x
	s.y2[ch], s.y1[ch] = s.y1[ch], y
	return y
}

func (s *biquad) reset() {
	clear(s.x1)
	clear(s.x2)
	clear(s.y1)
	clear(s.y2)
}

// HumFilter removes mains hum from interleaved S16_LE blocks with a cascade
// of notches at the mains frequency and its harmonics.
type HumFilter struct {
	channels int
	sections []*biquad
	freqs    []float64
}

// NewHumFilter builds notches at freq, 2*freq, ... up to harmonics sections.
// Harmonics at or above the Nyquist frequency of rate are left out.
func NewHumFilter(freq float64, harmonics int, q float64, rate uint, channels int) *HumFilter {
	f := &HumFilter{channels: channels}
	nyquist := float64(rate) / 2
	for h := 1; h <= harmonics; h++ {
		hz := freq * float64(h)
		if hz >= nyquist {
			break
		}
		f.sections = append(f.sections, newNotch(hz, q, float64(rate), channels))
		f.freqs = append(f.freqs, hz)
	}
	return f
}

// Frequencies lists the notch centres in Hz.
func (f *HumFilter) Frequencies() []float64 {
	return f.freqs
}

// Process filters block in place. Trailing bytes short of a whole frame are
// left untouched.
func (f *HumFilter) Process(block []byte) {
	if len(f.sections) == 0 {
		return
	}
	frameBytes := 2 * f.channels
	frames := len(block) / frameBytes
	for i := 0; i < frames; i++ {
		for ch := 0; ch < f.channels; ch++ {
			off := i*frameBytes + 2*ch
			v := float64(int16(binary.LittleEndian.Uint16(block[off:])))
			for _, s := range f.sections {
				v = s.step(ch, v)
			}
			binary.LittleEndian.PutUint16(block[off:], uint16(clampS16(v)))
		}
	}
}

// Reset clears filter history, used when the stream restarts.
func (f *HumFilter) Reset() {
	for _, s := range f.sections {
		s.reset()
	}
}

func clampS16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
