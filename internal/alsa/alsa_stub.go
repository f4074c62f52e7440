//go:build !linux || !cgo

package alsa

import "github.com/linuxmatters/avc/internal/peak"

// PCM is unavailable in this build.
type PCM struct{}

func OpenCapture(device string, format peak.Format, rate uint, channels int) (*PCM, error) {
	return nil, ErrUnsupported
}

func (p *PCM) Rate() uint              { return 0 }
func (p *PCM) Read(block []byte) error { return ErrUnsupported }
func (p *PCM) Recover(err error) error { return ErrUnsupported }
func (p *PCM) Close() error            { return nil }

// Mixer is unavailable in this build.
type Mixer struct{}

func OpenMixer(card, element string) (*Mixer, error) {
	return nil, ErrUnsupported
}

func (m *Mixer) Range() (lo, hi int64, err error) { return 0, 0, ErrUnsupported }
func (m *Mixer) Volume() (int64, error)           { return 0, ErrUnsupported }
func (m *Mixer) SetVolume(v int64) error          { return ErrUnsupported }
func (m *Mixer) HandleEvents() error              { return ErrUnsupported }
func (m *Mixer) Close() error                     { return nil }
