package audio

import (
	"fmt"
	"strings"

	"github.com/linuxmatters/avc/internal/alsa"
	"github.com/linuxmatters/avc/internal/peak"
	"github.com/sirupsen/logrus"
)

// Stream is a capture source the loop can read blocks from.
type Stream interface {
	Read(block []byte) error
	Recover(err error) error
	Close() error
	// Rate is the sample rate the stream actually delivers.
	Rate() uint
}

// ParseDevice splits a device id into a file kind and path. Ids without a
// wav:, mp3:, ogg:, flac: or aiff: prefix name an ALSA device and return ok
// false.
func ParseDevice(device string) (kind Kind, path string, ok bool) {
	prefix, rest, found := strings.Cut(device, ":")
	if !found || rest == "" {
		return "", "", false
	}
	switch k := Kind(strings.ToLower(prefix)); k {
	case KindWAV, KindMP3, KindOgg, KindFLAC, KindAIFF:
		return k, rest, true
	}
	return "", "", false
}

// Open opens device as an interleaved stereo capture stream in format at
// rate. File streams are always S16_LE and play at their own rate.
func Open(device string, format peak.Format, rate uint, log *logrus.Entry) (Stream, error) {
	log = log.WithField("device", device)

	kind, path, ok := ParseDevice(device)
	if !ok {
		pcm, err := alsa.OpenCapture(device, format, rate, peak.Channels)
		if err != nil {
			return nil, err
		}
		if got := pcm.Rate(); got != rate {
			log.WithFields(logrus.Fields{
				"requested": rate,
				"actual":    got,
			}).Warn("Capture rate differs from requested")
		}
		log.WithField("rate", pcm.Rate()).Debug("Opened capture device")
		return pcm, nil
	}

	if format != peak.FormatS16LE {
		return nil, fmt.Errorf("%s: file streams only produce %s, not %s", device, peak.FormatS16LE, format)
	}

	r, meta, err := OpenAudioFile(kind, path)
	if err != nil {
		return nil, err
	}
	if meta.SampleRate != int(rate) {
		log.WithFields(logrus.Fields{
			"requested": rate,
			"actual":    meta.SampleRate,
		}).Warn("File sample rate differs from requested")
	}
	log.WithFields(logrus.Fields{
		"codec":     meta.Codec,
		"channels":  meta.Channels,
		"bit_depth": meta.BitDepth,
		"duration":  meta.Duration,
	}).Debug("Opened file stream")
	return r, nil
}
